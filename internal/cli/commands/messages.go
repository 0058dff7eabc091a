package commands

import (
	"context"
	"fmt"

	"chatlog/internal/config"

	"github.com/dustin/go-humanize"
)

type messagesCmd struct{}

func (messagesCmd) Name() string        { return "messages" }
func (messagesCmd) Description() string { return "Показать все сообщения" }
func (messagesCmd) Usage() string       { return "messages" }

func (messagesCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	list, err := newClient(cfg).List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(Out, "Нет сообщений")
		return nil
	}
	for _, m := range list {
		line := fmt.Sprintf("- %s  [%s] %s: %s", m.ID, m.CreatedAt.Local().Format("2006-01-02 15:04:05"), m.User, m.Text)
		if m.AttachmentLocator != nil {
			line += fmt.Sprintf("  +%s (%s)", m.AttachmentName, humanize.Bytes(uint64(m.AttachmentSize)))
		}
		fmt.Fprintln(Out, line)
	}
	fmt.Fprintf(Out, "Всего: %d\n", len(list))
	return nil
}

func init() { RegisterCmd(messagesCmd{}) }
