package commands

import (
	"context"
	"fmt"

	"chatlog/internal/config"

	"github.com/dustin/go-humanize"
)

type sendCmd struct{}

func (sendCmd) Name() string { return "send" }
func (sendCmd) Description() string {
	return "Отправить сообщение (опционально с файлом)"
}
func (sendCmd) Usage() string { return "send <text> [<file>]" }

func (sendCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	text := args[0]
	var file string
	if len(args) == 2 {
		file = args[1]
	}
	if text == "" && file == "" {
		return ErrUsage
	}

	msg, err := newClient(cfg).Send(ctx, cfg.User, text, file)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, "Sent:")
	fmt.Fprintf(Out, "  id:   %s\n", msg.ID)
	fmt.Fprintf(Out, "  user: %s\n", msg.User)
	if msg.AttachmentLocator != nil {
		fmt.Fprintf(Out, "  file: %s (%s)\n", msg.AttachmentName, humanize.Bytes(uint64(msg.AttachmentSize)))
	}
	return nil
}

func init() { RegisterCmd(sendCmd{}) }
