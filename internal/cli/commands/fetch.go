package commands

import (
	"context"
	"fmt"
	"os"

	"chatlog/internal/config"

	"github.com/dustin/go-humanize"
)

type fetchCmd struct{}

func (fetchCmd) Name() string        { return "fetch" }
func (fetchCmd) Description() string { return "Скачать вложение сообщения в файл" }
func (fetchCmd) Usage() string       { return "fetch <id> <out-file>" }

func (fetchCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 || args[0] == "" || args[1] == "" {
		return ErrUsage
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	n, err := newClient(cfg).Download(ctx, args[0], f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(args[1])
		return err
	}
	fmt.Fprintf(Out, "Saved %s to %s\n", humanize.Bytes(uint64(n)), args[1])
	return nil
}

func init() { RegisterCmd(fetchCmd{}) }
