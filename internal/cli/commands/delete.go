package commands

import (
	"context"
	"fmt"

	"chatlog/internal/config"
)

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Удалить сообщение и его вложение" }
func (deleteCmd) Usage() string       { return "delete <id>" }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return ErrUsage
	}
	res, err := newClient(cfg).Delete(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Deleted: %s\n", args[0])
	if res.Warning != "" {
		fmt.Fprintf(Out, "! %s\n", res.Warning)
	}
	return nil
}

type clearCmd struct{}

func (clearCmd) Name() string        { return "clear" }
func (clearCmd) Description() string { return "Удалить все сообщения" }
func (clearCmd) Usage() string       { return "clear" }

func (clearCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	res, err := newClient(cfg).Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Deleted: %d\n", res.DeletedCount)
	if res.CleanupFailures > 0 {
		fmt.Fprintf(Out, "! attachment cleanup failed for %d file(s)\n", res.CleanupFailures)
		for _, w := range res.Warnings {
			fmt.Fprintf(Out, "  %s\n", w)
		}
	}
	return nil
}

func init() {
	RegisterCmd(deleteCmd{})
	RegisterCmd(clearCmd{})
}
