package main

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/unimail/unimail/pkgs/archive"
	"github.com/unimail/unimail/pkgs/config"
	"github.com/unimail/unimail/pkgs/engine"
)

type saveFlags struct {
	mailbox string
	limit   int
	skip    int
	output  string
}

func parseSaveFlags(args []string) saveFlags {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	var f saveFlags
	fs.StringVar(&f.mailbox, "mailbox", "INBOX", "Mailbox to save from")
	fs.IntVar(&f.limit, "limit", 20, "Maximum messages to save")
	fs.IntVar(&f.skip, "skip", 0, "Most-recent messages to skip")
	fs.StringVarP(&f.output, "output", "o", "", "Destination mbox file (required)")
	if err := fs.Parse(args); err != nil {
		fatal("save: %v", err)
	}
	return f
}

func handleSave(a *app, acc *config.AccountConfig, f saveFlags) error {
	if f.output == "" {
		return fmt.Errorf("--output is required")
	}

	ctx := context.Background()

	eng, err := a.openSession(ctx, acc)
	if err != nil {
		return err
	}
	defer eng.Disconnect()

	msgs, err := eng.FetchRaw(ctx, engine.FetchRequest{
		Limit:   f.limit,
		Skip:    f.skip,
		Mailbox: f.mailbox,
	})
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return fmt.Errorf("no messages to save from %s", f.mailbox)
	}

	if err := archive.SaveMbox(f.output, msgs); err != nil {
		return err
	}

	fmt.Printf("Saved %d messages from %s to %s\n", len(msgs), f.mailbox, f.output)
	return nil
}
