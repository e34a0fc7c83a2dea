package main

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/unimail/unimail/pkgs/config"
	"github.com/unimail/unimail/pkgs/engine"
)

type readFlags struct {
	mailbox string
	index   int
	unread  bool
}

func parseReadFlags(args []string) readFlags {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var f readFlags
	fs.StringVar(&f.mailbox, "mailbox", "INBOX", "Mailbox containing the message")
	fs.IntVar(&f.index, "index", 1, "1-based list position of the message (newest first)")
	fs.BoolVar(&f.unread, "unread", false, "Mark as unread instead of read")
	if err := fs.Parse(args); err != nil {
		fatal("read: %v", err)
	}
	return f
}

// handleRead flips the seen flag for one message. Ids are session-local, so
// the message is located by fetching the page that contains its position.
func handleRead(a *app, acc *config.AccountConfig, f readFlags) error {
	if f.index < 1 {
		return fmt.Errorf("index must be >= 1")
	}

	ctx := context.Background()

	eng, err := a.openSession(ctx, acc)
	if err != nil {
		return err
	}
	defer eng.Disconnect()

	emails, err := eng.FetchEmails(ctx, engine.FetchRequest{
		Limit:   1,
		Skip:    f.index - 1,
		Mailbox: f.mailbox,
	})
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		return fmt.Errorf("no message at position %d in %s", f.index, f.mailbox)
	}

	msg := emails[0]
	if err := eng.MarkAsRead(ctx, msg.ID, !f.unread); err != nil {
		return err
	}

	state := "read"
	if f.unread {
		state = "unread"
	}
	fmt.Printf("Marked as %s: %s\n", state, msg.Subject)
	return nil
}
