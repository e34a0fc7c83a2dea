package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/unimail/unimail/pkgs/config"
	"github.com/unimail/unimail/pkgs/engine"
)

type listFlags struct {
	mailbox    string
	limit      int
	skip       int
	unreadOnly bool
}

func parseListFlags(args []string) listFlags {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var f listFlags
	fs.StringVar(&f.mailbox, "mailbox", "INBOX", "Mailbox to list")
	fs.IntVar(&f.limit, "limit", 20, "Maximum messages to show")
	fs.IntVar(&f.skip, "skip", 0, "Most-recent messages to skip")
	fs.BoolVar(&f.unreadOnly, "unread-only", false, "Show only unread messages")
	if err := fs.Parse(args); err != nil {
		fatal("list: %v", err)
	}
	return f
}

func handleList(a *app, acc *config.AccountConfig, f listFlags) error {
	ctx := context.Background()

	eng, err := a.openSession(ctx, acc)
	if err != nil {
		return err
	}
	defer eng.Disconnect()

	emails, err := eng.FetchEmails(ctx, engine.FetchRequest{
		Limit:      f.limit,
		Skip:       f.skip,
		UnreadOnly: f.unreadOnly,
		Mailbox:    f.mailbox,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Account: %s | Mailbox: %s | Messages: %d\n\n", acc.Email, f.mailbox, len(emails))

	for i, msg := range emails {
		status := "✗"
		if msg.IsRead {
			status = "✓"
		}
		fmt.Printf("[%d] %s From: %s <%s>\n", i+1, status, msg.Sender.DisplayName, msg.Sender.Address)
		fmt.Printf("    Subject: %s\n", msg.Subject)
		fmt.Printf("    Date: %s\n", msg.ReceivedAt.Format(time.RFC1123))
		if msg.PreviewText != "" {
			fmt.Printf("    Preview: %s\n", msg.PreviewText)
		}
		for _, att := range msg.Attachments {
			fmt.Printf("    Attachment: %s (%s, %d bytes)\n", att.Filename, att.ContentType, att.SizeBytes)
		}
		if a.verbose {
			fmt.Printf("    ID: %s\n", msg.ID)
		}
		fmt.Println()
	}
	return nil
}
