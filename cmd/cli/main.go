package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

const version = "0.1.0"

// app holds global options parsed from the command line
type app struct {
	account string
	verbose bool
}

func main() {
	a := &app{}

	// Global flags
	flag.StringVar(&a.account, "account", "", "Account name or email to use")
	flag.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("unimail v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	// "init" doesn't need config loaded
	if cmd == "init" {
		if err := handleInit(); err != nil {
			fatal("init: %v", err)
		}
		return
	}

	// Load config and resolve account
	acc := a.loadAccount()

	switch cmd {
	case "list":
		opts := parseListFlags(cmdArgs)
		if err := handleList(a, acc, opts); err != nil {
			fatal("list: %v", err)
		}
	case "read":
		opts := parseReadFlags(cmdArgs)
		if err := handleRead(a, acc, opts); err != nil {
			fatal("read: %v", err)
		}
	case "save":
		opts := parseSaveFlags(cmdArgs)
		if err := handleSave(a, acc, opts); err != nil {
			fatal("save: %v", err)
		}
	case "help":
		printUsage()
		os.Exit(0)
	default:
		fatal("unknown command '%s'", cmd)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `unimail v%s - Mailbox retrieval over IMAP

Usage:
  unimail [global options] <command> [command options]

Commands:
  init       Write an example config file
  list       List recent emails in a mailbox
  read       Mark an email as read or unread
  save       Save recent emails to a local mbox file
  help       Show this help

Global options:
  --account <name>   Account name or email to use
  -v, --verbose      Verbose output
  --version          Show version information

Configuration is read from the JSON file named by $UNIMAIL_CONFIG_JSON,
falling back to ~/.unimail/config.json.
`, version)
}
