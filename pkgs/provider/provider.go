// Package provider presents the per-provider retrieval engine behind a
// provider-agnostic interface, so OAuth-based and password-based accounts
// expose the same surface to calling code.
package provider

import (
	"context"
	"strings"

	"github.com/unimail/unimail/pkgs/classify"
	"github.com/unimail/unimail/pkgs/engine"
	"github.com/unimail/unimail/pkgs/message"
)

// Mailbox is the boundary contract the UI/HTTP layer depends on. It is
// implemented by *engine.Engine; calling code never needs to know which
// provider or auth method sits behind it.
type Mailbox interface {
	// Authenticate opens a session. On false, LastError carries the
	// classified cause and remediation hint.
	Authenticate(ctx context.Context) bool

	// LastError returns the classified error from the most recent failed
	// operation, or nil.
	LastError() *classify.Error

	// FetchEmails returns one bounded page of normalized messages,
	// erroring only on whole-batch failure.
	FetchEmails(ctx context.Context, req engine.FetchRequest) ([]message.NormalizedEmail, error)

	// MarkAsRead flips the seen flag, best-effort, for an id produced by
	// this session.
	MarkAsRead(ctx context.Context, id string, read bool) error

	// Disconnect always succeeds from the caller's point of view.
	Disconnect()
}

var _ Mailbox = (*engine.Engine)(nil)

// Defaults holds the well-known endpoint settings for a provider kind.
type Defaults struct {
	Host   string
	Port   int
	UseTLS bool
	Method engine.AuthMethod
}

// KnownDefaults returns endpoint defaults for a provider kind, and whether
// the kind is known. Unknown kinds get no defaults; the account config must
// spell the endpoint out.
func KnownDefaults(kind string) (Defaults, bool) {
	switch strings.ToLower(kind) {
	case "gmail":
		return Defaults{Host: "imap.gmail.com", Port: 993, UseTLS: true, Method: engine.AuthOAuth}, true
	case "outlook", "office365":
		return Defaults{Host: "outlook.office365.com", Port: 993, UseTLS: true, Method: engine.AuthOAuth}, true
	case "yahoo":
		return Defaults{Host: "imap.mail.yahoo.com", Port: 993, UseTLS: true, Method: engine.AuthPassword}, true
	case "icloud":
		return Defaults{Host: "imap.mail.me.com", Port: 993, UseTLS: true, Method: engine.AuthPassword}, true
	default:
		return Defaults{}, false
	}
}

// ApplyDefaults fills the blanks of a credential from its provider kind's
// known defaults. Explicit values always win.
func ApplyDefaults(cred engine.Credential) engine.Credential {
	def, ok := KnownDefaults(cred.Provider)
	if !ok {
		return cred
	}
	if cred.Host == "" {
		cred.Host = def.Host
		cred.UseTLS = def.UseTLS
	}
	if cred.Port == 0 {
		cred.Port = def.Port
	}
	if cred.Method == "" {
		cred.Method = def.Method
	}
	return cred
}
