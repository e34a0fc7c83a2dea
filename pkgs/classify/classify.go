// Package classify maps raw IMAP transport and protocol failures to a small,
// closed set of categories that callers can act on.
//
// Providers report authentication problems in wildly different shapes: some
// attach an IMAP response code, some only a free-form ALERT text, and some
// reject the login with no detail at all. The mapping is kept in an explicit
// pattern table rather than scattered conditionals so the taxonomy stays
// closed and testable.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/emersion/go-imap/v2"
)

// Category identifies one failure class.
type Category string

const (
	// AuthBlocked means the provider rejected legacy password login by
	// policy. The credential itself may be valid; the user must switch to
	// OAuth or generate an app-specific password.
	AuthBlocked Category = "auth_blocked"

	// AuthFailed means the credential was rejected.
	AuthFailed Category = "auth_failed"

	// ProtocolDisabled means IMAP access is switched off for the account.
	ProtocolDisabled Category = "protocol_disabled"

	// Timeout means a stage exceeded its time budget.
	Timeout Category = "timeout"

	// Transport covers connectivity failures: DNS, TLS handshake, resets.
	Transport Category = "transport"

	// ParsePartial means every message in a fetch batch failed to parse.
	ParsePartial Category = "parse_partial"
)

// Error is a classified failure. It wraps the original error so callers can
// still unwrap and inspect it.
type Error struct {
	Category Category
	Message  string
	// Hint is a short remediation suggestion, set only when the source
	// signal is unambiguous.
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Category) + ": " + e.Message
	}
	return string(e.Category)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error without an underlying cause.
func New(cat Category, msg, hint string) *Error {
	return &Error{Category: cat, Message: msg, Hint: hint}
}

// pattern is one row of the matching table. Every substring must appear
// (case-insensitive) in the server text for the row to apply.
type pattern struct {
	contains []string
	category Category
	hint     string
}

// patternTable is checked in order; the first match wins. More specific
// provider sub-codes come before generic rejections.
var patternTable = []pattern{
	// Gmail without an app password on a 2FA account.
	{
		contains: []string{"application-specific password required"},
		category: AuthBlocked,
		hint:     "generate an app password for this account",
	},
	{
		contains: []string{"web login required"},
		category: AuthBlocked,
		hint:     "sign in with OAuth or generate an app password",
	},
	// Office 365 tenants with basic authentication switched off.
	{
		contains: []string{"basic authentication is disabled"},
		category: AuthBlocked,
		hint:     "sign in with OAuth; this provider no longer accepts passwords over IMAP",
	},
	{
		contains: []string{"basicauthblockedbypolicy"},
		category: AuthBlocked,
		hint:     "sign in with OAuth; this provider no longer accepts passwords over IMAP",
	},
	// Account-level IMAP feature flag off.
	{
		contains: []string{"imap access is disabled"},
		category: ProtocolDisabled,
		hint:     "enable IMAP access in the account settings",
	},
	{
		contains: []string{"not enabled for imap"},
		category: ProtocolDisabled,
		hint:     "enable IMAP access in the account settings",
	},
	{
		contains: []string{"logindisabled"},
		category: ProtocolDisabled,
		hint:     "the server does not accept logins on this connection",
	},
	// Plain credential rejections.
	{
		contains: []string{"authenticationfailed"},
		category: AuthFailed,
		hint:     "check the username and password",
	},
	{
		contains: []string{"invalid credentials"},
		category: AuthFailed,
		hint:     "check the username and password",
	},
	{
		contains: []string{"authentication failed"},
		category: AuthFailed,
		hint:     "check the username and password",
	},
	{
		contains: []string{"login failed"},
		category: AuthFailed,
		hint:     "check the username and password",
	},
}

// Classify maps err to a classified Error. Timeouts win over everything else:
// a handshake that blew its budget is Timeout no matter what partial response
// the server managed to send.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	if isTimeout(err) {
		return &Error{Category: Timeout, Message: err.Error(), Err: err}
	}

	text := strings.ToLower(err.Error())
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		// Response codes are more reliable than text when present.
		switch imapErr.Code {
		case imap.ResponseCodeAuthenticationFailed:
			if row, ok := match(text); ok && row.category != AuthFailed {
				return &Error{Category: row.category, Message: err.Error(), Hint: row.hint, Err: err}
			}
			return &Error{Category: AuthFailed, Message: err.Error(), Hint: "check the username and password", Err: err}
		case imap.ResponseCodeAuthorizationFailed, imap.ResponseCodePrivacyRequired:
			return &Error{Category: ProtocolDisabled, Message: err.Error(), Err: err}
		}
	}

	if row, ok := match(text); ok {
		return &Error{Category: row.category, Message: err.Error(), Hint: row.hint, Err: err}
	}

	return &Error{Category: Transport, Message: err.Error(), Err: err}
}

// ClassifyAuth is Classify with a different fallback: an unmatched rejection
// during the login exchange is a generic auth failure, not a transport error.
// A rejection with no sub-code is deliberately AuthFailed rather than
// ProtocolDisabled; that category requires explicit server text or a response
// code saying access is switched off, so wrong passwords never masquerade as
// a disabled account.
func ClassifyAuth(err error) *Error {
	if err == nil {
		return nil
	}
	ce := Classify(err)
	if ce.Category == Transport {
		ce = &Error{Category: AuthFailed, Message: ce.Message, Hint: "check the username and password", Err: err}
	}
	return ce
}

func match(text string) (pattern, bool) {
	for _, row := range patternTable {
		ok := true
		for _, sub := range row.contains {
			if !strings.Contains(text, sub) {
				ok = false
				break
			}
		}
		if ok {
			return row, true
		}
	}
	return pattern{}, false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
