// Package engine implements a single-session IMAP retrieval engine: it
// drives the connection and authentication state machine, performs bounded
// paginated search and fetch, and parses raw messages into normalized
// records.
//
// One Engine owns exactly one server session. Protocol operations are
// serialized internally; the Engine is not safe for concurrent external
// calls.
package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"
	"github.com/hashicorp/go-hclog"

	"github.com/unimail/unimail/pkgs/classify"
)

// Default time budgets. Authentication gets a larger budget than the dial
// because some servers delay the post-login ready signal.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultAuthTimeout    = 20 * time.Second
	DefaultFetchTimeout   = 60 * time.Second
)

// AuthMethod selects how the secret is presented to the server.
type AuthMethod string

const (
	// AuthPassword is a plain LOGIN with a password or app password.
	AuthPassword AuthMethod = "password"
	// AuthOAuth presents an already-resolved OAuth access token via SASL
	// XOAUTH2. Obtaining the token is the caller's concern.
	AuthOAuth AuthMethod = "oauth"
)

// Credential holds everything needed to open one authenticated session.
// It is immutable once the Engine is constructed.
type Credential struct {
	Email    string
	Provider string
	Host     string
	Port     int
	// UseTLS enables implicit TLS. Cleartext is only intended for tests
	// against local servers.
	UseTLS bool
	Method AuthMethod
	Secret string
}

// Addr returns the transport endpoint in host:port form.
func (c Credential) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes the engine's structured event stream to log. The engine
// never writes to a process-wide sink on its own.
func WithLogger(log hclog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithConnectTimeout bounds the dial plus server-greeting wait.
func WithConnectTimeout(d time.Duration) Option {
	return func(e *Engine) { e.connectTimeout = d }
}

// WithAuthTimeout bounds the login exchange plus mailbox select.
func WithAuthTimeout(d time.Duration) Option {
	return func(e *Engine) { e.authTimeout = d }
}

// WithFetchTimeout bounds one whole FetchEmails call.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.fetchTimeout = d }
}

// Engine is a single-session IMAP retrieval engine.
type Engine struct {
	cred Credential
	log  hclog.Logger

	connectTimeout time.Duration
	authTimeout    time.Duration
	fetchTimeout   time.Duration

	// opMu serializes protocol-level operations: the underlying command
	// stream does not support pipelining from one client identity.
	opMu sync.Mutex

	stateMu sync.Mutex
	state   State
	lastErr *classify.Error

	client      *imapclient.Client
	mailbox     string
	numMessages uint32

	// uidByID maps engine-generated message ids to the stable UIDs
	// captured at fetch time, for later flag mutation.
	uidByID map[string]imap.UID
}

// New constructs an Engine for one credential. No network activity happens
// until Authenticate.
func New(cred Credential, opts ...Option) *Engine {
	e := &Engine{
		cred:           cred,
		log:            hclog.NewNullLogger(),
		connectTimeout: DefaultConnectTimeout,
		authTimeout:    DefaultAuthTimeout,
		fetchTimeout:   DefaultFetchTimeout,
		state:          StateDisconnected,
		uidByID:        make(map[string]imap.UID),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LastError returns the classified error from the most recent failed
// operation, or nil.
func (e *Engine) LastError() *classify.Error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastErr
}

// State returns the session's current lifecycle state.
func (e *Engine) State() State {
	return e.currentState()
}

// Authenticate opens the transport, logs in, and selects mailbox (INBOX by
// default), leaving the session Ready. It reports success as a bool; on
// failure the classified cause is available via LastError. Whole-session
// failures are never raised past this boundary.
func (e *Engine) Authenticate(ctx context.Context) bool {
	return e.AuthenticateMailbox(ctx, "INBOX")
}

// AuthenticateMailbox is Authenticate with an explicit target mailbox.
func (e *Engine) AuthenticateMailbox(ctx context.Context, mailbox string) bool {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if !e.transition(StateDisconnected, StateConnecting) {
		e.setLastError(classify.New(classify.Transport,
			fmt.Sprintf("session is %s, a new engine is required", e.currentState()), ""))
		return false
	}

	client, err := e.connect(ctx)
	if err != nil {
		e.fail(classify.Classify(err))
		return false
	}
	e.client = client

	if !e.transition(StateConnecting, StateAuthenticating) {
		_ = client.Close()
		return false
	}

	if err := e.login(ctx); err != nil {
		e.fail(classify.ClassifyAuth(err))
		return false
	}

	// Selecting atomically follows a successful login; there is no idle
	// authenticated-but-unselected state.
	if !e.transition(StateAuthenticating, StateSelecting) {
		return false
	}
	if err := e.selectMailbox(ctx, mailbox); err != nil {
		// Mailbox missing or permission denied is a transport-class
		// failure, not an auth failure.
		ce := classify.Classify(err)
		if ce.Category != classify.Timeout {
			ce = &classify.Error{Category: classify.Transport, Message: ce.Message, Err: err}
		}
		e.fail(ce)
		return false
	}

	if !e.transition(StateSelecting, StateReady) {
		return false
	}

	e.log.Info("session ready",
		"provider", e.cred.Provider,
		"mailbox", mailbox,
		"messages", e.numMessages)
	return true
}

// connect dials the endpoint and waits for the server greeting, all within
// the connect timeout.
func (e *Engine) connect(ctx context.Context) (*imapclient.Client, error) {
	addr := e.cred.Addr()
	e.log.Debug("dialing", "addr", addr, "tls", e.cred.UseTLS)

	opts := &imapclient.Options{
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	}

	var conn net.Conn
	var err error
	if e.cred.UseTLS {
		conn, err = tls.DialWithDialer(
			&net.Dialer{Timeout: e.connectTimeout},
			"tcp", addr,
			&tls.Config{ServerName: e.cred.Host, MinVersion: tls.VersionTLS12},
		)
	} else {
		conn, err = net.DialTimeout("tcp", addr, e.connectTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	client := imapclient.New(conn, opts)

	if err := e.await(ctx, e.connectTimeout, client.WaitGreeting); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("waiting for greeting from %s: %w", addr, err)
	}
	return client, nil
}

// login runs the credential exchange under the auth timeout.
func (e *Engine) login(ctx context.Context) error {
	exchange := func() error {
		switch e.cred.Method {
		case AuthOAuth:
			return e.client.Authenticate(newXOAuth2Client(e.cred.Email, e.cred.Secret))
		default:
			return e.client.Login(e.cred.Email, e.cred.Secret).Wait()
		}
	}
	if err := e.await(ctx, e.authTimeout, exchange); err != nil {
		return fmt.Errorf("authenticating %s: %w", e.cred.Email, err)
	}
	return nil
}

// selectMailbox issues SELECT and records the message count.
func (e *Engine) selectMailbox(ctx context.Context, mailbox string) error {
	var data *imap.SelectData
	sel := func() error {
		var err error
		data, err = e.client.Select(mailbox, nil).Wait()
		return err
	}
	if err := e.await(ctx, e.authTimeout, sel); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}
	e.mailbox = mailbox
	e.numMessages = data.NumMessages
	return nil
}

// Disconnect tears the session down. It is best-effort and idempotent: safe
// to call from any state, including Failed and never-connected, and it never
// raises even when the transport is already gone.
func (e *Engine) Disconnect() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.stateMu.Lock()
	client := e.client
	e.client = nil
	prev := e.state
	if e.state != StateFailed {
		e.state = StateDisconnected
	}
	e.stateMu.Unlock()

	if client == nil {
		return
	}

	// A short-fused logout keeps teardown from hanging on a dead peer;
	// Close releases the conn regardless.
	_ = e.await(context.Background(), 2*time.Second, func() error {
		return client.Logout().Wait()
	})
	_ = client.Close()

	e.log.Debug("session closed", "previous_state", prev.String())
}

// fail settles the session into the terminal Failed state and records the
// classified cause. Only the first caller wins.
func (e *Engine) fail(ce *classify.Error) {
	e.stateMu.Lock()
	already := e.state == StateFailed
	if !already {
		e.state = StateFailed
		e.lastErr = ce
	}
	client := e.client
	e.client = nil
	e.stateMu.Unlock()

	if client != nil {
		_ = client.Close()
	}
	if !already && ce != nil {
		e.log.Error("session failed", "category", string(ce.Category), "error", ce.Message)
	}
}

func (e *Engine) setLastError(ce *classify.Error) {
	e.stateMu.Lock()
	e.lastErr = ce
	e.stateMu.Unlock()
}

// await runs fn bounded by the smaller of timeout and the context deadline.
// On expiry the operation's eventual result is discarded; the caller gets a
// timeout error exactly once.
func (e *Engine) await(ctx context.Context, timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}
