package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyPatternTable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     Category
		wantHint bool
	}{
		{
			name:     "gmail app password alert",
			err:      errors.New("LOGIN failed: [ALERT] Application-specific password required"),
			want:     AuthBlocked,
			wantHint: true,
		},
		{
			name:     "gmail web login required",
			err:      errors.New("[ALERT] Web login required: https://support.example.com"),
			want:     AuthBlocked,
			wantHint: true,
		},
		{
			name:     "office365 basic auth policy",
			err:      errors.New("LOGIN failed: basic authentication is disabled for this tenant (BasicAuthBlockedByPolicy)"),
			want:     AuthBlocked,
			wantHint: true,
		},
		{
			name:     "imap access off",
			err:      errors.New("NO IMAP access is disabled for your account"),
			want:     ProtocolDisabled,
			wantHint: true,
		},
		{
			name:     "login disabled capability",
			err:      errors.New("server advertises LOGINDISABLED"),
			want:     ProtocolDisabled,
			wantHint: true,
		},
		{
			name: "plain credential rejection",
			err:  errors.New("NO [AUTHENTICATIONFAILED] Invalid credentials (Failure)"),
			want: AuthFailed,
		},
		{
			name: "login failed text",
			err:  errors.New("LOGIN failed"),
			want: AuthFailed,
		},
		{
			name: "dns failure is transport",
			err:  errors.New("dial tcp: lookup imap.example.com: no such host"),
			want: Transport,
		},
		{
			name: "tls failure is transport",
			err:  errors.New("tls: handshake failure"),
			want: Transport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got.Category)
			if tt.wantHint {
				assert.NotEmpty(t, got.Hint)
			}
		})
	}
}

func TestClassifyTimeoutWinsOverPartialResponse(t *testing.T) {
	// A deadline blown mid-handshake is Timeout even when the error text
	// would otherwise match an auth pattern.
	err := fmt.Errorf("authenticating: %w", context.DeadlineExceeded)
	assert.Equal(t, Timeout, Classify(err).Category)

	var ne error = timeoutErr{}
	assert.Equal(t, Timeout, Classify(fmt.Errorf("read: %w", ne)).Category)
}

func TestClassifyIMAPResponseCode(t *testing.T) {
	err := &imap.Error{
		Type: imap.StatusResponseTypeNo,
		Code: imap.ResponseCodeAuthenticationFailed,
		Text: "Invalid credentials",
	}
	got := Classify(err)
	assert.Equal(t, AuthFailed, got.Category)
	assert.NotEmpty(t, got.Hint)
}

func TestClassifyAuthFallback(t *testing.T) {
	// An unmatched rejection during login is a generic auth failure, not
	// transport.
	got := ClassifyAuth(errors.New("NO nope"))
	assert.Equal(t, AuthFailed, got.Category)

	// Timeouts stay timeouts.
	got = ClassifyAuth(context.DeadlineExceeded)
	assert.Equal(t, Timeout, got.Category)
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	ce := New(ParsePartial, "all messages failed", "")
	assert.Same(t, ce, Classify(fmt.Errorf("wrapped: %w", ce)))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	ce := Classify(cause)
	assert.ErrorIs(t, ce, cause)
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Nil(t, ClassifyAuth(nil))
}
