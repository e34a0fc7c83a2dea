package engine

import (
	"fmt"

	"github.com/emersion/go-sasl"
)

// xoauth2Client implements the SASL XOAUTH2 mechanism used by Gmail and
// Office 365 for token-based IMAP login. go-sasl ships OAUTHBEARER but not
// XOAUTH2, so the initial response is assembled here.
type xoauth2Client struct {
	username string
	token    string
	done     bool
}

func newXOAuth2Client(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

func (c *xoauth2Client) Start() (string, []byte, error) {
	ir := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", c.username, c.token)
	return "XOAUTH2", []byte(ir), nil
}

// Next handles the server challenge. XOAUTH2 only challenges on failure,
// with a base64 JSON error blob; replying with an empty line makes the
// server finish with a tagged NO that carries the real diagnostic.
func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	if c.done {
		return nil, fmt.Errorf("unexpected XOAUTH2 challenge: %q", challenge)
	}
	c.done = true
	return []byte{}, nil
}
