package main

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/unimail/unimail/pkgs/config"
	"github.com/unimail/unimail/pkgs/engine"
	"github.com/unimail/unimail/pkgs/provider"
)

// newEngine builds a retrieval engine for the account, filling endpoint
// blanks from the provider's known defaults.
func (a *app) newEngine(acc *config.AccountConfig) *engine.Engine {
	cred := provider.ApplyDefaults(acc.Credential())

	loglevel := hclog.Warn
	if a.verbose {
		loglevel = hclog.Debug
	}
	log := hclog.New(&hclog.LoggerOptions{
		Name:  "unimail",
		Level: loglevel,
	})

	return engine.New(cred, engine.WithLogger(log))
}

// openSession authenticates and leaves the session ready, rendering the
// classified error and its remediation hint on failure.
func (a *app) openSession(ctx context.Context, acc *config.AccountConfig) (*engine.Engine, error) {
	eng := a.newEngine(acc)
	if !eng.Authenticate(ctx) {
		ce := eng.LastError()
		if ce == nil {
			return nil, fmt.Errorf("authentication failed for %s", acc.Email)
		}
		if ce.Hint != "" {
			return nil, fmt.Errorf("%s (hint: %s)", ce.Message, ce.Hint)
		}
		return nil, fmt.Errorf("%s", ce.Message)
	}
	return eng, nil
}
