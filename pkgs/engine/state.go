package engine

import "fmt"

// State identifies where the session is in its lifecycle. All protocol
// operations are gated on it: search and fetch are legal only in StateReady.
type State int

const (
	// StateDisconnected is the initial state and the terminal state after
	// a graceful Disconnect.
	StateDisconnected State = iota
	// StateConnecting covers the dial and the server-greeting wait.
	StateConnecting
	// StateAuthenticating covers the login/auth exchange.
	StateAuthenticating
	// StateSelecting covers the mailbox SELECT that atomically follows a
	// successful login.
	StateSelecting
	// StateReady means authenticated with a mailbox selected.
	StateReady
	// StateFailed is terminal for the session. A new Engine must be
	// constructed to retry.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSelecting:
		return "selecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// legalTransitions is the closed set of allowed state changes. Failure is
// reachable from every live state; Disconnected is reachable from everywhere
// because teardown must always succeed.
var legalTransitions = map[State][]State{
	StateDisconnected:   {StateConnecting},
	StateConnecting:     {StateAuthenticating},
	StateAuthenticating: {StateSelecting},
	StateSelecting:      {StateReady},
	StateReady:          {},
}

// transition moves the machine to next if the session is still in from.
// It reports false when another path (a timeout, a late server reply, a
// teardown) settled the attempt first, which is what makes every connection
// attempt resolve exactly once.
func (e *Engine) transition(from, to State) bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.state != from {
		return false
	}
	if to != StateFailed && to != StateDisconnected {
		allowed := false
		for _, s := range legalTransitions[from] {
			if s == to {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	e.state = to
	e.log.Debug("session state change", "from", from.String(), "to", to.String())
	return true
}

// currentState reads the state under the guard.
func (e *Engine) currentState() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}
