package refresh

import (
	"fmt"
	"time"
)

// Outcome describes how a Refresh call produced its token.
type Outcome int

const (
	// OutcomeRefreshed: the server issued a new access token.
	OutcomeRefreshed Outcome = iota + 1
	// OutcomeThrottled: a recent refresh left enough lifetime; no network.
	OutcomeThrottled
	// OutcomeCooldown: the attempt budget is spent; no network.
	OutcomeCooldown
	// OutcomeFallback: the call failed transiently; the old token is kept.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeCooldown:
		return "cooldown"
	case OutcomeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the token a Refresh call settled on.
type Result struct {
	Token   string
	Outcome Outcome
}

// StateKind is the coarse coordinator state.
type StateKind int

const (
	StateIdle StateKind = iota
	StateRefreshing
	StateCooldown
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// State is a point-in-time view of the coordinator.
type State struct {
	Kind StateKind
	// Until is set in StateCooldown.
	Until time.Time
}

// state is one of idle, refreshing or cooldown. Only refreshing carries an
// in-flight call, so at most one call can exist.
type state interface {
	kind() StateKind
}

type idle struct{}

type refreshing struct {
	call *call
}

type cooldown struct {
	until time.Time
}

func (idle) kind() StateKind       { return StateIdle }
func (refreshing) kind() StateKind { return StateRefreshing }
func (cooldown) kind() StateKind   { return StateCooldown }

// call is one in-flight refresh shared by every caller. res and err are
// written before done is closed.
type call struct {
	done chan struct{}
	res  Result
	err  error
}
