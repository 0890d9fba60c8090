package dispatch

import "github.com/modoterra/nockkeygen/pkg/core"

// State is the lifecycle position of one operation.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// TransitionFunc observes a state change of an action's operation.
type TransitionFunc func(action core.Action, from, to State)
