package core

import (
	"fmt"
	"time"
)

// FailureCode is the exit code reported when no real exit status exists:
// the process never started, its output could not be read, or it was
// terminated by a signal.
const FailureCode = -1

// Outcome tags a Result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Result is the terminal status of an Invocation. Exactly one is produced
// per invocation, after all of its output lines.
type Result struct {
	InvocationID string
	Action       Action
	Outcome      Outcome
	ExitCode     int
	Diagnostic   string
	Stdout       []byte // verbatim stdout, only for capturing invocations
	Lines        int
	StartedAt    time.Time
	EndedAt      time.Time
}

// Succeeded reports whether the result is a Success.
func (r Result) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// Duration is the wall time between start and completion.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Summary is a one-line description for logs, e.g. "exit 7: exit status 7".
func (r Result) Summary() string {
	if r.Succeeded() {
		return "exit 0"
	}
	if r.Diagnostic == "" {
		return fmt.Sprintf("exit %d", r.ExitCode)
	}
	return fmt.Sprintf("exit %d: %s", r.ExitCode, r.Diagnostic)
}
