package core

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Invocation is a single command to run: an executable path and its ordered
// arguments. It is a value; accessors hand out copies.
type Invocation struct {
	id      string
	action  Action
	path    string
	args    []string
	capture bool
}

// NewInvocation builds the invocation for an action against the given tool path.
func NewInvocation(action Action, path string, args ...string) Invocation {
	return Invocation{
		id:     uuid.New().String(),
		action: action,
		path:   path,
		args:   slices.Clone(args),
	}
}

// WithCapture returns a copy whose stdout is retained verbatim in the Result.
func (i Invocation) WithCapture() Invocation {
	i.args = slices.Clone(i.args)
	i.capture = true
	return i
}

func (i Invocation) ID() string { return i.id }
func (i Invocation) Action() Action { return i.action }
func (i Invocation) Path() string { return i.path }
func (i Invocation) Args() []string { return slices.Clone(i.args) }
func (i Invocation) Capture() bool { return i.capture }

// String renders the command line for logs.
func (i Invocation) String() string {
	return strings.Join(append([]string{i.path}, i.args...), " ")
}
