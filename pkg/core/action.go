package core

import "fmt"

// Action identifies a user-facing operation backed by the wallet tool.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionExport   Action = "export"
)

// Actions lists every supported action in display order.
var Actions = []Action{ActionGenerate, ActionExport}

// Subcommand returns the wallet tool subcommand that implements the action.
func (a Action) Subcommand() string {
	switch a {
	case ActionGenerate:
		return "keygen"
	case ActionExport:
		return "export-keys"
	default:
		return ""
	}
}

// Title is the human label used in log lines and notices.
func (a Action) Title() string {
	switch a {
	case ActionGenerate:
		return "Key generation"
	case ActionExport:
		return "Key export"
	default:
		return string(a)
	}
}

// ParseAction converts a string into a known Action.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q: expected generate or export", s)
}
