package core

import (
	"testing"
)

func TestSubcommand(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionGenerate, "keygen"},
		{ActionExport, "export-keys"},
		{Action("bogus"), ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			if got := tt.action.Subcommand(); got != tt.want {
				t.Errorf("Subcommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions {
		got, err := ParseAction(string(a))
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", a, err)
		}
		if got != a {
			t.Errorf("ParseAction(%q) = %q", a, got)
		}
	}
	if _, err := ParseAction("keygen"); err == nil {
		t.Error("expected error for tool subcommand name")
	}
}

func TestNewInvocationIsImmutable(t *testing.T) {
	args := []string{"keygen"}
	inv := NewInvocation(ActionGenerate, "/usr/bin/nockchain-wallet", args...)

	args[0] = "mutated"
	if got := inv.Args(); got[0] != "keygen" {
		t.Errorf("invocation shares caller slice: args = %v", got)
	}

	out := inv.Args()
	out[0] = "mutated"
	if got := inv.Args(); got[0] != "keygen" {
		t.Errorf("Args() returned internal slice: args = %v", got)
	}

	if inv.ID() == "" {
		t.Error("ID is empty")
	}
	if inv.Capture() {
		t.Error("new invocation should not capture")
	}
	if inv.String() != "/usr/bin/nockchain-wallet keygen" {
		t.Errorf("String() = %q", inv.String())
	}
}

func TestWithCaptureCopies(t *testing.T) {
	inv := NewInvocation(ActionExport, "wallet", "export-keys")
	capturing := inv.WithCapture()

	if inv.Capture() {
		t.Error("WithCapture mutated the receiver")
	}
	if !capturing.Capture() {
		t.Error("copy does not capture")
	}
	if capturing.ID() != inv.ID() {
		t.Error("WithCapture should keep the invocation id")
	}
}

func TestInvocationIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewInvocation(ActionGenerate, "wallet", "keygen").ID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestResultSummary(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{"success", Result{Outcome: OutcomeSuccess}, "exit 0"},
		{"bare failure", Result{Outcome: OutcomeFailure, ExitCode: 7}, "exit 7"},
		{"diagnostic", Result{Outcome: OutcomeFailure, ExitCode: FailureCode, Diagnostic: "permission denied"}, "exit -1: permission denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}
