package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/nockkeygen/pkg/core"
	"github.com/modoterra/nockkeygen/pkg/dispatch"
	"github.com/modoterra/nockkeygen/pkg/logging"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	lines   []string
	stdout  []byte
	code    int
}

func (f *fakeRunner) Run(ctx context.Context, inv core.Invocation, sink core.Sink) core.Result {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	res := core.Result{InvocationID: inv.ID(), Action: inv.Action(), Outcome: core.OutcomeSuccess}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			res.Outcome, res.ExitCode, res.Diagnostic = core.OutcomeFailure, core.FailureCode, "terminated: signal: terminated"
			sink.Done(res)
			return res
		}
	}
	for i, l := range f.lines {
		sink.Line(core.OutputLine{InvocationID: inv.ID(), Seq: i + 1, Text: l})
	}
	if f.code != 0 {
		res.Outcome, res.ExitCode = core.OutcomeFailure, f.code
	}
	if inv.Capture() {
		res.Stdout = f.stdout
	}
	sink.Done(res)
	return res
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestApp(t *testing.T, r *fakeRunner) (App, *dispatch.Dispatcher) {
	t.Helper()
	tool := filepath.Join(t.TempDir(), "nockchain-wallet")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	d, err := dispatch.New(dispatch.Options{Tool: tool, Runner: r, Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	app := New(Options{
		Dispatcher: d,
		ExportPath: filepath.Join(t.TempDir(), "keys.export"),
		Logger:     logging.Discard(),
	})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App), d
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, a App, keys ...string) (App, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var m tea.Model
		m, cmd = a.Update(key(k))
		a = m.(App)
	}
	return a, cmd
}

// pump feeds worker events through Update until nothing is running, and
// returns the command produced by the last event.
func pump(t *testing.T, a App, d *dispatch.Dispatcher) (App, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	deadline := time.After(10 * time.Second)
	for d.Running() {
		select {
		case ev := <-d.Events():
			var m tea.Model
			m, cmd = a.Update(eventMsg(ev))
			a = m.(App)
		case <-deadline:
			t.Fatal("timed out waiting for completion")
		}
	}
	return a, cmd
}

func logText(a App) string {
	var lines []string
	for _, e := range a.entries {
		lines = append(lines, e.Text)
	}
	return strings.Join(lines, "\n")
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestGenerateKeyRunsTool(t *testing.T) {
	r := &fakeRunner{lines: []string{"seed phrase: alpha beta", "pubkey: 3xyz"}}
	a, d := newTestApp(t, r)

	a, _ = press(t, a, "g")
	if !strings.Contains(logText(a), "Generating keys...") {
		t.Errorf("log = %q", logText(a))
	}
	a, cmd := pump(t, a, d)

	want := "Generating keys...\nseed phrase: alpha beta\npubkey: 3xyz\n[INFO] Key generation completed."
	if got := logText(a); got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
	if len(a.notices) != 1 || a.notices[0].Kind != dispatch.NoticeSuccess {
		t.Errorf("notices = %+v", a.notices)
	}
	if cmd == nil {
		t.Error("event pump was not re-armed")
	}
	if !a.logs.AtBottom() {
		t.Error("log not scrolled to the newest line")
	}

	// The notice is dismissed with enter.
	a, _ = press(t, a, "enter")
	if len(a.notices) != 0 {
		t.Errorf("notice not dismissed: %+v", a.notices)
	}
}

func TestGenerateWhileRunningIsRejected(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	a, d := newTestApp(t, r)

	a, _ = press(t, a, "g", "g")
	if a.statusMsg != "key generation already running" {
		t.Errorf("status = %q", a.statusMsg)
	}

	close(r.release)
	a, _ = pump(t, a, d)
	if n := r.callCount(); n != 1 {
		t.Errorf("tool started %d times, want 1", n)
	}
	if !d.Enabled(core.ActionGenerate) {
		t.Error("generate not re-enabled")
	}
}

func TestFailureShowsError(t *testing.T) {
	r := &fakeRunner{code: 7}
	a, d := newTestApp(t, r)

	a, _ = press(t, a, "g")
	a, _ = pump(t, a, d)

	if len(a.notices) != 1 || a.notices[0].Kind != dispatch.NoticeError {
		t.Fatalf("notices = %+v", a.notices)
	}
	last := a.entries[len(a.entries)-1]
	if last.Level != dispatch.LevelError || !strings.Contains(last.Text, "exit 7") {
		t.Errorf("last entry = %+v", last)
	}
}

func TestSavePromptExportsToChosenPath(t *testing.T) {
	r := &fakeRunner{stdout: []byte("exported keys\n")}
	a, d := newTestApp(t, r)

	a, _ = press(t, a, "e")
	if a.mode != ModePrompt || a.prompt == nil {
		t.Fatalf("mode = %v, want prompt", a.mode)
	}
	if a.prompt.Value() != a.defaultDest {
		t.Errorf("prompt = %q, want default %q", a.prompt.Value(), a.defaultDest)
	}

	a, _ = press(t, a, "enter")
	if a.mode != ModeNormal {
		t.Errorf("mode = %v after enter", a.mode)
	}
	if len(a.notices) != 1 || a.notices[0].Title != "Saving Keys" {
		t.Errorf("pre-notice = %+v", a.notices)
	}
	a, _ = pump(t, a, d)

	data, err := os.ReadFile(a.defaultDest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "exported keys\n" {
		t.Errorf("saved %q", data)
	}
	if a.lastSaved != a.defaultDest {
		t.Errorf("lastSaved = %q", a.lastSaved)
	}
	// The completion notice replaces the pending informational one.
	if len(a.notices) != 1 || a.notices[0].Kind != dispatch.NoticeSuccess {
		t.Errorf("notices = %+v", a.notices)
	}
}

func TestSavePromptCancel(t *testing.T) {
	r := &fakeRunner{}
	a, _ := newTestApp(t, r)

	a, _ = press(t, a, "e", "esc")
	if a.mode != ModeNormal || a.prompt != nil {
		t.Errorf("mode = %v prompt = %v", a.mode, a.prompt)
	}
	if r.callCount() != 0 {
		t.Error("tool started after cancel")
	}
}

func TestCopySavedPath(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { writeClipboard = orig })

	r := &fakeRunner{stdout: []byte("k")}
	a, d := newTestApp(t, r)

	a, _ = press(t, a, "c")
	if a.statusMsg != "nothing saved yet" {
		t.Errorf("status = %q", a.statusMsg)
	}

	a, _ = press(t, a, "e", "enter")
	a, _ = pump(t, a, d)
	a, _ = press(t, a, "enter", "c")
	if copied != a.defaultDest {
		t.Errorf("copied %q, want %q", copied, a.defaultDest)
	}

	writeClipboard = func(string) error { return errors.New("no display") }
	a, _ = press(t, a, "c")
	if a.statusMsg != "clipboard unavailable" {
		t.Errorf("status = %q", a.statusMsg)
	}
}

func TestQuitWhenIdle(t *testing.T) {
	a, _ := newTestApp(t, &fakeRunner{})

	_, cmd := press(t, a, "q")
	if !isQuit(cmd) {
		t.Error("q did not quit while idle")
	}
}

func TestQuitWhileRunningAsksFirst(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	a, d := newTestApp(t, r)

	a, _ = press(t, a, "g", "q")
	if a.mode != ModeConfirmQuit {
		t.Fatalf("mode = %v, want confirm", a.mode)
	}
	a, cmd := press(t, a, "n")
	if a.mode != ModeNormal || isQuit(cmd) {
		t.Errorf("declining quit: mode = %v", a.mode)
	}

	a, _ = press(t, a, "q", "y")
	if !a.quitting {
		t.Fatal("not quitting after confirmation")
	}
	a, cmd = pump(t, a, d)
	if !isQuit(cmd) {
		t.Error("did not quit once the tool stopped")
	}
	if !strings.Contains(logText(a), "failed") {
		t.Errorf("log = %q", logText(a))
	}
}

func TestParentContextStopsInvocations(t *testing.T) {
	tool := filepath.Join(t.TempDir(), "nockchain-wallet")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{release: make(chan struct{})}
	d, err := dispatch.New(dispatch.Options{Tool: tool, Runner: r, Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(Options{Context: parent, Dispatcher: d, Logger: logging.Discard()})

	press(t, a, "g")
	if !d.Running() {
		t.Fatal("generate did not start")
	}
	cancel()

	select {
	case ev := <-d.Events():
		upd := d.Handle(ev)
		if upd.Result == nil || upd.Result.Succeeded() {
			t.Errorf("update = %+v, want a failed result", upd)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("invocation ignored parent cancellation")
	}
	if d.Running() {
		t.Error("dispatcher still running")
	}
}

func TestHelpToggle(t *testing.T) {
	a, _ := newTestApp(t, &fakeRunner{})

	a, _ = press(t, a, "?")
	if a.mode != ModeHelp {
		t.Fatalf("mode = %v", a.mode)
	}
	if a.View() == "" {
		t.Error("empty help view")
	}
	a, _ = press(t, a, "?")
	if a.mode != ModeNormal {
		t.Errorf("mode = %v", a.mode)
	}
}

func TestViewShowsToolAndLog(t *testing.T) {
	r := &fakeRunner{lines: []string{"hello from wallet"}}
	a, d := newTestApp(t, r)

	if v := a.View(); !strings.Contains(v, d.Tool()) {
		t.Errorf("view does not show tool path:\n%s", v)
	}
	a, _ = press(t, a, "g")
	a, _ = pump(t, a, d)
	a, _ = press(t, a, "enter")
	if v := a.View(); !strings.Contains(v, "hello from wallet") {
		t.Errorf("view missing output:\n%s", v)
	}
}
