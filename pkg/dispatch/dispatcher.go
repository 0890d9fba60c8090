// Package dispatch maps user actions onto wallet tool invocations and turns
// their results into log entries and notices.
//
// A Dispatcher is owned by a single control loop. Generate, Export and Handle
// must all be called from that loop; workers only talk to it through the
// channel returned by Events.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/modoterra/nockkeygen/pkg/core"
	"github.com/modoterra/nockkeygen/pkg/history"
	"github.com/modoterra/nockkeygen/pkg/runner"
)

// DefaultEventBuffer is the capacity of the worker event channel.
const DefaultEventBuffer = 256

var (
	// ErrBusy is returned when the action already has an invocation in flight.
	ErrBusy = errors.New("operation already running")
	// ErrNoDestination is returned when Export is called without a file.
	ErrNoDestination = errors.New("no export destination")
)

// Runner runs one invocation and reports to sink. *runner.Runner implements it.
type Runner interface {
	Run(ctx context.Context, inv core.Invocation, sink core.Sink) core.Result
}

// Recorder persists completed runs. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options configures a Dispatcher.
type Options struct {
	Tool        string // name on PATH or explicit path
	Runner      Runner
	Recorder    Recorder // optional
	FileMode    os.FileMode
	EventBuffer int
	Logger      *slog.Logger
}

type operation struct {
	state State
	inv   core.Invocation
	dest  string
}

// Dispatcher serializes invocations per action.
type Dispatcher struct {
	tool         string
	runner       Runner
	recorder     Recorder
	fileMode     os.FileMode
	logger       *slog.Logger
	events       chan Event
	ops          map[core.Action]*operation
	onTransition TransitionFunc
}

// New resolves the wallet tool and builds a Dispatcher. A tool that cannot be
// found yields an error wrapping runner.ErrToolNotFound; nothing is started.
func New(opts Options) (*Dispatcher, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("dispatch: runner is required")
	}
	tool, err := runner.LookPath(opts.Tool)
	if err != nil {
		return nil, err
	}
	if opts.FileMode == 0 {
		opts.FileMode = DefaultFileMode
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Dispatcher{
		tool:     tool,
		runner:   opts.Runner,
		recorder: opts.Recorder,
		fileMode: opts.FileMode,
		logger:   opts.Logger,
		events:   make(chan Event, opts.EventBuffer),
		ops:      make(map[core.Action]*operation, len(core.Actions)),
	}
	for _, a := range core.Actions {
		d.ops[a] = &operation{state: StateIdle}
	}
	return d, nil
}

// Tool returns the resolved absolute path of the wallet tool.
func (d *Dispatcher) Tool() string { return d.tool }

// Events is the ordered stream of worker events for the control loop.
func (d *Dispatcher) Events() <-chan Event { return d.events }

// OnTransition registers a hook called on every state change.
func (d *Dispatcher) OnTransition(fn TransitionFunc) { d.onTransition = fn }

// State returns the current state of an action.
func (d *Dispatcher) State(a core.Action) State {
	if op, ok := d.ops[a]; ok {
		return op.state
	}
	return StateIdle
}

// Enabled reports whether the control for an action may be triggered.
func (d *Dispatcher) Enabled(a core.Action) bool { return d.State(a) == StateIdle }

// Running reports whether any action has an invocation in flight.
func (d *Dispatcher) Running() bool {
	for _, op := range d.ops {
		if op.state == StateRunning {
			return true
		}
	}
	return false
}

// Generate starts `<tool> keygen`.
func (d *Dispatcher) Generate(ctx context.Context) (Update, error) {
	upd, err := d.start(ctx, core.ActionGenerate, "")
	if err != nil {
		return upd, err
	}
	upd.Entries = append(upd.Entries, Entry{Level: LevelInfo, Action: core.ActionGenerate, Text: "Generating keys..."})
	return upd, nil
}

// Export starts `<tool> export-keys`, capturing its stdout for dest.
func (d *Dispatcher) Export(ctx context.Context, dest string) (Update, error) {
	if dest == "" {
		return Update{Action: core.ActionExport, State: d.State(core.ActionExport)}, ErrNoDestination
	}
	upd, err := d.start(ctx, core.ActionExport, dest)
	if err != nil {
		return upd, err
	}
	upd.Entries = append(upd.Entries, Entry{Level: LevelInfo, Action: core.ActionExport, Text: "Exporting wallet keys to " + dest + "..."})
	upd.Notice = &Notice{
		Kind:  NoticeInfo,
		Title: "Saving Keys",
		Body:  "Saving wallet keys. Please do NOT close the application until it completes.",
	}
	return upd, nil
}

func (d *Dispatcher) start(ctx context.Context, action core.Action, dest string) (Update, error) {
	op := d.ops[action]
	if op.state != StateIdle {
		d.logger.Debug("rejected while running", "action", action, "invocation", op.inv.ID())
		return Update{Action: action, InvocationID: op.inv.ID(), State: op.state}, ErrBusy
	}

	inv := core.NewInvocation(action, d.tool, action.Subcommand())
	if action == core.ActionExport {
		inv = inv.WithCapture()
	}
	op.inv = inv
	op.dest = dest
	d.transition(action, op, StateRunning)

	sink := channelSink{action: action, id: inv.ID(), ch: d.events}
	go d.runner.Run(ctx, inv, sink)

	d.logger.Info("operation started", "action", action, "invocation", inv.ID())
	return Update{Action: action, InvocationID: inv.ID(), State: StateRunning}, nil
}

// Handle applies a worker event. It must run on the control loop.
func (d *Dispatcher) Handle(ev Event) Update {
	op, ok := d.ops[ev.Action]
	if !ok || op.state != StateRunning || op.inv.ID() != ev.InvocationID {
		d.logger.Warn("stale event ignored", "action", ev.Action, "invocation", ev.InvocationID)
		return Update{Action: ev.Action, InvocationID: ev.InvocationID, State: d.State(ev.Action)}
	}

	upd := Update{Action: ev.Action, InvocationID: ev.InvocationID, State: StateRunning}
	switch ev.Kind {
	case EventLine:
		upd.Entries = []Entry{{Level: LevelOutput, Action: ev.Action, Text: ev.Line.Text}}
		return upd
	case EventDone:
		return d.complete(op, ev.Result)
	default:
		return upd
	}
}

func (d *Dispatcher) complete(op *operation, res core.Result) Update {
	inv := op.inv
	action := inv.Action()
	upd := Update{Action: action, InvocationID: inv.ID(), Result: &res}

	if res.Succeeded() {
		d.transition(action, op, StateSucceeded)
	} else {
		d.transition(action, op, StateFailed)
	}

	switch {
	case action == core.ActionExport && res.Succeeded():
		d.completeExport(&upd, op.dest, res)
	case res.Succeeded():
		upd.Entries = append(upd.Entries, Entry{Level: LevelInfo, Action: action, Text: "[INFO] Key generation completed."})
		upd.Notice = &Notice{Kind: NoticeSuccess, Title: "Keys Generated", Body: "Key generation completed."}
	default:
		text := fmt.Sprintf("[ERROR] %s failed (%s).", action.Title(), res.Summary())
		upd.Entries = append(upd.Entries, Entry{Level: LevelError, Action: action, Text: text})
		upd.Notice = &Notice{
			Kind:  NoticeError,
			Title: "Error",
			Body:  fmt.Sprintf("%s failed.\n%s", action.Title(), res.Summary()),
		}
	}

	d.record(inv, res, op.dest)

	op.inv = core.Invocation{}
	op.dest = ""
	d.transition(action, op, StateIdle)
	upd.State = StateIdle
	return upd
}

// completeExport writes the captured stdout of the export run to dest.
func (d *Dispatcher) completeExport(upd *Update, dest string, res core.Result) {
	if err := writeFileAtomic(dest, res.Stdout, d.fileMode); err != nil {
		d.logger.Error("save export", "dest", dest, "err", err)
		upd.Entries = append(upd.Entries,
			Entry{Level: LevelInfo, Action: core.ActionExport, Text: "[INFO] Key export completed by the wallet tool."},
			Entry{Level: LevelError, Action: core.ActionExport, Text: fmt.Sprintf("[ERROR] Failed to save keys to %s: %v", dest, err)},
		)
		upd.Notice = &Notice{
			Kind:  NoticePersistError,
			Title: "Error",
			Body:  fmt.Sprintf("The export succeeded but the keys could not be saved:\n%v", err),
		}
		return
	}
	d.logger.Info("export saved", "dest", dest, "bytes", len(res.Stdout))
	upd.Entries = append(upd.Entries, Entry{Level: LevelInfo, Action: core.ActionExport, Text: "[INFO] Keys saved to " + dest})
	upd.Notice = &Notice{Kind: NoticeSuccess, Title: "Saved", Body: "Wallet keys saved to:\n" + dest}
}

func (d *Dispatcher) record(inv core.Invocation, res core.Result, dest string) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(context.Background(), history.NewEntry(inv, res, dest)); err != nil {
		d.logger.Warn("record history", "invocation", inv.ID(), "err", err)
	}
}

func (d *Dispatcher) transition(action core.Action, op *operation, to State) {
	from := op.state
	op.state = to
	if d.onTransition != nil {
		d.onTransition(action, from, to)
	}
}
