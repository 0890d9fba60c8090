package model

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/nockkeygen/pkg/config"
	"github.com/modoterra/nockkeygen/pkg/core"
	"github.com/modoterra/nockkeygen/pkg/dispatch"
)

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModePrompt
	ModeConfirmQuit
	ModeHelp
)

// Swapped out in tests.
var writeClipboard = clipboard.WriteAll

// Options configures the TUI.
type Options struct {
	// Context is the parent of every invocation. Cancelling it stops them.
	Context    context.Context
	Dispatcher *dispatch.Dispatcher
	ExportPath string // destination offered by the save prompt
	Logger     *slog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	disp   *dispatch.Dispatcher
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	// Log
	entries []dispatch.Entry
	logs    viewport.Model

	// Export
	defaultDest string
	pendingDest string
	lastSaved   string

	// UI
	mode     Mode
	prompt   *SavePrompt
	notices  []dispatch.Notice
	spinner  spinner.Model
	width    int
	height   int
	quitting bool

	statusMsg string
}

// New creates a new TUI app model.
func New(opts Options) App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = runningStyle

	return App{
		disp:        opts.Dispatcher,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		logs:        viewport.New(80, 10),
		defaultDest: opts.ExportPath,
		spinner:     sp,
		mode:        ModeNormal,
	}
}

// Init starts the event pump.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(a.disp.Events()),
		a.spinner.Tick,
		tea.SetWindowTitle("Nockchain Key Generator"),
	)
}

// eventMsg carries one worker event to the control loop.
type eventMsg dispatch.Event

// waitForEvent reads the next worker event. It is re-armed after every event
// so exactly one read is outstanding and arrival order is kept.
func waitForEvent(ch <-chan dispatch.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case eventMsg:
		a.apply(a.disp.Handle(dispatch.Event(msg)))
		if a.quitting && !a.disp.Running() {
			return a, tea.Quit
		}
		return a, waitForEvent(a.disp.Events())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.logs, cmd = a.logs.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" && a.mode != ModeConfirmQuit {
		return a.requestQuit()
	}

	// Save prompt
	if a.mode == ModePrompt && a.prompt != nil {
		return a.prompt.HandleKey(a, msg)
	}

	// Quit confirmation
	if a.mode == ModeConfirmQuit {
		switch msg.String() {
		case "y", "Y", "ctrl+c":
			a.mode = ModeNormal
			return a.stopAndQuit()
		default:
			a.mode = ModeNormal
			a.statusMsg = "quit cancelled"
			return a, nil
		}
	}

	// Help
	if a.mode == ModeHelp {
		switch msg.String() {
		case "?", "esc", "q", "enter":
			a.mode = ModeNormal
		}
		return a, nil
	}

	// Notice
	if len(a.notices) > 0 {
		switch msg.String() {
		case "enter", "esc", " ":
			a.notices = a.notices[1:]
		}
		return a, nil
	}

	// Normal mode
	switch msg.String() {
	case "q":
		return a.requestQuit()

	case "g":
		if a.quitting {
			return a, nil
		}
		upd, err := a.disp.Generate(a.ctx)
		if errors.Is(err, dispatch.ErrBusy) {
			a.statusMsg = "key generation already running"
			return a, nil
		}
		a.apply(upd)
		a.statusMsg = ""

	case "e":
		if a.quitting {
			return a, nil
		}
		if !a.disp.Enabled(core.ActionExport) {
			a.statusMsg = "key export already running"
			return a, nil
		}
		a.prompt = NewSavePrompt(a.defaultDest)
		a.mode = ModePrompt
		return a, a.prompt.Focus()

	case "c":
		a.copySavedPath()

	case "?":
		a.mode = ModeHelp

	default:
		var cmd tea.Cmd
		a.logs, cmd = a.logs.Update(msg)
		return a, cmd
	}

	return a, nil
}

// startExport is called by the save prompt once a destination is chosen.
func (a App) startExport(dest string) (tea.Model, tea.Cmd) {
	dest = config.ExpandHome(strings.TrimSpace(dest))
	if dest == "" {
		a.statusMsg = "save cancelled"
		return a, nil
	}
	upd, err := a.disp.Export(a.ctx, dest)
	if err != nil {
		a.statusMsg = "export: " + err.Error()
		return a, nil
	}
	a.pendingDest = dest
	a.apply(upd)
	a.statusMsg = ""
	return a, nil
}

func (a App) requestQuit() (tea.Model, tea.Cmd) {
	if a.disp.Running() {
		a.mode = ModeConfirmQuit
		return a, nil
	}
	a.cancel()
	return a, tea.Quit
}

// stopAndQuit cancels in-flight invocations; the program exits once their
// completions have been handled.
func (a App) stopAndQuit() (tea.Model, tea.Cmd) {
	a.quitting = true
	a.cancel()
	if !a.disp.Running() {
		return a, tea.Quit
	}
	a.statusMsg = "stopping wallet tool..."
	a.logger.Info("quit requested while running; terminating")
	return a, nil
}

func (a *App) apply(upd dispatch.Update) {
	if len(upd.Entries) > 0 {
		a.entries = append(a.entries, upd.Entries...)
		a.refreshLogs()
	}
	if upd.Result != nil && upd.Action == core.ActionExport {
		if upd.Notice != nil && upd.Notice.Kind == dispatch.NoticeSuccess {
			a.lastSaved = a.pendingDest
		}
		a.pendingDest = ""
	}
	if upd.Notice != nil {
		a.pushNotice(*upd.Notice)
	}
}

// pushNotice queues a notice. A pending informational notice is replaced by
// whatever follows it.
func (a *App) pushNotice(n dispatch.Notice) {
	if last := len(a.notices) - 1; last >= 0 && a.notices[last].Kind == dispatch.NoticeInfo {
		a.notices[last] = n
		return
	}
	a.notices = append(a.notices, n)
}

func (a *App) copySavedPath() {
	if a.lastSaved == "" {
		a.statusMsg = "nothing saved yet"
		return
	}
	if err := writeClipboard(a.lastSaved); err != nil {
		a.logger.Warn("clipboard", "err", err)
		a.statusMsg = "clipboard unavailable"
		return
	}
	a.statusMsg = "copied " + a.lastSaved
}

func (a *App) resize() {
	w, h := a.logSize()
	a.logs.Width = w - 2 // pane padding
	a.logs.Height = h
	a.refreshLogs()
}

func (a *App) refreshLogs() {
	a.logs.SetContent(renderEntries(a.entries, a.logs.Width))
	a.logs.GotoBottom()
}
