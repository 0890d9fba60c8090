package dispatch

import "github.com/modoterra/nockkeygen/pkg/core"

// EventKind distinguishes worker events.
type EventKind int

const (
	EventLine EventKind = iota
	EventDone
)

// Event is sent by a worker to the control loop. Line is set for EventLine,
// Result for EventDone.
type Event struct {
	Kind         EventKind
	Action       core.Action
	InvocationID string
	Line         core.OutputLine
	Result       core.Result
}

// channelSink forwards runner callbacks onto the dispatcher event channel.
// Sends block so no line is ever dropped.
type channelSink struct {
	action core.Action
	id     string
	ch     chan<- Event
}

func (s channelSink) Line(l core.OutputLine) {
	s.ch <- Event{Kind: EventLine, Action: s.action, InvocationID: s.id, Line: l}
}

func (s channelSink) Done(r core.Result) {
	s.ch <- Event{Kind: EventDone, Action: s.action, InvocationID: s.id, Result: r}
}

// Level classifies a log entry.
type Level string

const (
	LevelOutput Level = "output"
	LevelInfo   Level = "info"
	LevelError  Level = "error"
)

// Entry is one line for the append-only log.
type Entry struct {
	Level  Level
	Action core.Action
	Text   string
}

// NoticeKind classifies a notice.
type NoticeKind string

const (
	NoticeInfo         NoticeKind = "info"
	NoticeSuccess      NoticeKind = "success"
	NoticeError        NoticeKind = "error"
	NoticePersistError NoticeKind = "persist-error"
)

// Notice is a blocking notification the surface should show.
type Notice struct {
	Kind  NoticeKind
	Title string
	Body  string
}

// Update describes what the surface must render after a dispatcher call.
type Update struct {
	Action       core.Action
	InvocationID string
	State        State
	Entries      []Entry
	Notice       *Notice
	Result       *core.Result // set once the operation has completed
}
