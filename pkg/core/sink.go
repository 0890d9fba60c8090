package core

// Sink receives the events of one invocation. Line is called once per output
// line in arrival order; Done is called exactly once, after the last Line.
type Sink interface {
	Line(OutputLine)
	Done(Result)
}
