package core

// OutputLine is one sanitized, non-empty line of tool output.
type OutputLine struct {
	InvocationID string `json:"invocation_id"`
	Seq          int    `json:"seq"` // 1-based arrival order within the invocation
	TsUnixMs     int64  `json:"ts_unix_ms"`
	Text         string `json:"text"`
}
