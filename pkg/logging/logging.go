// Package logging builds the process logger: a text handler on a file or
// stderr, optionally mirrored to the systemd journal.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Journald modes.
const (
	JournaldAuto = "auto"
	JournaldOn   = "on"
	JournaldOff  = "off"
)

// Options configures New.
type Options struct {
	Level    string    // debug|info|warn|error; empty means info
	File     string    // log file; empty means Writer
	Writer   io.Writer // used when File is empty; nil means stderr
	Journald string    // auto|on|off; empty means off
}

// New returns a logger and a close function for any file it opened.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	closer := func() error { return nil }
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = f.Close
	}

	var handler slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	switch opts.Journald {
	case "", JournaldOff:
	case JournaldAuto:
		if journalEnabled() {
			handler = fanout{handler, newJournalHandler(level)}
		}
	case JournaldOn:
		if !journalEnabled() {
			_ = closer()
			return nil, nil, fmt.Errorf("journald requested but the journal socket is not available")
		}
		handler = fanout{handler, newJournalHandler(level)}
	default:
		_ = closer()
		return nil, nil, fmt.Errorf("unknown journald mode %q", opts.Journald)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel maps a config level name onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
