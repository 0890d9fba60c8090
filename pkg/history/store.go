// Package history keeps a local record of wallet tool runs. Only metadata is
// stored; tool output never reaches the database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modoterra/nockkeygen/pkg/core"
)

// Entry is one recorded invocation.
type Entry struct {
	ID          string       `json:"id"`
	Action      core.Action  `json:"action"`
	Tool        string       `json:"tool"`
	Args        []string     `json:"args"`
	Outcome     core.Outcome `json:"outcome"`
	ExitCode    int          `json:"exit_code"`
	Diagnostic  string       `json:"diagnostic,omitempty"`
	Destination string       `json:"destination,omitempty"`
	Lines       int          `json:"lines"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     time.Time    `json:"ended_at"`
}

// NewEntry builds an entry from an invocation and its result.
func NewEntry(inv core.Invocation, res core.Result, destination string) Entry {
	return Entry{
		ID:          inv.ID(),
		Action:      inv.Action(),
		Tool:        inv.Path(),
		Args:        inv.Args(),
		Outcome:     res.Outcome,
		ExitCode:    res.ExitCode,
		Diagnostic:  res.Diagnostic,
		Destination: destination,
		Lines:       res.Lines,
		StartedAt:   res.StartedAt,
		EndedAt:     res.EndedAt,
	}
}

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			tool TEXT NOT NULL,
			args TEXT NOT NULL DEFAULT '[]',
			outcome TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			diagnostic TEXT NOT NULL DEFAULT '',
			destination TEXT NOT NULL DEFAULT '',
			lines INTEGER NOT NULL DEFAULT 0,
			started_ms INTEGER NOT NULL,
			ended_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_started ON runs (started_ms DESC);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("history migration failed: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts an entry, replacing any entry with the same id.
func (s *Store) Record(ctx context.Context, e Entry) error {
	args, err := json.Marshal(e.Args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs
		(id, action, tool, args, outcome, exit_code, diagnostic, destination, lines, started_ms, ended_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			exit_code = excluded.exit_code,
			diagnostic = excluded.diagnostic,
			destination = excluded.destination,
			lines = excluded.lines,
			ended_ms = excluded.ended_ms`,
		e.ID, string(e.Action), e.Tool, string(args), string(e.Outcome), e.ExitCode,
		e.Diagnostic, e.Destination, e.Lines, e.StartedAt.UnixMilli(), e.EndedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record run %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
// A non-empty action restricts the result to runs of that action.
func (s *Store) List(ctx context.Context, limit int, action core.Action) ([]Entry, error) {
	query := `SELECT id, action, tool, args, outcome, exit_code, diagnostic, destination, lines, started_ms, ended_ms
		FROM runs`
	var args []any
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, string(action))
	}
	query += ` ORDER BY started_ms DESC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                  Entry
			act, outcome       string
			args               string
			startedMs, endedMs int64
		)
		if err := rows.Scan(&e.ID, &act, &e.Tool, &args, &outcome, &e.ExitCode,
			&e.Diagnostic, &e.Destination, &e.Lines, &startedMs, &endedMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(args), &e.Args); err != nil {
			return nil, fmt.Errorf("decode args of %s: %w", e.ID, err)
		}
		e.Action = core.Action(act)
		e.Outcome = core.Outcome(outcome)
		e.StartedAt = time.UnixMilli(startedMs)
		e.EndedAt = time.UnixMilli(endedMs)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
