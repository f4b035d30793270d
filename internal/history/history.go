// Package history is the run ledger: every `run` invocation is recorded
// in a local SQLite database so past outcomes can be listed later.
// Recording is best-effort and must never fail a run.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	env         TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	commands    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at DESC);
`

// CommandRecord is one command of a recorded run.
type CommandRecord struct {
	Argv     []string `json:"argv"`
	ExitCode int      `json:"exit_code"`
	Ignored  bool     `json:"ignored,omitempty"`
	Killed   bool     `json:"killed,omitempty"`
}

// Record is one persisted environment run.
type Record struct {
	ID         string
	Env        string
	StartedAt  time.Time
	FinishedAt time.Time
	Failed     bool
	Commands   []CommandRecord
}

// Store is the SQLite-backed ledger.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the ledger location next to the config file.
func DefaultPath(confDir string) string {
	return filepath.Join(confDir, ".matrix", "history.db")
}

// Open opens (and if needed creates) the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add persists a run record, assigning it an id when empty.
func (s *Store) Add(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	commands, err := json.Marshal(rec.Commands)
	if err != nil {
		return "", fmt.Errorf("encode commands: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, env, started_at, finished_at, failed, commands) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Env, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(), boolInt(rec.Failed), string(commands))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return rec.ID, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, env, started_at, finished_at, failed, commands FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec      Record
			started  int64
			finished int64
			failed   int
			commands string
		)
		if err := rows.Scan(&rec.ID, &rec.Env, &started, &finished, &failed, &commands); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		rec.Failed = failed != 0
		if err := json.Unmarshal([]byte(commands), &rec.Commands); err != nil {
			return nil, fmt.Errorf("decode commands for run %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
