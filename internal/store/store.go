// Package store persists runs, step results and review state in SQLite so
// documentation can be regenerated without re-running the application.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/executor"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	wallet      TEXT NOT NULL,
	sections    TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS step_results (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	wallet     TEXT NOT NULL,
	section    TEXT NOT NULL,
	step       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	action     TEXT NOT NULL,
	status     TEXT NOT NULL,
	failure    TEXT,
	image_path TEXT NOT NULL DEFAULT '',
	ts         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_step_results_wallet ON step_results(wallet, section, step);

CREATE TABLE IF NOT EXISTS review_state (
	wallet       TEXT PRIMARY KEY,
	state        TEXT NOT NULL,
	staged_at    TEXT,
	published_at TEXT
);
`

// Store wraps the state database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records a run and its results in one transaction
func (s *Store) SaveRun(ctx context.Context, run *executor.Run) error {
	sections, err := json.Marshal(run.Sections)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, wallet, sections, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Wallet, string(sections), formatTime(run.StartedAt), formatTime(run.FinishedAt)); err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO step_results
		(run_id, wallet, section, step, position, action, status, failure, image_path, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		var failure sql.NullString
		if r.Failure != nil {
			data, err := json.Marshal(r.Failure)
			if err != nil {
				return err
			}
			failure = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, run.Wallet, r.Section, r.Step, r.Position,
			r.Action.String(), string(r.Status), failure, r.ImagePath, formatTime(r.Timestamp)); err != nil {
			return fmt.Errorf("store: insert result: %w", err)
		}
	}

	return tx.Commit()
}

// RunSummary describes a stored run
type RunSummary struct {
	ID         string
	Wallet     string
	Sections   []string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      int
	Failed     int
}

// Runs lists the runs of a wallet, newest first
func (s *Store) Runs(ctx context.Context, wallet string) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.wallet, r.sections, r.started_at, r.finished_at,
		       COUNT(sr.id), COALESCE(SUM(CASE WHEN sr.status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM runs r LEFT JOIN step_results sr ON sr.run_id = r.id
		WHERE r.wallet = ?
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id DESC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs                RunSummary
			sections          string
			started, finished string
		)
		if err := rows.Scan(&rs.ID, &rs.Wallet, &sections, &started, &finished, &rs.Steps, &rs.Failed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sections), &rs.Sections); err != nil {
			return nil, fmt.Errorf("store: run %s sections: %w", rs.ID, err)
		}
		rs.StartedAt = parseTime(started)
		rs.FinishedAt = parseTime(finished)
		out = append(out, rs)
	}
	return out, rows.Err()
}

// RunResults returns the results of one run in execution order
func (s *Store) RunResults(ctx context.Context, runID string) ([]workflow.StepResult, error) {
	return s.queryResults(ctx, `WHERE run_id = ? ORDER BY id`, runID)
}

// LatestResults returns the most recent result of every step ever recorded
// for wallet, so partial runs merge over earlier complete ones
func (s *Store) LatestResults(ctx context.Context, wallet string) ([]workflow.StepResult, error) {
	return s.queryResults(ctx, `WHERE id IN (
		SELECT MAX(id) FROM step_results WHERE wallet = ? GROUP BY section, step
	) ORDER BY id`, wallet)
}

func (s *Store) queryResults(ctx context.Context, where string, args ...interface{}) ([]workflow.StepResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, section, step, position, action, status,
		failure, image_path, ts FROM step_results `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query results: %w", err)
	}
	defer rows.Close()

	var out []workflow.StepResult
	for rows.Next() {
		var (
			r       workflow.StepResult
			action  string
			status  string
			failure sql.NullString
			ts      string
		)
		if err := rows.Scan(&r.RunID, &r.Section, &r.Step, &r.Position, &action, &status, &failure, &r.ImagePath, &ts); err != nil {
			return nil, err
		}
		if r.Action, err = workflow.ParseActionKind(action); err != nil {
			return nil, err
		}
		r.Status = workflow.Status(status)
		if failure.Valid {
			r.Failure = &workflow.Failure{}
			if err := json.Unmarshal([]byte(failure.String), r.Failure); err != nil {
				return nil, fmt.Errorf("store: failure detail: %w", err)
			}
		}
		r.Timestamp = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Wallets lists wallets that have recorded runs
func (s *Store) Wallets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT wallet FROM runs ORDER BY wallet`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// State is a wallet's position in the review pipeline
type State string

const (
	StateStaging   State = "staging"
	StatePublished State = "published"
)

// ReviewState is the persisted review position of one wallet
type ReviewState struct {
	Wallet      string
	State       State
	StagedAt    time.Time
	PublishedAt time.Time
}

// ReviewState returns the stored state, or a zero state with ok false
func (s *Store) ReviewState(ctx context.Context, wallet string) (ReviewState, bool, error) {
	var (
		st                ReviewState
		state             string
		staged, published sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT wallet, state, staged_at, published_at FROM review_state WHERE wallet = ?`, wallet).
		Scan(&st.Wallet, &state, &staged, &published)
	if err == sql.ErrNoRows {
		return ReviewState{Wallet: wallet}, false, nil
	}
	if err != nil {
		return ReviewState{}, false, fmt.Errorf("store: review state: %w", err)
	}
	st.State = State(state)
	if staged.Valid {
		st.StagedAt = parseTime(staged.String)
	}
	if published.Valid {
		st.PublishedAt = parseTime(published.String)
	}
	return st, true, nil
}

// PutReviewState inserts or replaces a wallet's review state
func (s *Store) PutReviewState(ctx context.Context, st ReviewState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_state (wallet, state, staged_at, published_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(wallet) DO UPDATE SET
			state = excluded.state,
			staged_at = excluded.staged_at,
			published_at = excluded.published_at`,
		st.Wallet, string(st.State), nullTime(st.StagedAt), nullTime(st.PublishedAt))
	if err != nil {
		return fmt.Errorf("store: put review state: %w", err)
	}
	return nil
}

// timeLayout keeps a fixed fraction width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}
