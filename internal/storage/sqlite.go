package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazz-dev/smokeprobe/internal/harness"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at   TEXT    NOT NULL,
    finished_at  TEXT    NOT NULL,
    total        INTEGER NOT NULL,
    passed       INTEGER NOT NULL,
    failed       INTEGER NOT NULL,
    success_rate REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    name        TEXT    NOT NULL,
    status      TEXT    NOT NULL CHECK(status IN ('PASS', 'FAIL')),
    message     TEXT    NOT NULL DEFAULT '',
    data        TEXT    NOT NULL DEFAULT 'null',
    recorded_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_run_seq ON results(run_id, seq);
`

// Result is a stored check result.
type Result struct {
	Seq        int             `json:"seq"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Run is a stored run. Results is only populated by LatestRun and GetRun.
type Run struct {
	ID          int64     `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	SuccessRate float64   `json:"success_rate"`
	Results     []Result  `json:"results,omitempty"`
}

// OK reports whether no check failed in the run.
func (r Run) OK() bool {
	return r.Failed == 0
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertRun archives a report and returns the new run ID.
func (d *DB) InsertRun(ctx context.Context, rep harness.Report) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s := rep.Summary
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, total, passed, failed, success_rate) VALUES (?, ?, ?, ?, ?, ?)`,
		formatTime(rep.StartedAt),
		formatTime(rep.FinishedAt),
		s.Total, s.Passed, s.Failed, s.SuccessRate,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for i, r := range rep.Results {
		data, err := json.Marshal(r.Data)
		if err != nil {
			return 0, fmt.Errorf("encoding data for %q: %w", r.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (run_id, seq, name, status, message, data, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, i, r.Name, string(r.Status), r.Message, string(data), formatTime(r.Timestamp),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting result %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// LatestRun returns the most recent run with its results, or nil if none.
func (d *DB) LatestRun(ctx context.Context) (*Run, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, total, passed, failed, success_rate FROM runs ORDER BY id DESC LIMIT 1`)
	return d.runWithResults(ctx, row, "latest run")
}

// GetRun returns the run with the given ID and its results, or nil if none.
func (d *DB) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, total, passed, failed, success_rate FROM runs WHERE id = ?`, id)
	return d.runWithResults(ctx, row, fmt.Sprintf("run %d", id))
}

// ListRuns returns paginated runs, newest first, without results, plus the total count.
func (d *DB) ListRuns(ctx context.Context, limit, offset int) ([]Run, int, error) {
	var total int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, total, passed, failed, success_rate FROM runs ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, total, nil
}

func (d *DB) runWithResults(ctx context.Context, row *sql.Row, what string) (*Run, error) {
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", what, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT seq, name, status, message, data, recorded_at FROM results WHERE run_id = ? ORDER BY seq`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("querying results of %s: %w", what, err)
	}
	defer rows.Close()

	r.Results = []Result{}
	for rows.Next() {
		var res Result
		var data, recordedAt string
		if err := rows.Scan(&res.Seq, &res.Name, &res.Status, &res.Message, &data, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		res.Data = json.RawMessage(data)
		if res.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		r.Results = append(r.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var startedAt, finishedAt string
	err := row.Scan(&r.ID, &startedAt, &finishedAt, &r.Total, &r.Passed, &r.Failed, &r.SuccessRate)
	if err != nil {
		return nil, err
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Fallback to RFC3339 without sub-second precision.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
	}
	return t, nil
}
