// Package store persists evaluation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"eemeter/internal/report"
)

var ErrNotFound = errors.New("run not found")

// Run is one stored evaluation.
type Run struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Evaluated []string       `json:"evaluated"`
	Summary   report.Summary `json:"summary"`
}

// Store is what the API and CLI need from run persistence.
type Store interface {
	SaveRun(ctx context.Context, s report.Summary) (Run, error)
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	DeleteRun(ctx context.Context, id string) error
	Close() error
}

// SQLiteStore implements Store with the pure Go modernc.org/sqlite driver.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	evaluated TEXT NOT NULL,
	summary TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at);`

// NewSQLite opens or creates the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Printf("[store] could not set WAL mode: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// SaveRun assigns a new ID and stores s under it.
func (s *SQLiteStore) SaveRun(ctx context.Context, sum report.Summary) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Name:      sum.Name,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}
	for _, ft := range sum.Evaluated {
		run.Evaluated = append(run.Evaluated, string(ft))
	}
	sum.RunID = run.ID
	run.Summary = sum

	raw, err := json.Marshal(sum)
	if err != nil {
		return Run{}, fmt.Errorf("encode summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs(id, name, created_at, evaluated, summary) VALUES(?,?,?,?,?)`,
		run.ID, run.Name, run.CreatedAt.Format(time.RFC3339), strings.Join(run.Evaluated, ","), string(raw))
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at, evaluated, summary FROM runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// ListRuns returns the most recent runs first, without their summaries.
// A non-positive limit means 100.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, evaluated, '' FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRun(scan func(dest ...any) error, withSummary bool) (Run, error) {
	var run Run
	var created, evaluated, summary string
	if err := scan(&run.ID, &run.Name, &created, &evaluated, &summary); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: created_at: %w", run.ID, err)
	}
	run.CreatedAt = t
	run.Evaluated = []string{}
	if evaluated != "" {
		run.Evaluated = strings.Split(evaluated, ",")
	}
	if withSummary {
		if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
			return Run{}, fmt.Errorf("run %s: decode summary: %w", run.ID, err)
		}
	}
	return run, nil
}
