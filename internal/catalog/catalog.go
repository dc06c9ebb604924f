// Package catalog records finished simulation runs in a SQLite database so
// sample files can be found by lattice size and beta.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"ising-mc/internal/catalog/migrations"
)

var (
	// ErrAlreadyRecorded is returned when a sample file is recorded twice.
	ErrAlreadyRecorded = errors.New("catalog: sample file already recorded")
	// ErrNotConfigured is returned when the store is nil or closed.
	ErrNotConfigured = errors.New("catalog: store is not configured")
)

// Run is one finished simulation.
type Run struct {
	ID             string
	L              int
	Beta           float64
	Seed           int64
	Sequence       uint64
	Schedule       string
	Thermalization int64
	Steps          int64
	Samples        int
	Acceptance     float64
	Path           string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the catalog at path and applies the embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Runner workers record concurrently; one connection serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle. It is safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// RecordRun inserts run and returns its ID. An empty ID is replaced by a new
// UUID; zero timestamps default to now.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.db == nil {
		return "", ErrNotConfigured
	}
	if run.L <= 0 {
		return "", fmt.Errorf("catalog: lattice size must be positive, got %d", run.L)
	}
	if strings.TrimSpace(run.Path) == "" {
		return "", fmt.Errorf("catalog: sample path is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if run.FinishedAt.IsZero() {
		run.FinishedAt = now
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
		   id, lattice_size, beta, seed, sequence, schedule,
		   thermalization, steps, samples, acceptance, path,
		   started_at, finished_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.L, run.Beta, run.Seed, int64(run.Sequence), run.Schedule,
		run.Thermalization, run.Steps, run.Samples, run.Acceptance, run.Path,
		run.StartedAt.UTC().UnixMilli(), run.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyRecorded, run.Path)
		}
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the recorded runs for lattice side l, or every run when l
// is zero, ordered by L, beta and finish time.
func (s *Store) ListRuns(ctx context.Context, l int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	query := `SELECT id, lattice_size, beta, seed, sequence, schedule,
	       thermalization, steps, samples, acceptance, path,
	       started_at, finished_at
	  FROM runs`
	var args []any
	if l != 0 {
		query += ` WHERE lattice_size = ?`
		args = append(args, l)
	}
	query += ` ORDER BY lattice_size, beta, finished_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			seq               int64
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.L, &r.Beta, &r.Seed, &seq, &r.Schedule,
			&r.Thermalization, &r.Steps, &r.Samples, &r.Acceptance, &r.Path,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Sequence = uint64(seq)
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
