// Package store records the metric series of training runs in SQLite
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	env_name    TEXT NOT NULL,
	entry_point TEXT NOT NULL,
	config_path TEXT,
	seed        INTEGER NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL,
	phase    TEXT NOT NULL,
	episode  INTEGER NOT NULL,
	name     TEXT NOT NULL,
	value    REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS metrics_series
	ON metrics (run_id, phase, name, episode);
`

// Phases of a run
const (
	Train = "train"
	Eval  = "eval"
)

// RunInfo describes a training run
type RunInfo struct {
	ID         string
	EnvName    string
	EntryPoint string
	ConfigPath string
	Seed       int
	StartedAt  time.Time
}

// Store records training runs and their metrics in SQLite
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path, creating it and its directory
// if needed, and runs migrations
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new run
func (s *Store) StartRun(run RunInfo) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, env_name, entry_point, config_path, seed, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.EnvName, run.EntryPoint, run.ConfigPath, run.Seed,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("start run %v: %w", run.ID, err)
	}
	return nil
}

// Run returns the run with the given ID
func (s *Store) Run(id string) (RunInfo, error) {
	var run RunInfo
	var startedAt string
	var configPath sql.NullString

	err := s.db.QueryRow(
		`SELECT run_id, env_name, entry_point, config_path, seed, started_at
		 FROM runs WHERE run_id = ?`, id,
	).Scan(&run.ID, &run.EnvName, &run.EntryPoint, &configPath, &run.Seed,
		&startedAt)
	if err != nil {
		return RunInfo{}, fmt.Errorf("run %v: %w", id, err)
	}

	run.ConfigPath = configPath.String
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return RunInfo{}, fmt.Errorf("run %v: started_at: %w", id, err)
	}
	return run, nil
}

// RecordMetrics records the metric values logged at one episode of a
// phase in a single transaction
func (s *Store) RecordMetrics(runID, phase string, episode int,
	values map[string]float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO metrics (run_id, phase, episode, name, value)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := stmt.Exec(runID, phase, episode, name,
			values[name]); err != nil {
			return fmt.Errorf("insert %v: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Metrics returns the values of a metric of a run phase ordered by
// episode
func (s *Store) Metrics(runID, phase, name string) ([]float64, error) {
	rows, err := s.db.Query(
		`SELECT value FROM metrics
		 WHERE run_id = ? AND phase = ? AND name = ?
		 ORDER BY episode, id`,
		runID, phase, name,
	)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
