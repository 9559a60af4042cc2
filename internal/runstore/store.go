// Package runstore provides SQLite-backed run history. Reports are recorded
// after a run completes; nothing here participates in scheduling.
package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/monoforge/monoforge/internal/domain"
)

// Store persists run reports
type Store struct {
	db *sql.DB
}

// New opens (and if needed initializes) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport records a completed run and its per-package results.
func (s *Store) SaveReport(r *domain.Report) error {
	packages := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		packages = append(packages, res.Package)
	}
	selJSON, err := json.Marshal(packages)
	if err != nil {
		return err
	}

	succeeded, failed, skipped := r.Counts()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, action, policy, selection, started_at, finished_at, succeeded, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		string(r.Action),
		string(r.Policy),
		string(selJSON),
		r.StartedAt,
		r.FinishedAt,
		succeeded,
		failed,
		skipped,
	)
	if err != nil {
		return err
	}

	for _, res := range r.Results {
		errMsg := ""
		if res.Err != nil {
			errMsg = res.Err.Error()
		}
		_, err = tx.Exec(`
			INSERT INTO results (run_id, package, status, error, duration_ms)
			VALUES (?, ?, ?, ?, ?)
		`,
			r.RunID,
			res.Package,
			string(res.Status),
			errMsg,
			res.Duration.Milliseconds(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RunSummary is one row of run history
type RunSummary struct {
	ID         string
	Action     domain.Action
	Policy     domain.FailurePolicy
	Packages   []string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Skipped    int
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, action, policy, selection, started_at, finished_at, succeeded, failed, skipped
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		var run RunSummary
		var action, policy, selJSON string
		if err := rows.Scan(&run.ID, &action, &policy, &selJSON, &run.StartedAt, &run.FinishedAt, &run.Succeeded, &run.Failed, &run.Skipped); err != nil {
			return nil, err
		}
		run.Action = domain.Action(action)
		run.Policy = domain.FailurePolicy(policy)
		if selJSON != "" && selJSON != "null" {
			if err := json.Unmarshal([]byte(selJSON), &run.Packages); err != nil {
				return nil, err
			}
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// ResultRow is one package outcome within a stored run
type ResultRow struct {
	Package  string
	Status   domain.Status
	Error    string
	Duration time.Duration
}

// RunResults returns the per-package results of one run.
func (s *Store) RunResults(runID string) ([]*ResultRow, error) {
	rows, err := s.db.Query(`
		SELECT package, status, error, duration_ms
		FROM results WHERE run_id = ? ORDER BY package
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ResultRow
	for rows.Next() {
		var row ResultRow
		var status string
		var ms int64
		if err := rows.Scan(&row.Package, &status, &row.Error, &ms); err != nil {
			return nil, err
		}
		row.Status = domain.Status(status)
		row.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, &row)
	}
	return results, rows.Err()
}

// LastFailures returns packages that failed in the most recent run, or nil
// if the last run was clean.
func (s *Store) LastFailures() ([]string, error) {
	var runID string
	err := s.db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT package FROM results WHERE run_id = ? AND status = ?`,
		runID, string(domain.StatusFailed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		failed = append(failed, name)
	}
	return failed, rows.Err()
}
