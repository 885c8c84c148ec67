package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RunRecord is a persisted scenario run.
type RunRecord struct {
	ID          int64           `json:"id"`
	RunID       string          `json:"run_id"`
	Scenario    string          `json:"scenario"`
	Status      string          `json:"status"`
	Config      json.RawMessage `json:"config,omitempty"`
	Metrics     json.RawMessage `json:"metrics,omitempty"`
	Artifacts   json.RawMessage `json:"artifacts,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Run status values.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// RunStore provides persistence for scenario runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// InsertRun records the start of a scenario run with status running.
func (s *RunStore) InsertRun(runID, scenario string, config json.RawMessage, startedAt time.Time) error {
	query := `
		INSERT INTO scenario_runs (run_id, scenario, status, config, started_at)
		VALUES (?, ?, ?, ?, ?)
	`
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			runID,
			scenario,
			StatusRunning,
			nullJSON(config),
			startedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}
	return nil
}

// CompleteRun records the results of a finished run.
func (s *RunStore) CompleteRun(runID string, metrics, artifacts json.RawMessage, completedAt time.Time) error {
	query := `
		UPDATE scenario_runs
		SET status = ?, metrics = ?, artifacts = ?, completed_at = ?
		WHERE run_id = ?
	`
	err := retryOnBusy(func() error {
		res, err := s.db.Exec(query,
			StatusComplete,
			nullJSON(metrics),
			nullJSON(artifacts),
			completedAt.UTC().Format(time.RFC3339),
			runID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing run %s: %w", runID, err)
	}
	return nil
}

// FailRun marks a run as failed with the given error message.
func (s *RunStore) FailRun(runID, errMsg string, completedAt time.Time) error {
	query := `
		UPDATE scenario_runs
		SET status = ?, error = ?, completed_at = ?
		WHERE run_id = ?
	`
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			StatusFailed,
			nullStr(errMsg),
			completedAt.UTC().Format(time.RFC3339),
			runID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failing run %s: %w", runID, err)
	}
	return nil
}

// GetRun returns a single run by ID, or nil when it does not exist.
func (s *RunStore) GetRun(runID string) (*RunRecord, error) {
	query := `
		SELECT id, run_id, scenario, status, config, metrics, artifacts, error,
		       started_at, completed_at
		FROM scenario_runs
		WHERE run_id = ?
	`
	var rec RunRecord
	var config, metrics, artifacts, errMsg sql.NullString
	var startedAt, completedAt sql.NullString

	err := s.db.QueryRow(query, runID).Scan(
		&rec.ID, &rec.RunID, &rec.Scenario, &rec.Status,
		&config, &metrics, &artifacts, &errMsg,
		&startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}

	rec.Config = jsonOrNil(config)
	rec.Metrics = jsonOrNil(metrics)
	rec.Artifacts = jsonOrNil(artifacts)
	if errMsg.Valid {
		rec.Error = errMsg.String
	}
	if startedAt.Valid {
		t, err := time.Parse(time.RFC3339, startedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at for run %s: %w", runID, err)
		}
		rec.StartedAt = t
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at for run %s: %w", runID, err)
		}
		rec.CompletedAt = &t
	}

	return &rec, nil
}

// RunSummary is a lightweight version of RunRecord for list views (omits
// the JSON payloads).
type RunSummary struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"run_id"`
	Scenario    string     `json:"scenario"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListRuns returns recent runs, most recent first. An empty scenario matches
// all scenarios.
func (s *RunStore) ListRuns(scenario string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, run_id, scenario, status, error, started_at, completed_at
		FROM scenario_runs
		WHERE (? = '' OR scenario = ?)
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, scenario, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var rec RunSummary
		var errMsg sql.NullString
		var startedAt, completedAt sql.NullString

		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Scenario, &rec.Status, &errMsg, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}

		if errMsg.Valid {
			rec.Error = errMsg.String
		}
		if startedAt.Valid {
			t, err := time.Parse(time.RFC3339, startedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing started_at for run row: %w", err)
			}
			rec.StartedAt = t
		}
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing completed_at for run row: %w", err)
			}
			rec.CompletedAt = &t
		}

		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

// DeleteRun removes a run record.
func (s *RunStore) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`DELETE FROM scenario_runs WHERE run_id = ?`, runID)
		return err
	})
}

// nullJSON returns a sql.NullString for a JSON value, treating nil or empty
// as NULL.
func nullJSON(data json.RawMessage) *string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	return &s
}

// jsonOrNil converts a sql.NullString to json.RawMessage, returning nil for
// NULL values.
func jsonOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}
