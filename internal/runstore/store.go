package runstore

import (
	"database/sql"
	"fmt"
	"time"
)

// DispersionRun is one persisted run identity.
type DispersionRun struct {
	RunID      string
	CreatedAt  time.Time
	ModeType   string
	ParamsJSON string
	Status     string
	Error      string
}

// SolverRun is the persisted summary of one productive solver invocation.
type SolverRun struct {
	RunID       string
	Seq         int
	LMin        int
	LMax        int
	MaxLReached int
	MinLReached int
	MinPeriod   float64
	EigenPath   string
	ResultsPath string
}

// ModeRow is one persisted mode record.
type ModeRow struct {
	Seq    int
	N      int
	Type   string
	L      int
	WmHz   float64
	Period float64
	GroupV float64
}

// RunStore manages persistence for dispersion runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun records a new run identity in the running state.
func (s *RunStore) CreateRun(runID, modeType, paramsJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO dispersion_runs (run_id, mode_type, params_json, status) VALUES (?, ?, ?, 'running')`,
		runID, modeType, paramsJSON,
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", runID, err)
	}
	return nil
}

// RecordSolverRun persists one productive invocation's summary.
func (s *RunStore) RecordSolverRun(r SolverRun) error {
	_, err := s.db.Exec(
		`INSERT INTO solver_runs (run_id, seq, l_min, l_max, max_l_reached, min_l_reached, min_period, eigen_path, results_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Seq, r.LMin, r.LMax, r.MaxLReached, r.MinLReached, r.MinPeriod, r.EigenPath, r.ResultsPath,
	)
	if err != nil {
		return fmt.Errorf("record solver run %s/%d: %w", r.RunID, r.Seq, err)
	}
	return nil
}

// InsertModeRecords persists the parsed mode records of one invocation.
func (s *RunStore) InsertModeRecords(runID string, rows []ModeRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert mode records %s: %w", runID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO mode_records (run_id, seq, n, mode_type, l, w_mhz, period, group_v)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("insert mode records %s: %w", runID, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(runID, r.Seq, r.N, r.Type, r.L, r.WmHz, r.Period, r.GroupV); err != nil {
			return fmt.Errorf("insert mode record %s/%d l=%d: %w", runID, r.Seq, r.L, err)
		}
	}
	return tx.Commit()
}

// CompleteRun marks a run completed or failed. An empty errMsg means
// success.
func (s *RunStore) CompleteRun(runID, errMsg string) error {
	status := "completed"
	if errMsg != "" {
		status = "failed"
	}
	res, err := s.db.Exec(
		`UPDATE dispersion_runs SET status = ?, error = ? WHERE run_id = ?`,
		status, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("complete run %s: no such run", runID)
	}
	return nil
}

// GetRun fetches one run identity.
func (s *RunStore) GetRun(runID string) (*DispersionRun, error) {
	row := s.db.QueryRow(
		`SELECT run_id, created_at, mode_type, params_json, status, COALESCE(error, '')
		 FROM dispersion_runs WHERE run_id = ?`, runID)

	var r DispersionRun
	if err := row.Scan(&r.RunID, &r.CreatedAt, &r.ModeType, &r.ParamsJSON, &r.Status, &r.Error); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &r, nil
}

// ListSolverRuns returns the persisted invocation summaries for a run in
// sequence order.
func (s *RunStore) ListSolverRuns(runID string) ([]SolverRun, error) {
	rows, err := s.db.Query(
		`SELECT run_id, seq, l_min, l_max, max_l_reached, min_l_reached, min_period,
		        COALESCE(eigen_path, ''), COALESCE(results_path, '')
		 FROM solver_runs WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list solver runs %s: %w", runID, err)
	}
	defer rows.Close()

	var out []SolverRun
	for rows.Next() {
		var r SolverRun
		if err := rows.Scan(&r.RunID, &r.Seq, &r.LMin, &r.LMax, &r.MaxLReached, &r.MinLReached,
			&r.MinPeriod, &r.EigenPath, &r.ResultsPath); err != nil {
			return nil, fmt.Errorf("scan solver run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountModeRecords returns how many mode records a run accumulated.
func (s *RunStore) CountModeRecords(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM mode_records WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count mode records %s: %w", runID, err)
	}
	return n, nil
}
