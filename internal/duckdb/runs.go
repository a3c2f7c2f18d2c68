package duckdb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run describes one invocation that wrote results.
type Run struct {
	ID        string
	Command   string
	StartedAt time.Time
	Seed      int64
	FDR       float64
	Trials    int
}

// NewRun creates a run with a fresh id.
func NewRun(command string, seed int64, fdr float64, trials int) Run {
	return Run{
		ID:        uuid.NewString(),
		Command:   command,
		StartedAt: time.Now().UTC(),
		Seed:      seed,
		FDR:       fdr,
		Trials:    trials,
	}
}

// WriteRun records a run.
func (s *Store) WriteRun(r Run) error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", r.ID, err)
	}
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Command, r.StartedAt, r.Seed, r.FDR, r.Trials)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns all recorded runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, command, started_at, seed, fdr, trials
		FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Command, &r.StartedAt, &r.Seed, &r.FDR, &r.Trials); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ClearRun removes a run and every row it wrote.
func (s *Store) ClearRun(runID string) error {
	for _, table := range []string{"selection_frequencies", "null_samples", "p_values", "runs"} {
		if _, err := s.db.Exec("DELETE FROM "+table+" WHERE run_id=?", runID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
