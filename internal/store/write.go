package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/pvregress/internal/ir"
)

// BaselineKind distinguishes the two kinds of recorded payload.
type BaselineKind string

const (
	KindSnapshot BaselineKind = "snapshot"
	KindArtifact BaselineKind = "artifact"
)

// Baseline is a recorded snapshot or artifact file.
type Baseline struct {
	ID         string       `json:"id"`
	Scenario   string       `json:"scenario"`
	Kind       BaselineKind `json:"kind"`
	Path       string       `json:"path"`
	RecordedAt time.Time    `json:"recorded_at"`
	Seq        int64        `json:"seq"`
}

// Run is the outcome of one scenario run.
type Run struct {
	ID         string        `json:"id"`
	Scenario   string        `json:"scenario"`
	Mode       string        `json:"mode"`
	Pass       bool          `json:"pass"`
	Mismatches []string      `json:"mismatches,omitempty"`
	SolverEnv  ir.IRObject   `json:"solver_environment,omitempty"`
	BaselineID string        `json:"baseline_id,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Seq        int64         `json:"seq"`
}

// RecordBaseline inserts a baseline record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same
// payload twice keeps the first row.
//
// A zero RecordedAt is filled from the store clock.
func (s *Store) RecordBaseline(ctx context.Context, b Baseline) error {
	switch {
	case b.ID == "":
		return fmt.Errorf("record baseline: id is required")
	case b.Scenario == "":
		return fmt.Errorf("record baseline: scenario is required")
	case b.Path == "":
		return fmt.Errorf("record baseline: path is required")
	case b.Kind != KindSnapshot && b.Kind != KindArtifact:
		return fmt.Errorf("record baseline: unknown kind %q", b.Kind)
	}
	if b.RecordedAt.IsZero() {
		b.RecordedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baselines (id, scenario, kind, path, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		b.ID,
		b.Scenario,
		string(b.Kind),
		b.Path,
		formatTime(b.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("record baseline: %w", err)
	}
	return nil
}

// RecordRun inserts a run record and returns it with its ID and Seq set.
// An empty ID is filled from the store's IDGenerator, a zero StartedAt from
// the store clock. BaselineID, when set, must reference a recorded baseline.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	if r.Scenario == "" {
		return Run{}, fmt.Errorf("record run: scenario is required")
	}
	if r.ID == "" {
		r.ID = s.ids.Generate()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = s.now()
	}

	mismatches, err := marshalMessages(r.Mismatches)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	env, err := marshalEnv(r.SolverEnv)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	var baselineID any
	if r.BaselineID != "" {
		baselineID = r.BaselineID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, mode, pass, mismatches, solver_environment, baseline_id, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Scenario,
		r.Mode,
		boolToInt(r.Pass),
		mismatches,
		env,
		baselineID,
		formatTime(r.StartedAt),
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	r.Seq = seq
	return r, nil
}
