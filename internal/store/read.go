package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Baseline retrieves a baseline by ID.
// Returns an error wrapping ErrNotFound if no row matches.
func (s *Store) Baseline(ctx context.Context, id string) (Baseline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, scenario, kind, path, recorded_at
		FROM baselines
		WHERE id = ?
	`, id)

	b, err := scanBaseline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Baseline{}, fmt.Errorf("baseline %s: %w", id, ErrNotFound)
	}
	return b, err
}

// LatestBaseline returns the most recently recorded baseline of a kind for a
// scenario. Returns an error wrapping ErrNotFound if none was recorded.
func (s *Store) LatestBaseline(ctx context.Context, scenario string, kind BaselineKind) (Baseline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, scenario, kind, path, recorded_at
		FROM baselines
		WHERE scenario = ? AND kind = ?
		ORDER BY seq DESC
		LIMIT 1
	`, scenario, string(kind))

	b, err := scanBaseline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Baseline{}, fmt.Errorf("%s baseline for %s: %w", kind, scenario, ErrNotFound)
	}
	return b, err
}

// Baselines returns every baseline recorded for a scenario, oldest first.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) Baselines(ctx context.Context, scenario string) ([]Baseline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, scenario, kind, path, recorded_at
		FROM baselines
		WHERE scenario = ?
		ORDER BY seq ASC
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("query baselines: %w", err)
	}
	defer rows.Close()

	baselines := []Baseline{}
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, err
		}
		baselines = append(baselines, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baselines: %w", err)
	}
	return baselines, nil
}

// History returns the most recent runs of a scenario, newest first. An empty
// scenario lists runs of every scenario. limit <= 0 means no limit.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) History(ctx context.Context, scenario string, limit int) ([]Run, error) {
	query := `
		SELECT seq, id, scenario, mode, pass, mismatches, solver_environment,
		       COALESCE(baseline_id, ''), started_at, duration_ms
		FROM runs
	`
	var args []any
	if scenario != "" {
		query += " WHERE scenario = ?"
		args = append(args, scenario)
	}
	query += " ORDER BY seq DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns an error wrapping ErrNotFound if no row matches.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, scenario, mode, pass, mismatches, solver_environment,
		       COALESCE(baseline_id, ''), started_at, duration_ms
		FROM runs
		WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBaseline(row scanner) (Baseline, error) {
	var (
		b          Baseline
		kind       string
		recordedAt string
	)
	if err := row.Scan(&b.Seq, &b.ID, &b.Scenario, &kind, &b.Path, &recordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Baseline{}, err
		}
		return Baseline{}, fmt.Errorf("scan baseline: %w", err)
	}
	b.Kind = BaselineKind(kind)

	t, err := parseTime(recordedAt)
	if err != nil {
		return Baseline{}, fmt.Errorf("scan baseline: %w", err)
	}
	b.RecordedAt = t
	return b, nil
}

func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		pass       int
		mismatches string
		env        string
		startedAt  string
		durationMS int64
	)
	if err := row.Scan(&r.Seq, &r.ID, &r.Scenario, &r.Mode, &pass, &mismatches, &env,
		&r.BaselineID, &startedAt, &durationMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Pass = pass == 1
	r.Duration = time.Duration(durationMS) * time.Millisecond

	var err error
	if r.Mismatches, err = unmarshalMessages(mismatches); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if r.SolverEnv, err = unmarshalEnv(env); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}
