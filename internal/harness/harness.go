package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/pvregress/internal/archive"
	"github.com/roach88/pvregress/internal/compare"
	"github.com/roach88/pvregress/internal/config"
	"github.com/roach88/pvregress/internal/curve"
	"github.com/roach88/pvregress/internal/extract"
	"github.com/roach88/pvregress/internal/ir"
	"github.com/roach88/pvregress/internal/logging"
	"github.com/roach88/pvregress/internal/model"
	"github.com/roach88/pvregress/internal/objdiff"
	"github.com/roach88/pvregress/internal/snapshot"
	"github.com/roach88/pvregress/internal/store"
)

// Baseline file extensions.
const (
	extArtifact = "yaml"
	extSnapshot = "json"
)

// resultPrefix is the archive prefix of a scenario's baselines.
func resultPrefix(scenario string) string {
	return scenario + "_result"
}

// Harness runs scenarios under one configuration.
type Harness struct {
	cfg      *config.Config
	archive  *archive.Archive
	ledger   *store.Store
	logger   *slog.Logger
	out      io.Writer
	registry *extract.Registry[model.Component]
}

// Option configures a Harness.
type Option func(*Harness)

// WithArchive replaces the archive rooted at the configured snapshot dir.
func WithArchive(a *archive.Archive) Option {
	return func(h *Harness) { h.archive = a }
}

// WithLedger records baselines and runs in a ledger.
func WithLedger(s *store.Store) Option {
	return func(h *Harness) { h.ledger = s }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithOutput sets the writer for report lines. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) { h.out = w }
}

// New creates a harness. cfg is loaded once by the caller and shared by
// every scenario run.
func New(cfg *config.Config, opts ...Option) *Harness {
	if cfg == nil {
		cfg = config.Default()
	}
	h := &Harness{
		cfg:      cfg,
		out:      os.Stdout,
		registry: model.Fields(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.archive == nil {
		h.archive = archive.New(cfg.SnapshotPath())
	}
	h.logger = logging.Component(h.logger, "harness")
	return h
}

// Mode returns the mode scenarios run in.
func (h *Harness) Mode() config.Mode {
	return h.cfg.Mode()
}

// RunAll runs scenarios in order. In fail-fast mode the first error stops
// the batch; otherwise a failing scenario is counted and the batch goes on.
// Context cancellation always stops the batch.
func (h *Harness) RunAll(ctx context.Context, scenarios []*Scenario) (*Summary, error) {
	summary := &Summary{Results: []*Result{}}
	for _, sc := range scenarios {
		res, err := h.Run(ctx, sc)
		if res != nil {
			summary.Add(res)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil || h.Mode().FailFast() {
			return summary, err
		}
	}
	return summary, nil
}

// Run executes one scenario and returns its result.
//
// The result is non-nil whenever the scenario started. The error is set
// when the scenario stopped early: a missing baseline, an I/O failure, or
// the first difference in fail-fast mode.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	start := time.Now()
	mode := h.Mode()
	r := &run{
		h:      h,
		sc:     sc,
		mode:   mode,
		solver: model.DefaultSolver().WithOverrides(sc.Solver),
		logger: h.logger.With("scenario", sc.Name, "mode", mode.String()),
		result: NewResult(sc.Name, mode),
	}

	err := r.execute(ctx)
	if err != nil && !isDifference(err) {
		r.result.AddError(err.Error())
	}
	r.result.Duration = time.Since(start)

	if lerr := h.recordRun(ctx, r); lerr != nil {
		if err == nil {
			err = lerr
		}
		r.logger.Error("ledger write failed", "error", lerr)
	}

	r.logger.Info("scenario finished",
		"pass", r.result.Pass,
		"errors", len(r.result.Errors),
		"warnings", len(r.result.Warnings),
		"duration", r.result.Duration)
	return r.result, err
}

// isDifference reports whether err is a fail-fast difference whose report
// line is already part of the result.
func isDifference(err error) bool {
	return errors.Is(err, compare.ErrMismatch) ||
		errors.Is(err, objdiff.ErrDiffer) ||
		errors.Is(err, curve.ErrCurveMismatch)
}

// run is the state of one scenario execution.
type run struct {
	h      *Harness
	sc     *Scenario
	mode   config.Mode
	solver model.Solver
	device model.Component
	logger *slog.Logger
	result *Result
}

func (r *run) execute(ctx context.Context) error {
	if r.sc.Device != nil {
		device, err := model.Build(*r.sc.Device, r.solver)
		if err != nil {
			return &ScenarioError{Path: r.sc.Path, Err: err}
		}
		r.device = device
	}

	for _, check := range r.sc.orderedChecks() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch check {
		case CheckArtifact:
			err = r.artifact(ctx)
		case CheckFields:
			err = r.fields(ctx)
		case CheckReference:
			err = r.reference()
		}
		if err != nil {
			return fmt.Errorf("%s check: %w", check, err)
		}
	}
	return nil
}

func (r *run) printf(format string, args ...any) {
	fmt.Fprintf(r.h.out, format, args...)
}

// artifact records the device tree or diffs it against the newest saved
// one. Outside record mode the saved device replaces the built one.
func (r *run) artifact(ctx context.Context) error {
	prefix := resultPrefix(r.sc.Name)

	if r.mode.Records() {
		data, err := model.Marshal(r.device)
		if err != nil {
			return err
		}
		path, err := r.h.archive.Write(prefix, extArtifact, data)
		if err != nil {
			return err
		}
		id := ir.ArtifactID(data)
		if err := r.recordBaseline(ctx, id, store.KindArtifact, path); err != nil {
			return err
		}
		r.result.AddCheck(CheckResult{Check: CheckArtifact, Pass: true, Path: path})
		r.printf("%s artifact saved to %s\n", r.sc.Name, filepath.Base(path))
		return nil
	}

	saved, path, id, err := r.loadArtifact(r.sc.Name)
	if err != nil {
		return err
	}
	r.result.BaselineID = id

	report, err := objdiff.Diff(r.device, saved, objdiff.Options{
		FailFast: r.mode.FailFast(),
		Out:      r.h.out,
		Logger:   r.logger,
	})
	check := CheckResult{Check: CheckArtifact, Pass: report.Equal, Path: path}
	for _, d := range report.Differences {
		check.Errors = append(check.Errors, d.String())
	}
	r.result.AddCheck(check)
	if err != nil {
		return err
	}
	if report.Equal {
		r.printf("%s artifact matches!\n", r.sc.Name)
	}

	saved.SetSolver(r.solver)
	r.device = saved
	r.logger.Info("loaded the saved device for subsequent checks", "path", path)
	return nil
}

// loadArtifact returns the newest artifact recorded by scenario.
func (r *run) loadArtifact(scenario string) (model.Component, string, string, error) {
	return LatestArtifact(r.h.archive, scenario)
}

// LatestArtifact loads the newest device artifact recorded by scenario in a.
// It returns the device, its path and its content hash.
func LatestArtifact(a *archive.Archive, scenario string) (model.Component, string, string, error) {
	path, err := a.FindLatest(resultPrefix(scenario), extArtifact)
	if err != nil {
		return nil, "", "", err
	}
	data, err := a.Read(path)
	if err != nil {
		return nil, "", "", err
	}
	c, err := model.Unmarshal(data)
	if err != nil {
		return nil, "", "", fmt.Errorf("load %s: %w", path, err)
	}
	return c, path, ir.ArtifactID(data), nil
}

// fields records a field snapshot or compares one against the newest saved
// snapshot.
func (r *run) fields(ctx context.Context) error {
	results, err := extract.New(r.h.registry, r.logger).Extract(r.device, r.sc.Name, r.h.cfg)
	if err != nil {
		return err
	}
	current := snapshot.Snapshot{SolverEnv: r.solver.Env(), Results: results}
	prefix := resultPrefix(r.sc.Name)

	if r.mode.Records() {
		data, err := snapshot.Encode(current)
		if err != nil {
			return err
		}
		path, err := r.h.archive.Write(prefix, extSnapshot, data)
		if err != nil {
			return err
		}
		id, err := current.ID()
		if err != nil {
			return err
		}
		if err := r.recordBaseline(ctx, id, store.KindSnapshot, path); err != nil {
			return err
		}
		r.result.AddCheck(CheckResult{Check: CheckFields, Pass: true, Path: path})
		r.printf("%s snapshot saved to %s\n", r.sc.Name, filepath.Base(path))
		return nil
	}

	path, err := r.h.archive.FindLatest(prefix, extSnapshot)
	if err != nil {
		return err
	}
	data, err := r.h.archive.Read(path)
	if err != nil {
		return err
	}
	baseline, err := snapshot.Decode(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if id, err := baseline.ID(); err == nil {
		r.result.BaselineID = id
	}

	for _, d := range snapshot.EnvDrift(baseline.SolverEnv, current.SolverEnv) {
		msg := d.String()
		r.printf("%s\n", msg)
		r.logger.Warn("solver environment drift", "key", d.Key,
			"old", ir.Format(d.Old), "new", ir.Format(d.New))
		r.result.AddWarning(msg)
	}

	report, err := compare.Compare(baseline.Results, current.Results, compare.Options{
		FailFast: r.mode.FailFast(),
		Out:      r.h.out,
		Logger:   r.logger,
	})
	r.result.AddCheck(CheckResult{Check: CheckFields, Pass: report.Pass, Path: path, Errors: report.Lines()})
	if err != nil {
		return err
	}
	if report.Pass {
		r.printf("%s all pass!\n", r.sc.Name)
	}
	return nil
}

// reference validates the device curve against reference scans. It is a
// no-op in record mode.
func (r *run) reference() error {
	if !r.mode.CrossValidates() {
		r.logger.Debug("reference validation skipped in record mode")
		return nil
	}

	device := r.device
	if base := r.sc.Reference.Baseline; base != "" {
		c, path, _, err := r.loadArtifact(base)
		if err != nil {
			return err
		}
		c.SetSolver(c.Solver().WithOverrides(r.sc.Solver))
		device = c
		r.logger.Info("validating baseline artifact", "baseline", base, "path", path)
	}

	computed, err := device.Curve()
	if err != nil {
		return err
	}
	ref, err := curve.LoadReference(r.sc.Reference.Dir, r.sc.Reference.Device)
	if err != nil {
		return err
	}

	res, err := curve.Validate(computed, ref, curve.Options{
		Active:   true,
		FailFast: r.mode.FailFast(),
		Out:      r.h.out,
		Logger:   r.logger,
	})
	if res == nil {
		return err
	}
	r.result.AddCheck(CheckResult{
		Check:  CheckReference,
		Pass:   res.Pass,
		Path:   r.sc.Reference.Dir,
		Errors: res.Messages,
	})
	if err != nil {
		return err
	}
	if res.Pass {
		r.printf("%s reference curve matches (%d samples)!\n", r.sc.Name, res.Checked)
	}
	return nil
}

func (r *run) recordBaseline(ctx context.Context, id string, kind store.BaselineKind, path string) error {
	r.result.BaselineID = id
	if r.h.ledger == nil {
		return nil
	}
	return r.h.ledger.RecordBaseline(ctx, store.Baseline{
		ID:       id,
		Scenario: r.sc.Name,
		Kind:     kind,
		Path:     path,
	})
}

// recordRun writes the run to the ledger. A baseline the ledger never saw
// (recorded before the ledger was configured) is left unlinked.
func (h *Harness) recordRun(ctx context.Context, r *run) error {
	if h.ledger == nil {
		return nil
	}

	baselineID := r.result.BaselineID
	if baselineID != "" {
		if _, err := h.ledger.Baseline(ctx, baselineID); errors.Is(err, store.ErrNotFound) {
			baselineID = ""
		} else if err != nil {
			return err
		}
	}

	written, err := h.ledger.RecordRun(ctx, store.Run{
		Scenario:   r.sc.Name,
		Mode:       r.mode.String(),
		Pass:       r.result.Pass,
		Mismatches: r.result.Errors,
		SolverEnv:  r.solver.Env(),
		BaselineID: baselineID,
		Duration:   r.result.Duration,
	})
	if err != nil {
		return err
	}
	r.result.RunID = written.ID
	return nil
}
