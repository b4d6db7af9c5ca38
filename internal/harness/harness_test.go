package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pvregress/internal/archive"
	"github.com/roach88/pvregress/internal/compare"
	"github.com/roach88/pvregress/internal/config"
	"github.com/roach88/pvregress/internal/curve"
	"github.com/roach88/pvregress/internal/model"
	"github.com/roach88/pvregress/internal/store"
	"github.com/roach88/pvregress/internal/testutil"
)

var epoch = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

const testConfig = `fields:
  common:
    - {name: Pmax}
    - {name: Voc}
    - {name: Isc}
    - {name: FF}
  a02:
    - {name: num_cells}
`

const cellScenario = `name: a01
checks: [artifact, fields]
device:
  kind: cell
  name: cell
  params: {IL: 7.0, I01: 1e-12, I02: 1e-8, Rshunt: 1000, Rs: 0.003, area: 166}
`

// fixture shares one archive directory and clock between harnesses in
// different modes, the way successive CLI invocations would.
type fixture struct {
	t      *testing.T
	dir    string
	clock  *testutil.SteppingClock
	ledger *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:     t,
		dir:   t.TempDir(),
		clock: testutil.NewSteppingClock(epoch, time.Second),
	}
}

func (f *fixture) withLedger() *fixture {
	f.t.Helper()
	s, err := store.Open(filepath.Join(f.t.TempDir(), "ledger.db"),
		store.WithIDGenerator(testutil.NewSequentialIDs("run")))
	require.NoError(f.t, err)
	f.t.Cleanup(func() { s.Close() })
	f.ledger = s
	return f
}

func (f *fixture) harness(mode string) (*Harness, *bytes.Buffer) {
	f.t.Helper()
	cfg, err := config.Parse([]byte(testConfig), "pvregress.yaml")
	require.NoError(f.t, err)
	cfg.SetMode(mode)

	var out bytes.Buffer
	opts := []Option{
		WithArchive(archive.New(f.dir, archive.WithClock(f.clock))),
		WithOutput(&out),
	}
	if f.ledger != nil {
		opts = append(opts, WithLedger(f.ledger))
	}
	return New(cfg, opts...), &out
}

func parse(t *testing.T, src string) *Scenario {
	t.Helper()
	sc, err := ParseScenario([]byte(src), "")
	require.NoError(t, err)
	return sc
}

func (f *fixture) record(src string) {
	f.t.Helper()
	h, _ := f.harness("record")
	res, err := h.Run(context.Background(), parse(f.t, src))
	require.NoError(f.t, err)
	require.True(f.t, res.Pass, "record run failed: %v", res.Errors)
}

// writeScans writes the IV curve of the device in src as reference scan 1.
func writeScans(t *testing.T, dir, device, src string) {
	t.Helper()
	sc := parse(t, src)
	c, err := model.Build(*sc.Device, model.DefaultSolver().WithOverrides(sc.Solver))
	require.NoError(t, err)
	iv, err := c.Curve()
	require.NoError(t, err)

	f, err := os.Create(curve.ScanPath(dir, device, 1))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, curve.WriteScan(f, iv))
}

func TestRun_RecordGolden(t *testing.T) {
	f := newFixture(t)
	h, _ := f.harness("record")

	res, err := RunWithGolden(t, h, parse(t, cellScenario), "record_a01")
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.Equal(t, "record", res.Mode)
	require.Len(t, res.Checks, 2)
	assert.NotEmpty(t, res.BaselineID)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRun_RecordThenTestPasses(t *testing.T) {
	f := newFixture(t)
	f.record(cellScenario)

	h, out := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, cellScenario))
	require.NoError(t, err)

	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "a01 artifact matches!\na01 all pass!\n", out.String())

	fields, ok := res.Check(CheckFields)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(fields.Path, "a01_result_2024-03-01_093001.json"))
}

func TestRun_ArtifactDriftContinuesWithSavedDevice(t *testing.T) {
	f := newFixture(t)
	f.record(cellScenario)

	changed := strings.Replace(cellScenario, "Rs: 0.003", "Rs: 0.004", 1)
	h, _ := f.harness("test")
	res, err := RunWithGolden(t, h, parse(t, changed), "artifact_drift")
	require.NoError(t, err)

	assert.False(t, res.Pass)
	artifact, ok := res.Check(CheckArtifact)
	require.True(t, ok)
	assert.False(t, artifact.Pass)
	assert.Equal(t, []string{"Rs: 0.004 != 0.003"}, artifact.Errors)

	fields, ok := res.Check(CheckFields)
	require.True(t, ok)
	assert.True(t, fields.Pass, "fields run on the saved device")
}

func TestRun_FieldMismatchReported(t *testing.T) {
	f := newFixture(t)
	src := strings.Replace(cellScenario, "[artifact, fields]", "[fields]", 1)
	f.record(src)

	changed := strings.Replace(src, "IL: 7.0", "IL: 7.1", 1)
	h, out := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, changed))
	require.NoError(t, err)

	assert.False(t, res.Pass)
	require.NotEmpty(t, res.Errors)
	for _, e := range res.Errors {
		assert.True(t, strings.HasPrefix(e, "Difference at "), e)
	}
	assert.Contains(t, out.String(), "Difference at Isc: ")
	assert.NotContains(t, out.String(), "all pass!")
}

func TestRun_EnvDriftWarns(t *testing.T) {
	f := newFixture(t)
	src := strings.Replace(cellScenario, "[artifact, fields]", "[fields]", 1)
	f.record(src)

	h, out := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, src+"solver: {grid_points: 200}\n"))
	require.NoError(t, err)

	want := "WARNING: The solver env variable grid_points is different between last time (400) and this time (200)"
	assert.Equal(t, []string{want}, res.Warnings)
	assert.Contains(t, out.String(), want+"\n")
}

func TestRun_MissingBaselineIsFatal(t *testing.T) {
	f := newFixture(t)
	h, _ := f.harness("test")

	res, err := h.Run(context.Background(), parse(t, cellScenario))
	require.Error(t, err)

	var nf *archive.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "a01_result", nf.Prefix)
	assert.Equal(t, "yaml", nf.Extension)

	require.NotNil(t, res)
	assert.False(t, res.Pass)
	assert.Len(t, res.Errors, 1)
	assert.Empty(t, res.Checks)
}

func TestRun_PytestStopsAtFirstMismatch(t *testing.T) {
	f := newFixture(t)
	src := strings.Replace(cellScenario, "[artifact, fields]", "[fields]", 1)
	f.record(src)

	changed := strings.Replace(src, "IL: 7.0", "IL: 7.1", 1)
	h, _ := f.harness("pytest")
	res, err := h.Run(context.Background(), parse(t, changed))
	require.Error(t, err)
	assert.True(t, errors.Is(err, compare.ErrMismatch))

	assert.False(t, res.Pass)
	assert.Len(t, res.Errors, 1, "the fail-fast line is not duplicated")
}

func TestRunAll_ReportModeContinues(t *testing.T) {
	f := newFixture(t)
	h, _ := f.harness("test")

	b := strings.Replace(cellScenario, "name: a01", "name: b02", 1)
	summary, err := h.RunAll(context.Background(), []*Scenario{parse(t, cellScenario), parse(t, b)})
	require.NoError(t, err)
	assert.Len(t, summary.Results, 2)
	assert.Equal(t, 2, summary.Failed)
	assert.False(t, summary.Pass())
}

func TestRunAll_FailFastStops(t *testing.T) {
	f := newFixture(t)
	h, _ := f.harness("pytest")

	b := strings.Replace(cellScenario, "name: a01", "name: b02", 1)
	summary, err := h.RunAll(context.Background(), []*Scenario{parse(t, cellScenario), parse(t, b)})
	require.Error(t, err)
	assert.Len(t, summary.Results, 1)
}

func TestRunAll_Cancelled(t *testing.T) {
	f := newFixture(t)
	h, _ := f.harness("record")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := h.RunAll(ctx, []*Scenario{parse(t, cellScenario)})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Failed)
}

const referenceScenario = `name: c01
checks: [reference]
device:
  kind: cell
  name: cell
  params: {IL: 7.0, I01: 1e-12, I02: 1e-8, Rshunt: 1000, Rs: 0.003, area: 166}
reference: {dir: REFDIR, device: cell}
`

func TestRun_ReferenceMatches(t *testing.T) {
	f := newFixture(t)
	refDir := t.TempDir()
	writeScans(t, refDir, "cell", cellScenario)

	h, out := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, strings.Replace(referenceScenario, "REFDIR", refDir, 1)))
	require.NoError(t, err)

	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Equal(t, "c01 reference curve matches (400 samples)!\n", out.String())
}

func TestRun_ReferenceMismatch(t *testing.T) {
	f := newFixture(t)
	refDir := t.TempDir()
	writeScans(t, refDir, "cell", strings.Replace(cellScenario, "IL: 7.0", "IL: 6.9", 1))

	h, _ := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, strings.Replace(referenceScenario, "REFDIR", refDir, 1)))
	require.NoError(t, err)

	assert.False(t, res.Pass)
	require.NotEmpty(t, res.Errors)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Difference at Pmax: "), res.Errors[0])
}

func TestRun_ReferenceSkippedInRecordMode(t *testing.T) {
	f := newFixture(t)
	h, out := f.harness("record")

	// The scans do not exist; record mode never reads them.
	res, err := h.Run(context.Background(), parse(t, strings.Replace(referenceScenario, "REFDIR", t.TempDir(), 1)))
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.Empty(t, res.Checks)
	assert.Empty(t, out.String())
}

func TestRun_ReferenceAgainstBaselineArtifact(t *testing.T) {
	f := newFixture(t)
	f.record(cellScenario)

	refDir := t.TempDir()
	writeScans(t, refDir, "cell", cellScenario)

	src := "name: b01\nchecks: [reference]\nreference: {dir: " + refDir + ", device: cell, baseline: a01}\n"
	h, _ := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, src))
	require.NoError(t, err)
	assert.True(t, res.Pass, "errors: %v", res.Errors)
}

func TestRun_ReferenceMissingScans(t *testing.T) {
	f := newFixture(t)
	h, _ := f.harness("test")

	_, err := h.Run(context.Background(), parse(t, strings.Replace(referenceScenario, "REFDIR", t.TempDir(), 1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, curve.ErrNoScans))
}

func TestRun_LedgerHistory(t *testing.T) {
	f := newFixture(t).withLedger()
	f.record(cellScenario)

	h, _ := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, cellScenario))
	require.NoError(t, err)
	assert.Equal(t, "run-0002", res.RunID)

	runs, err := f.ledger.History(context.Background(), "a01", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "test", runs[0].Mode)
	assert.Equal(t, "record", runs[1].Mode)
	assert.True(t, runs[0].Pass)
	assert.Equal(t, res.BaselineID, runs[0].BaselineID)

	baselines, err := f.ledger.Baselines(context.Background(), "a01")
	require.NoError(t, err)
	require.Len(t, baselines, 2)
	assert.Equal(t, store.KindArtifact, baselines[0].Kind)
	assert.Equal(t, store.KindSnapshot, baselines[1].Kind)
	assert.Equal(t, runs[0].BaselineID, baselines[1].ID)
}

func TestRun_LedgerUnknownBaselineUnlinked(t *testing.T) {
	f := newFixture(t)
	f.record(cellScenario)

	// The ledger is configured after the baselines were recorded.
	f.withLedger()
	h, _ := f.harness("test")
	res, err := h.Run(context.Background(), parse(t, cellScenario))
	require.NoError(t, err)
	require.NotEmpty(t, res.BaselineID)

	runs, err := f.ledger.History(context.Background(), "a01", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].BaselineID)
}
