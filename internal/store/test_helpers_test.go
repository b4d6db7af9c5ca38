package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/pvregress/internal/ir"
	"github.com/roach88/pvregress/internal/testutil"
)

var testEpoch = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// createTestStore creates a fresh store with deterministic IDs and clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	clock := testutil.NewSteppingClock(testEpoch, time.Second)
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDs("run")),
		WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBaseline creates a snapshot baseline with minimal required fields.
func createTestBaseline(id, scenario string) Baseline {
	return Baseline{
		ID:       id,
		Scenario: scenario,
		Kind:     KindSnapshot,
		Path:     "results/" + scenario + "_result_2024-03-01_093000.json",
	}
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(scenario string, pass bool) Run {
	return Run{
		Scenario: scenario,
		Mode:     "test",
		Pass:     pass,
		SolverEnv: ir.IRObject{
			"grid_points": ir.IRInt(400),
			"temperature": ir.IRFloat(298.15),
		},
	}
}
