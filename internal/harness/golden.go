package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs a scenario with its report output captured and compares
// the output against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The scenario's result and error are returned for further assertions.
// Baseline paths in the output are file names only, so golden files do not
// depend on the archive location.
func RunWithGolden(t *testing.T, h *Harness, sc *Scenario, name string) (*Result, error) {
	t.Helper()

	var buf bytes.Buffer
	captured := *h
	captured.out = &buf

	result, err := captured.Run(context.Background(), sc)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())

	return result, err
}
