package store

import (
	"context"
	"errors"
	"testing"
)

func TestBaseline_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Baseline(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Baseline() error = %v, want ErrNotFound", err)
	}
}

func TestLatestBaseline(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"h1", "h2", "h3"} {
		if err := s.RecordBaseline(ctx, createTestBaseline(id, "a01")); err != nil {
			t.Fatal(err)
		}
	}
	art := createTestBaseline("h4", "a01")
	art.Kind = KindArtifact
	if err := s.RecordBaseline(ctx, art); err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestBaseline(ctx, "a01", KindSnapshot)
	if err != nil {
		t.Fatalf("LatestBaseline() failed: %v", err)
	}
	if got.ID != "h3" {
		t.Errorf("latest snapshot = %q, want h3", got.ID)
	}

	got, err = s.LatestBaseline(ctx, "a01", KindArtifact)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "h4" {
		t.Errorf("latest artifact = %q, want h4", got.ID)
	}

	_, err = s.LatestBaseline(ctx, "a02", KindSnapshot)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestBaseline() for unknown scenario = %v, want ErrNotFound", err)
	}
}

func TestBaselines_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// IDs deliberately out of lexical order.
	for _, id := range []string{"zz", "aa", "mm"} {
		if err := s.RecordBaseline(ctx, createTestBaseline(id, "a01")); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Baselines(ctx, "a01")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"zz", "aa", "mm"}
	if len(got) != len(want) {
		t.Fatalf("got %d baselines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("baseline[%d] = %q, want %q", i, got[i].ID, want[i])
		}
	}
}

func TestBaselines_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.Baselines(context.Background(), "none")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("Baselines() returned nil, want empty slice")
	}
}

func TestHistory_NewestFirstWithLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.RecordRun(ctx, createTestRun("a01", i%2 == 0)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.RecordRun(ctx, createTestRun("a02", true)); err != nil {
		t.Fatal(err)
	}

	runs, err := s.History(ctx, "a01", 3)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	want := []string{"run-0005", "run-0004", "run-0003"}
	for i := range want {
		if runs[i].ID != want[i] {
			t.Errorf("run[%d] = %q, want %q", i, runs[i].ID, want[i])
		}
		if runs[i].Scenario != "a01" {
			t.Errorf("run[%d] scenario = %q", i, runs[i].Scenario)
		}
	}
	if !runs[0].Pass || runs[1].Pass {
		t.Errorf("pass flags = %v, %v; want true, false", runs[0].Pass, runs[1].Pass)
	}
}

func TestHistory_AllScenarios(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, sc := range []string{"a01", "a02", "a03"} {
		if _, err := s.RecordRun(ctx, createTestRun(sc, true)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.History(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].Scenario != "a03" {
		t.Errorf("newest run scenario = %q, want a03", runs[0].Scenario)
	}
}

func TestHistory_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.History(context.Background(), "none", 10)
	if err != nil {
		t.Fatal(err)
	}
	if runs == nil {
		t.Error("History() returned nil, want empty slice")
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrNotFound", err)
	}
}
