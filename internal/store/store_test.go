package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/executor"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "walkthrough.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func result(section, step string, status workflow.Status, image string, ts time.Time) workflow.StepResult {
	r := workflow.StepResult{
		Section:   section,
		Step:      step,
		Position:  1,
		Action:    workflow.ActionClick,
		Status:    status,
		ImagePath: image,
		Timestamp: ts,
	}
	if status == workflow.StatusFailed {
		r.Failure = &workflow.Failure{Kind: workflow.FailureBackend, Message: "no window", Action: "click", Target: "(1,1)"}
	}
	return r
}

func TestSaveRunAndLatestResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	full := &executor.Run{
		ID: "run-1", Wallet: "Sparrow", Sections: []string{"setup", "usage"},
		StartedAt: t0, FinishedAt: t0.Add(time.Minute),
		Results: []workflow.StepResult{
			result("setup", "Launch", workflow.StatusSucceeded, "screenshots/setup_launch.png", t0),
			result("usage", "Main window", workflow.StatusSucceeded, "screenshots/usage_main_window.png", t0.Add(time.Second)),
		},
	}
	partial := &executor.Run{
		ID: "run-2", Wallet: "Sparrow", Sections: []string{"usage"},
		StartedAt: t0.Add(time.Hour), FinishedAt: t0.Add(time.Hour),
		Results: []workflow.StepResult{
			result("usage", "Main window", workflow.StatusFailed, "", t0.Add(time.Hour)),
		},
	}
	for _, r := range []*executor.Run{full, partial} {
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", r.ID, err)
		}
	}

	latest, err := s.LatestResults(ctx, "Sparrow")
	if err != nil {
		t.Fatalf("LatestResults failed: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected one result per step, got %+v", latest)
	}
	if latest[0].Step != "Launch" || latest[0].RunID != "run-1" || latest[0].ImagePath == "" {
		t.Errorf("setup step should come from the full run, got %+v", latest[0])
	}
	main := latest[1]
	if main.RunID != "run-2" || main.Status != workflow.StatusFailed || main.Failure == nil || main.Failure.Message != "no window" {
		t.Errorf("usage step should come from the newer run, got %+v", main)
	}
	if !main.Timestamp.Equal(t0.Add(time.Hour)) || main.Action != workflow.ActionClick {
		t.Errorf("fields not round-tripped: %+v", main)
	}

	runs, err := s.Runs(ctx, "Sparrow")
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[0].Failed != 1 || runs[1].Steps != 2 {
		t.Errorf("unexpected run summaries %+v", runs)
	}

	wallets, err := s.Wallets(ctx)
	if err != nil || len(wallets) != 1 || wallets[0] != "Sparrow" {
		t.Errorf("unexpected wallets %v, %v", wallets, err)
	}
}

func TestRunResultsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	run := &executor.Run{ID: "r", Wallet: "Electrum", StartedAt: now, FinishedAt: now, Results: []workflow.StepResult{
		result("b", "second", workflow.StatusSucceeded, "", now),
		result("a", "first", workflow.StatusSucceeded, "", now),
	}}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	got, err := s.RunResults(ctx, "r")
	if err != nil || len(got) != 2 || got[0].Step != "second" {
		t.Errorf("results must keep execution order, got %+v, %v", got, err)
	}
}

func TestReviewState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st, ok, err := s.ReviewState(ctx, "sparrow")
	if err != nil || ok || st.Wallet != "sparrow" {
		t.Fatalf("expected no state yet, got %+v, %v, %v", st, ok, err)
	}

	staged := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := s.PutReviewState(ctx, ReviewState{Wallet: "sparrow", State: StateStaging, StagedAt: staged}); err != nil {
		t.Fatal(err)
	}
	published := staged.Add(time.Hour)
	if err := s.PutReviewState(ctx, ReviewState{Wallet: "sparrow", State: StatePublished, StagedAt: staged, PublishedAt: published}); err != nil {
		t.Fatal(err)
	}

	st, ok, err = s.ReviewState(ctx, "sparrow")
	if err != nil || !ok {
		t.Fatalf("ReviewState failed: %v, %v", ok, err)
	}
	if st.State != StatePublished || !st.StagedAt.Equal(staged) || !st.PublishedAt.Equal(published) {
		t.Errorf("unexpected state %+v", st)
	}
}
