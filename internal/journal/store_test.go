package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/vladkar/flac-belcher/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	run := journal.Run{
		ID:        "run-1",
		StartedAt: started,
		InputDir:  "/music/in",
		OutputDir: "/music/out",
		DryRun:    true,
	}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun returned error: %v", err)
	}

	run.FinishedAt = started.Add(90 * time.Second)
	run.Directories = 2
	run.JobsTotal = 3
	run.JobsSucceeded = 2
	run.JobsFailed = 1
	jobs := []journal.JobRecord{
		{Seq: 0, Kind: "split", Source: "/music/in/a/image.flac", Dest: "/music/out/a/01 - One.flac", Status: "succeeded"},
		{Seq: 1, Kind: "split", Source: "/music/in/a/image.flac", Dest: "/music/out/a/02 - Two.flac", Status: "failed", Detail: "exit status 1"},
		{Seq: 2, Kind: "convert", Source: "/music/in/b/song.ape", Dest: "/music/out/b/song.flac", Status: "succeeded"},
	}
	if err := store.FinishRun(ctx, run, jobs); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || !got.DryRun || got.JobsFailed != 1 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("unexpected started at: %v", got.StartedAt)
	}
	if !got.Finished() {
		t.Fatal("expected run to be finished")
	}

	stored, err := store.RunJobs(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunJobs returned error: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(stored))
	}
	if stored[1].Status != "failed" || stored[1].Detail != "exit status 1" {
		t.Fatalf("unexpected failed job: %+v", stored[1])
	}
	if stored[0].Detail != "" {
		t.Fatalf("expected empty detail, got %q", stored[0].Detail)
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := journal.Run{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			InputDir:  "/in",
			OutputDir: "/out",
		}
		if err := store.BeginRun(ctx, run); err != nil {
			t.Fatalf("BeginRun returned error: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns returned error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "e" || runs[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if runs[0].Finished() {
		t.Fatal("expected unfinished run")
	}
}

func TestRunJobsUnknownRunReturnsEmpty(t *testing.T) {
	store := openStore(t)
	jobs, err := store.RunJobs(context.Background(), "missing")
	if err != nil {
		t.Fatalf("RunJobs returned error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}
