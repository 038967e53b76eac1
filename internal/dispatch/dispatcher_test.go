package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vladkar/flac-belcher/internal/cuesheet"
	"github.com/vladkar/flac-belcher/internal/dispatch"
	"github.com/vladkar/flac-belcher/internal/logging"
	"github.com/vladkar/flac-belcher/internal/plan"
)

// fakeTranscoder records invocations and fails on demand. It never
// touches the filesystem.
type fakeTranscoder struct {
	mu       sync.Mutex
	executed []string
	failOn   map[string]error
	output   []string
	block    chan struct{} // when set, jobs wait here before finishing
}

func (f *fakeTranscoder) Execute(ctx context.Context, job plan.Job, onLine func(string)) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.executed = append(f.executed, job.Label)
	f.mu.Unlock()
	for _, line := range f.output {
		onLine(line)
	}
	if err, ok := f.failOn[job.Label]; ok {
		return err
	}
	return nil
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fLaC....audio data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func threeJobs(t *testing.T) []plan.Job {
	t.Helper()
	dir := t.TempDir()
	src := writeSource(t, dir, "album.flac")
	mk := func(n int, start, end cuesheet.Frames) plan.Job {
		return plan.Job{
			Kind:   plan.KindSplit,
			Source: src,
			Start:  start,
			End:    end,
			Dest:   filepath.Join(dir, "out", fmt.Sprintf("%02d.flac", n)),
			Label:  fmt.Sprintf("track %d", n),
		}
	}
	return []plan.Job{
		mk(1, 0, 100),
		mk(2, 100, 200),
		mk(3, 200, plan.ToEnd),
	}
}

func TestDispatchOutcomeOrderMatchesJobOrder(t *testing.T) {
	jobs := threeJobs(t)
	ft := &fakeTranscoder{}
	d := dispatch.New(ft, logging.NewNop())

	outcomes, err := d.Dispatch(context.Background(), jobs, dispatch.Options{Workers: 3})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(outcomes) != len(jobs) {
		t.Fatalf("outcomes = %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Job.Label != jobs[i].Label {
			t.Errorf("outcome %d is %q, want %q", i, o.Job.Label, jobs[i].Label)
		}
		if o.Status != dispatch.StatusSucceeded {
			t.Errorf("outcome %d status = %s", i, o.Status)
		}
	}
}

func TestDispatchFailureIsolation(t *testing.T) {
	jobs := threeJobs(t)
	ft := &fakeTranscoder{
		failOn: map[string]error{"track 2": errors.New("exit status 1")},
		output: []string{"some diagnostic"},
	}
	d := dispatch.New(ft, logging.NewNop())

	outcomes, err := d.Dispatch(context.Background(), jobs, dispatch.Options{Workers: 1})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := []dispatch.Status{dispatch.StatusSucceeded, dispatch.StatusFailed, dispatch.StatusSucceeded}
	for i, o := range outcomes {
		if o.Status != want[i] {
			t.Errorf("outcome %d = %s, want %s", i, o.Status, want[i])
		}
	}
	if !strings.Contains(outcomes[1].Detail, "exit status 1") || !strings.Contains(outcomes[1].Detail, "some diagnostic") {
		t.Errorf("failure detail = %q", outcomes[1].Detail)
	}
}

func TestDispatchDryRun(t *testing.T) {
	jobs := threeJobs(t)
	ft := &fakeTranscoder{}
	d := dispatch.New(ft, logging.NewNop())

	outcomes, err := d.Dispatch(context.Background(), jobs, dispatch.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for i, o := range outcomes {
		if o.Status != dispatch.StatusSkippedDryRun {
			t.Errorf("outcome %d = %s", i, o.Status)
		}
	}
	if len(ft.executed) != 0 {
		t.Fatalf("dry run invoked the transcoder: %v", ft.executed)
	}
	// No destinations may exist.
	for _, job := range jobs {
		if _, err := os.Stat(job.Dest); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("dry run left %s behind", job.Dest)
		}
	}
}

func TestDispatchDryRunStillValidates(t *testing.T) {
	jobs := threeJobs(t)
	jobs[1].Start = 50 // overlaps job 1's [0, 100)
	d := dispatch.New(&fakeTranscoder{}, logging.NewNop())

	if _, err := d.Dispatch(context.Background(), jobs, dispatch.Options{DryRun: true}); err == nil {
		t.Fatal("expected validation error for overlapping ranges in dry run")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.flac")

	base := plan.Job{Kind: plan.KindSplit, Source: src, Label: "t"}

	t.Run("missing source", func(t *testing.T) {
		job := base
		job.Source = filepath.Join(dir, "nope.flac")
		job.Dest = filepath.Join(dir, "x.flac")
		job.End = plan.ToEnd
		if err := dispatch.Validate([]plan.Job{job}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		job := base
		job.Dest = filepath.Join(dir, "x.flac")
		job.Start = 200
		job.End = 100
		if err := dispatch.Validate([]plan.Job{job}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("duplicate destination", func(t *testing.T) {
		a := base
		a.Dest = filepath.Join(dir, "same.flac")
		a.End = 10
		b := base
		b.Dest = a.Dest
		b.Start = 10
		b.End = plan.ToEnd
		if err := dispatch.Validate([]plan.Job{a, b}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("to-end job before another job", func(t *testing.T) {
		a := base
		a.Dest = filepath.Join(dir, "a.out.flac")
		a.End = plan.ToEnd
		b := base
		b.Dest = filepath.Join(dir, "b.out.flac")
		b.Start = 500
		b.End = plan.ToEnd
		if err := dispatch.Validate([]plan.Job{a, b}); err == nil {
			t.Fatal("expected overlap error when a to-end job precedes another")
		}
	})

	t.Run("valid plan", func(t *testing.T) {
		a := base
		a.Dest = filepath.Join(dir, "ok1.flac")
		a.End = 100
		b := base
		b.Dest = filepath.Join(dir, "ok2.flac")
		b.Start = 100
		b.End = plan.ToEnd
		if err := dispatch.Validate([]plan.Job{a, b}); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}

func TestDispatchCancellation(t *testing.T) {
	jobs := threeJobs(t)
	ft := &fakeTranscoder{block: make(chan struct{})}
	d := dispatch.New(ft, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var outcomes []dispatch.Outcome
	var dispatchErr error
	go func() {
		outcomes, dispatchErr = d.Dispatch(ctx, jobs, dispatch.Options{Workers: 1})
		close(done)
	}()
	cancel()
	<-done

	if dispatchErr != nil {
		t.Fatalf("Dispatch: %v", dispatchErr)
	}
	if len(outcomes) != len(jobs) {
		t.Fatalf("outcomes = %d, want %d (every job accounted for)", len(outcomes), len(jobs))
	}
	for i, o := range outcomes {
		if o.Status != dispatch.StatusFailed {
			t.Errorf("outcome %d after cancellation = %s", i, o.Status)
		}
	}
}
