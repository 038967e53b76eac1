package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/vladkar/flac-belcher/internal/logging"
	"github.com/vladkar/flac-belcher/internal/plan"
)

// Status classifies how a job ended.
type Status string

const (
	StatusSucceeded     Status = "succeeded"
	StatusFailed        Status = "failed"
	StatusSkippedDryRun Status = "skipped-dry-run"
)

// Outcome reports one job's result. Detail carries the tail of the
// transcoder's output when the job failed.
type Outcome struct {
	Job    plan.Job
	Status Status
	Detail string
}

// Failed reports whether the outcome represents a failure.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

// Transcoder is the execution dependency: one blocking subprocess per
// job, output forwarded line by line.
type Transcoder interface {
	Execute(ctx context.Context, job plan.Job, onLine func(string)) error
}

// Options tunes a dispatch run.
type Options struct {
	// Workers caps pool size; <= 0 means available CPU parallelism.
	Workers int
	// DryRun validates and reports without invoking the transcoder.
	DryRun bool
	// ForwardOutput mirrors transcoder output to the logger as it
	// arrives. Captured text is retained for outcomes either way.
	ForwardOutput bool
}

// detailLimit bounds captured diagnostic text per job.
const detailLimit = 8 * 1024

// Dispatcher fans jobs out to workers and reassembles ordered results.
type Dispatcher struct {
	transcoder Transcoder
	logger     *slog.Logger
}

// New constructs a dispatcher around the given transcoder.
func New(transcoder Transcoder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transcoder: transcoder,
		logger:     logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Dispatch runs the plan and returns outcomes matching the input job
// order. Validation failures abort before anything executes, in dry
// runs too, so a dry run surfaces the same structural errors a real
// run would. Context cancellation terminates in-flight transcoder
// processes; finished outputs stay in place.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []plan.Job, opts Options) ([]Outcome, error) {
	if err := Validate(jobs); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	if opts.DryRun {
		outcomes := make([]Outcome, len(jobs))
		for i, job := range jobs {
			outcomes[i] = Outcome{Job: job, Status: StatusSkippedDryRun}
		}
		return outcomes, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	type indexed struct {
		idx int
		job plan.Job
	}
	queue := make(chan indexed)
	outcomes := make([]Outcome, len(jobs))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for item := range queue {
				outcomes[item.idx] = d.runJob(ctx, item.job, opts)
			}
		}()
	}

feed:
	for i, job := range jobs {
		select {
		case queue <- indexed{idx: i, job: job}:
		case <-ctx.Done():
			// Unfed jobs fail with the cancellation reason; workers
			// drain on the closed channel below.
			for j := i; j < len(jobs); j++ {
				outcomes[j] = Outcome{Job: jobs[j], Status: StatusFailed, Detail: ctx.Err().Error()}
			}
			break feed
		}
	}
	close(queue)
	wg.Wait()

	return outcomes, nil
}

func (d *Dispatcher) runJob(ctx context.Context, job plan.Job, opts Options) Outcome {
	var tail outputTail
	err := d.transcoder.Execute(ctx, job, func(line string) {
		tail.append(line)
		if opts.ForwardOutput {
			d.logger.Debug("transcoder", logging.String("job", job.Label), logging.String("line", line))
		}
	})
	if err != nil {
		d.logger.Error("job failed", logging.String("job", job.Label), logging.Error(err))
		detail := err.Error()
		if captured := tail.String(); captured != "" {
			detail += "\n" + captured
		}
		return Outcome{Job: job, Status: StatusFailed, Detail: detail}
	}
	d.logger.Info("job finished", logging.String("job", job.Label), logging.String("dest", job.Dest))
	return Outcome{Job: job, Status: StatusSucceeded}
}

// Validate checks the structural invariants every run relies on:
// sources exist, ranges are well formed, jobs on the same source do
// not overlap, and destinations are unique.
func Validate(jobs []plan.Job) error {
	dests := make(map[string]string, len(jobs))
	bySource := make(map[string][]plan.Job)
	for _, job := range jobs {
		if job.Source == "" || job.Dest == "" {
			return fmt.Errorf("job %q: missing source or destination", job.Label)
		}
		if info, err := os.Stat(job.Source); err != nil {
			return fmt.Errorf("job %q: source: %w", job.Label, err)
		} else if info.IsDir() {
			return fmt.Errorf("job %q: source %s is a directory", job.Label, job.Source)
		}
		if job.Start < 0 {
			return fmt.Errorf("job %q: negative start offset", job.Label)
		}
		if !job.RunsToEnd() && job.End <= job.Start {
			return fmt.Errorf("job %q: empty or inverted range [%v, %v)", job.Label, job.Start, job.End)
		}
		if prev, dup := dests[job.Dest]; dup {
			return fmt.Errorf("destination %s claimed by both %q and %q", job.Dest, prev, job.Label)
		}
		dests[job.Dest] = job.Label
		bySource[job.Source] = append(bySource[job.Source], job)
	}

	for source, group := range bySource {
		sorted := make([]plan.Job, len(group))
		copy(sorted, group)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
		for i := 1; i < len(sorted); i++ {
			prev := sorted[i-1]
			if prev.RunsToEnd() || prev.End > sorted[i].Start {
				return fmt.Errorf("jobs %q and %q overlap on %s", prev.Label, sorted[i].Label, source)
			}
		}
	}
	return nil
}

// outputTail keeps the last chunk of process output without unbounded
// growth; transcoder failures usually explain themselves at the end.
type outputTail struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func (t *outputTail) append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	t.size += len(line) + 1
	for t.size > detailLimit && len(t.lines) > 1 {
		t.size -= len(t.lines[0]) + 1
		t.lines = t.lines[1:]
	}
}

func (t *outputTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
