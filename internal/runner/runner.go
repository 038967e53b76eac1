package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/vladkar/flac-belcher/internal/config"
	"github.com/vladkar/flac-belcher/internal/cuesheet"
	"github.com/vladkar/flac-belcher/internal/dispatch"
	"github.com/vladkar/flac-belcher/internal/journal"
	"github.com/vladkar/flac-belcher/internal/logging"
	"github.com/vladkar/flac-belcher/internal/plan"
	"github.com/vladkar/flac-belcher/internal/resolve"
	"github.com/vladkar/flac-belcher/internal/scanner"
)

// lockFileName guards the output tree against concurrent runs.
const lockFileName = ".flac-belcher.lock"

// sourceRefName is the provenance file written next to produced
// tracks.
const sourceRefName = "source_ref.txt"

// ErrJobsFailed marks a run that completed with at least one failed
// job. The summary is still valid when this is returned.
var ErrJobsFailed = errors.New("some jobs failed")

// Runner executes full split runs over the configured input tree.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	scanner    *scanner.Scanner
	resolver   *resolve.Resolver
	builder    *plan.Builder
	dispatcher *dispatch.Dispatcher
	journal    *journal.Store
}

// New constructs a runner. journal may be nil to disable history
// recording.
func New(cfg *config.Config, logger *slog.Logger, transcoder dispatch.Transcoder, store *journal.Store) (*Runner, error) {
	if cfg == nil || logger == nil || transcoder == nil {
		return nil, errors.New("runner requires config, logger, and transcoder")
	}
	return &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "runner"),
		scanner:    scanner.New(logger),
		resolver:   resolve.New(),
		builder:    plan.NewBuilder(logger),
		dispatcher: dispatch.New(transcoder, logger),
		journal:    store,
	}, nil
}

// DirectoryPlan is the planning result for one scanned directory.
type DirectoryPlan struct {
	SourceDir string
	OutputDir string
	Jobs      []plan.Job
}

// Skip records a directory the run left untouched.
type Skip struct {
	Path   string
	Reason string
}

// Preview is everything a run would do, computed without dispatching.
type Preview struct {
	Directories []DirectoryPlan
	BadCues     []Skip
	CueOnly     []string
	Skipped     []Skip
	Formats     map[string]int
}

// Jobs flattens the preview into dispatch order.
func (p *Preview) Jobs() []plan.Job {
	var jobs []plan.Job
	for _, dir := range p.Directories {
		jobs = append(jobs, dir.Jobs...)
	}
	return jobs
}

// Summary is the result of a completed run.
type Summary struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	DryRun        bool
	Directories   int
	BadCues       []Skip
	CueOnly       []string
	Skipped       []Skip
	Formats       map[string]int
	Outcomes      []dispatch.Outcome
	JobsSucceeded int
	JobsFailed    int
	JobsSkipped   int
}

// Plan walks the input tree and builds every directory's job list
// without touching the output tree.
func (r *Runner) Plan(ctx context.Context) (*Preview, error) {
	dirs, err := r.scanner.Scan(r.cfg.Paths.DirIn)
	if err != nil {
		return nil, err
	}

	preview := &Preview{Formats: make(map[string]int)}
	for i, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !dir.HasMusic() {
			continue
		}
		r.logger.Info("processing directory",
			logging.Args(
				logging.String(logging.FieldDirectory, dir.Path),
				logging.Int("index", i+1),
				logging.Int("total", len(dirs)),
			)...)
		if dir.CueOnly() {
			r.logger.Warn("cue sheet without audio", logging.Args(logging.String(logging.FieldDirectory, dir.Path))...)
			preview.CueOnly = append(preview.CueOnly, dir.Path)
			continue
		}

		outDir, err := r.mirrorDir(dir.Path)
		if err != nil {
			return nil, err
		}
		jobs, err := r.planDirectory(dir, outDir, preview.Formats)
		if err != nil {
			skip := Skip{Path: dir.Path, Reason: err.Error()}
			if isBadCue(err) {
				preview.BadCues = append(preview.BadCues, skip)
			} else {
				preview.Skipped = append(preview.Skipped, skip)
			}
			r.logger.Warn("skipping directory",
				logging.Args(
					logging.String(logging.FieldDirectory, dir.Path),
					logging.Error(err),
				)...)
			continue
		}
		if len(jobs) == 0 {
			continue
		}
		preview.Directories = append(preview.Directories, DirectoryPlan{
			SourceDir: dir.Path,
			OutputDir: outDir,
			Jobs:      jobs,
		})
	}
	return preview, nil
}

// Run plans and dispatches the whole input tree. The returned summary
// is valid even when the error is ErrJobsFailed.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(r.cfg.Paths.DirOut, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another flac-belcher run holds the output directory")
	}
	defer func() { _ = lock.Unlock() }()

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		DryRun:    r.cfg.Split.DryRun,
	}
	runLogger := r.logger.With(logging.String(logging.FieldRunID, summary.RunID))
	runLogger.Info("run started",
		logging.Args(
			logging.String("dir_in", r.cfg.Paths.DirIn),
			logging.String("dir_out", r.cfg.Paths.DirOut),
			logging.Bool("dry_run", summary.DryRun),
		)...)

	preview, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}
	summary.Directories = len(preview.Directories)
	summary.BadCues = preview.BadCues
	summary.CueOnly = preview.CueOnly
	summary.Skipped = preview.Skipped
	summary.Formats = preview.Formats

	jobs := preview.Jobs()
	if r.journal != nil {
		if err := r.journal.BeginRun(ctx, journal.Run{
			ID:        summary.RunID,
			StartedAt: summary.StartedAt,
			InputDir:  r.cfg.Paths.DirIn,
			OutputDir: r.cfg.Paths.DirOut,
			DryRun:    summary.DryRun,
		}); err != nil {
			runLogger.Warn("journal begin failed", logging.Args(logging.Error(err))...)
		}
	}

	if !summary.DryRun {
		if err := ensureJobDirs(jobs); err != nil {
			return nil, err
		}
	}

	outcomes, err := r.dispatcher.Dispatch(ctx, jobs, dispatch.Options{
		Workers:       r.cfg.Split.Workers,
		DryRun:        summary.DryRun,
		ForwardOutput: !r.cfg.Transcoder.HideLogs,
	})
	if err != nil {
		return nil, err
	}
	summary.Outcomes = outcomes
	for _, outcome := range outcomes {
		switch outcome.Status {
		case dispatch.StatusSucceeded:
			summary.JobsSucceeded++
		case dispatch.StatusFailed:
			summary.JobsFailed++
		case dispatch.StatusSkippedDryRun:
			summary.JobsSkipped++
		}
	}

	if !summary.DryRun {
		r.writeSourceRefs(runLogger, preview, outcomes)
	}

	summary.FinishedAt = time.Now().UTC()
	r.record(ctx, runLogger, summary)
	r.logSummary(runLogger, summary)

	if summary.JobsFailed > 0 {
		return summary, ErrJobsFailed
	}
	return summary, nil
}

// planDirectory builds the job list for one directory: parse every
// cue, resolve each file block, then run the multi-CD planner. A
// directory with audio and no cue falls back to whole-file conversion.
func (r *Runner) planDirectory(dir scanner.Directory, outDir string, formats map[string]int) ([]plan.Job, error) {
	if len(dir.CueFiles) == 0 {
		return r.conversionJobs(dir, outDir, formats)
	}

	var inputs []plan.SheetInput
	for _, cue := range dir.CueFiles {
		sheet, err := cuesheet.Parse(cue.Path, cue.Text)
		if err != nil {
			return nil, err
		}
		input := plan.SheetInput{Sheet: sheet}
		for _, block := range sheet.Files {
			resolved, err := r.resolver.Resolve(dir.Path, block.Name, dir.Entries())
			if err != nil {
				return nil, err
			}
			formats[string(resolved.Type)]++
			input.Blocks = append(input.Blocks, resolved)
		}
		inputs = append(inputs, input)
	}

	jobs, err := r.builder.Build(outDir, inputs)
	if errors.Is(err, plan.ErrNoCueSheet) {
		return r.conversionJobs(dir, outDir, formats)
	}
	return jobs, err
}

// conversionJobs handles directories with loose audio and no cue
// sheet: each file becomes a whole-file transcode.
func (r *Runner) conversionJobs(dir scanner.Directory, outDir string, formats map[string]int) ([]plan.Job, error) {
	var files []resolve.Resolved
	for _, name := range dir.AudioFiles {
		resolved, err := r.resolver.Classify(dir.Path, name)
		if err != nil {
			return nil, err
		}
		if resolved.Type == resolve.TypeUnknown {
			r.logger.Warn("unrecognized audio content",
				logging.Args(logging.String("file", resolved.Path))...)
			continue
		}
		formats[string(resolved.Type)]++
		files = append(files, resolved)
	}
	return plan.ConversionJobs(outDir, files), nil
}

// mirrorDir maps a source directory to its output twin under dir_out.
func (r *Runner) mirrorDir(sourceDir string) (string, error) {
	rel, err := filepath.Rel(r.cfg.Paths.DirIn, sourceDir)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", sourceDir, err)
	}
	if rel == "." {
		return r.cfg.Paths.DirOut, nil
	}
	return filepath.Join(r.cfg.Paths.DirOut, rel), nil
}

// writeSourceRefs drops a provenance file into every output directory
// whose jobs all succeeded.
func (r *Runner) writeSourceRefs(logger *slog.Logger, preview *Preview, outcomes []dispatch.Outcome) {
	failedDests := make(map[string]bool)
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failedDests[filepath.Dir(outcome.Job.Dest)] = true
		}
	}
	for _, dir := range preview.Directories {
		if failedDests[dir.OutputDir] {
			continue
		}
		refPath := filepath.Join(dir.OutputDir, sourceRefName)
		if err := os.WriteFile(refPath, []byte(dir.SourceDir+"\n"), 0o644); err != nil {
			logger.Warn("write source reference",
				logging.Args(logging.String("path", refPath), logging.Error(err))...)
		}
	}
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, summary *Summary) {
	if r.journal == nil {
		return
	}
	records := make([]journal.JobRecord, 0, len(summary.Outcomes))
	for i, outcome := range summary.Outcomes {
		kind := "split"
		if outcome.Job.Kind == plan.KindConvert {
			kind = "convert"
		}
		records = append(records, journal.JobRecord{
			Seq:    i,
			Kind:   kind,
			Source: outcome.Job.Source,
			Dest:   outcome.Job.Dest,
			Status: string(outcome.Status),
			Detail: outcome.Detail,
		})
	}
	err := r.journal.FinishRun(ctx, journal.Run{
		ID:            summary.RunID,
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
		InputDir:      r.cfg.Paths.DirIn,
		OutputDir:     r.cfg.Paths.DirOut,
		DryRun:        summary.DryRun,
		Directories:   summary.Directories,
		JobsTotal:     len(summary.Outcomes),
		JobsSucceeded: summary.JobsSucceeded,
		JobsFailed:    summary.JobsFailed,
		JobsSkipped:   summary.JobsSkipped,
	}, records)
	if err != nil {
		logger.Warn("journal finish failed", logging.Args(logging.Error(err))...)
	}
}

func (r *Runner) logSummary(logger *slog.Logger, summary *Summary) {
	formats := make([]string, 0, len(summary.Formats))
	for format := range summary.Formats {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	logger.Info("run finished",
		logging.Args(
			logging.Int("directories", summary.Directories),
			logging.Int("succeeded", summary.JobsSucceeded),
			logging.Int("failed", summary.JobsFailed),
			logging.Int("skipped", summary.JobsSkipped),
			logging.String("formats", joinOrNone(formats)),
			logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		)...)
	for _, bad := range summary.BadCues {
		logger.Warn("bad cue sheet",
			logging.Args(logging.String(logging.FieldDirectory, bad.Path), logging.String("reason", bad.Reason))...)
	}
	for _, dir := range summary.CueOnly {
		logger.Warn("cue without audio", logging.Args(logging.String(logging.FieldDirectory, dir))...)
	}
}

func ensureJobDirs(jobs []plan.Job) error {
	seen := make(map[string]bool)
	for _, job := range jobs {
		dir := filepath.Dir(job.Dest)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// isBadCue separates unparseable or inconsistent cue material from
// environmental problems like unreadable files.
func isBadCue(err error) bool {
	var parseErr *cuesheet.ParseError
	if errors.As(err, &parseErr) {
		return true
	}
	return errors.Is(err, cuesheet.ErrUnorderedTracks) ||
		errors.Is(err, cuesheet.ErrNoTracks) ||
		errors.Is(err, plan.ErrConflictingCues) ||
		errors.Is(err, resolve.ErrNotFound) ||
		errors.Is(err, resolve.ErrAmbiguous)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	out := values[0]
	for _, v := range values[1:] {
		out += "," + v
	}
	return out
}
