package journal

import "time"

// Run summarizes one invocation of the splitter.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	InputDir      string
	OutputDir     string
	DryRun        bool
	Directories   int
	JobsTotal     int
	JobsSucceeded int
	JobsFailed    int
	JobsSkipped   int
}

// Finished reports whether the run recorded a completion time.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// JobRecord is the persisted outcome of a single dispatched job.
type JobRecord struct {
	Seq    int
	Kind   string
	Source string
	Dest   string
	Status string
	Detail string
}
