package plan

import (
	"fmt"

	"github.com/vladkar/flac-belcher/internal/cuesheet"
	"github.com/vladkar/flac-belcher/internal/resolve"
)

// ToEnd marks a job that runs to the end of its source file.
const ToEnd = cuesheet.Frames(-1)

// Kind distinguishes cue-driven extraction from whole-file conversion.
type Kind int

const (
	// KindSplit extracts a time range from a larger source file.
	KindSplit Kind = iota
	// KindConvert transcodes an entire standalone file.
	KindConvert
)

// Metadata is passed through to the transcoder as tag arguments; it
// never influences split boundaries.
type Metadata struct {
	Artist     string
	Album      string
	Title      string
	Genre      string
	Date       string
	TrackNum   int
	TrackTotal int
}

// Job is one transcoder invocation. Jobs for the same source are
// non-overlapping and ordered by start time; destinations are unique
// within a plan.
type Job struct {
	Kind       Kind
	Source     string
	SourceType resolve.Type
	Start      cuesheet.Frames
	End        cuesheet.Frames // exclusive; ToEnd for the block's last track
	Dest       string
	Label      string // CD index + track number + title, for humans
	Meta       Metadata
}

// RunsToEnd reports whether the job has no explicit end boundary.
func (j Job) RunsToEnd() bool { return j.End == ToEnd }

func (j Job) String() string {
	if j.Kind == KindConvert {
		return fmt.Sprintf("%s -> %s", j.Source, j.Dest)
	}
	end := "EOF"
	if !j.RunsToEnd() {
		end = j.End.String()
	}
	return fmt.Sprintf("%s [%s, %s) -> %s", j.Source, j.Start, end, j.Dest)
}
