package ffmpeg_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/vladkar/flac-belcher/internal/cuesheet"
	"github.com/vladkar/flac-belcher/internal/ffmpeg"
	"github.com/vladkar/flac-belcher/internal/plan"
)

type recordingExecutor struct {
	binary string
	args   []string
	err    error
	lines  []string
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string, onLine func(string)) error {
	r.binary = binary
	r.args = args
	for _, line := range r.lines {
		if onLine != nil {
			onLine(line)
		}
	}
	return r.err
}

func splitJob() plan.Job {
	return plan.Job{
		Kind:   plan.KindSplit,
		Source: "/in/album.flac",
		Start:  cuesheet.Frames(4 * 60 * 75),        // 4:00
		End:    cuesheet.Frames((8*60 + 30) * 75),   // 8:30
		Dest:   "/out/02 - Two.flac",
		Label:  "track 02 - Two",
		Meta: plan.Metadata{
			Artist: "Artist", Album: "Album", Title: "Two",
			Genre: "Rock", Date: "1973", TrackNum: 2, TrackTotal: 3,
		},
	}
}

func TestArgsForSplitJob(t *testing.T) {
	client, err := ffmpeg.New("ffmpeg", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	args := client.Args(splitJob())

	wantPrefix := []string{"-nostats", "-hide_banner", "-n", "-i", "/in/album.flac", "-ss", "240.000000", "-t", "270.000000"}
	if len(args) < len(wantPrefix) || !slices.Equal(args[:len(wantPrefix)], wantPrefix) {
		t.Fatalf("args prefix = %v, want %v", args, wantPrefix)
	}
	if args[len(args)-1] != "/out/02 - Two.flac" {
		t.Errorf("last arg = %q", args[len(args)-1])
	}
	wantTags := map[string]bool{
		"artist=Artist": false, "album=Album": false, "title=Two": false,
		"genre=Rock": false, "date=1973": false, "track=2/3": false,
	}
	for i, a := range args {
		if a == "-metadata" && i+1 < len(args) {
			if _, ok := wantTags[args[i+1]]; ok {
				wantTags[args[i+1]] = true
			}
		}
	}
	for tag, seen := range wantTags {
		if !seen {
			t.Errorf("missing metadata %q in %v", tag, args)
		}
	}
}

func TestArgsLastTrackOmitsDuration(t *testing.T) {
	client, _ := ffmpeg.New("ffmpeg", false)
	job := splitJob()
	job.End = plan.ToEnd
	args := client.Args(job)
	if slices.Contains(args, "-t") {
		t.Fatalf("EOF job must not carry -t: %v", args)
	}
	if !slices.Contains(args, "-ss") {
		t.Fatalf("EOF job still needs -ss: %v", args)
	}
}

func TestArgsForConversionJob(t *testing.T) {
	client, _ := ffmpeg.New("ffmpeg", true)
	args := client.Args(plan.Job{
		Kind:   plan.KindConvert,
		Source: "/in/loose.ape",
		End:    plan.ToEnd,
		Dest:   "/out/loose.flac",
	})
	want := []string{"-nostats", "-hide_banner", "-y", "-i", "/in/loose.ape", "/out/loose.flac"}
	if !slices.Equal(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
}

func TestExecuteForwardsOutputAndErrors(t *testing.T) {
	rec := &recordingExecutor{lines: []string{"size=100", "done"}, err: errors.New("exit status 1")}
	client, err := ffmpeg.New("ffmpeg", false, ffmpeg.WithExecutor(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var captured []string
	execErr := client.Execute(context.Background(), splitJob(), func(line string) {
		captured = append(captured, line)
	})
	if execErr == nil {
		t.Fatal("expected error from executor")
	}
	if len(captured) != 2 {
		t.Fatalf("captured = %v", captured)
	}
	if rec.binary != "ffmpeg" {
		t.Errorf("binary = %q", rec.binary)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ffmpeg.New("  ", false); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
