package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/vladkar/flac-belcher/internal/plan"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client runs ffmpeg for split and conversion jobs.
type Client struct {
	binary    string
	overwrite bool
	exec      Executor
}

// New constructs an ffmpeg client around the given binary path.
func New(binary string, overwrite bool, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{binary: binary, overwrite: overwrite, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Execute runs the transcoder for one job, forwarding each output line
// to onLine (which may be nil). ffmpeg writes its diagnostics to
// stderr; both streams are scanned.
func (c *Client) Execute(ctx context.Context, job plan.Job, onLine func(string)) error {
	if err := c.exec.Run(ctx, c.binary, c.Args(job), onLine); err != nil {
		return fmt.Errorf("ffmpeg %s: %w", job.Label, err)
	}
	return nil
}

// Args builds the full transcoder argument list for a job. Time
// positions come from integer frame counts, rendered once with
// microsecond precision; the cue metadata rides along as -metadata
// pass-through pairs.
func (c *Client) Args(job plan.Job) []string {
	args := []string{"-nostats", "-hide_banner"}
	if c.overwrite {
		args = append(args, "-y")
	} else {
		args = append(args, "-n")
	}
	args = append(args, "-i", job.Source)

	if job.Kind == plan.KindSplit {
		args = append(args, "-ss", job.Start.Position())
		if !job.RunsToEnd() {
			args = append(args, "-t", (job.End - job.Start).Position())
		}
		args = append(args, metadataArgs(job.Meta)...)
	}

	return append(args, job.Dest)
}

func metadataArgs(meta plan.Metadata) []string {
	var args []string
	appendTag := func(key, value string) {
		if value == "" {
			return
		}
		args = append(args, "-metadata", key+"="+value)
	}
	appendTag("artist", meta.Artist)
	appendTag("album", meta.Album)
	appendTag("title", meta.Title)
	appendTag("genre", meta.Genre)
	appendTag("date", meta.Date)
	if meta.TrackNum > 0 {
		track := fmt.Sprintf("%d", meta.TrackNum)
		if meta.TrackTotal > 0 {
			track = fmt.Sprintf("%d/%d", meta.TrackNum, meta.TrackTotal)
		}
		appendTag("track", track)
	}
	return args
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
