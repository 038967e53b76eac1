package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladkar/flac-belcher/internal/deps"
	"github.com/vladkar/flac-belcher/internal/ffmpeg"
	"github.com/vladkar/flac-belcher/internal/journal"
	"github.com/vladkar/flac-belcher/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		dirIn     string
		dirOut    string
		dryRun    bool
		workers   int
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan the input tree and split every album",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if dirIn != "" {
				cfg.Paths.DirIn = dirIn
			}
			if dirOut != "" {
				cfg.Paths.DirOut = dirOut
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.Split.DryRun = dryRun
			}
			if cmd.Flags().Changed("workers") {
				cfg.Split.Workers = workers
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Transcoder.Overwrite = overwrite
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := preflight(cfg.Transcoder.FFmpegPath); err != nil {
				return err
			}

			logger, cleanup, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			client, err := ffmpeg.New(cfg.Transcoder.FFmpegPath, cfg.Transcoder.Overwrite)
			if err != nil {
				return err
			}

			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			store, err := journal.Open(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := runner.New(cfg, logger, client, store)
			if err != nil {
				return err
			}

			summary, err := r.Run(cmd.Context())
			if err != nil && !errors.Is(err, runner.ErrJobsFailed) {
				return err
			}
			printSummary(cmd, summary)
			return err
		},
	}

	cmd.Flags().StringVar(&dirIn, "dir-in", "", "Input root to scan (overrides config)")
	cmd.Flags().StringVar(&dirOut, "dir-out", "", "Output root for split tracks (overrides config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and validate without invoking ffmpeg")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent ffmpeg processes (0 = all CPUs)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing destination files")
	return cmd
}

// preflight fails fast when the external transcoder is unavailable.
func preflight(ffmpegPath string) error {
	for _, status := range deps.CheckBinaries(deps.Requirements(ffmpegPath)) {
		if !status.Available && !status.Optional {
			return fmt.Errorf("%s unavailable: %s", status.Name, status.Detail)
		}
	}
	return nil
}

func printSummary(cmd *cobra.Command, summary *runner.Summary) {
	if summary == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", summary.RunID)
	fmt.Fprintf(out, "Directories processed: %d\n", summary.Directories)
	if summary.DryRun {
		fmt.Fprintf(out, "Jobs planned (dry run): %d\n", summary.JobsSkipped)
	} else {
		fmt.Fprintf(out, "Jobs succeeded: %d, failed: %d\n", summary.JobsSucceeded, summary.JobsFailed)
	}
	for _, bad := range summary.BadCues {
		fmt.Fprintf(out, "Bad cue: %s (%s)\n", bad.Path, bad.Reason)
	}
	for _, dir := range summary.CueOnly {
		fmt.Fprintf(out, "Cue without audio: %s\n", dir)
	}
	for _, skip := range summary.Skipped {
		fmt.Fprintf(out, "Skipped: %s (%s)\n", skip.Path, skip.Reason)
	}
}
