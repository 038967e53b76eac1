package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladkar/flac-belcher/internal/dispatch"
	"github.com/vladkar/flac-belcher/internal/ffmpeg"
	"github.com/vladkar/flac-belcher/internal/logging"
	"github.com/vladkar/flac-belcher/internal/plan"
	"github.com/vladkar/flac-belcher/internal/runner"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var dirIn string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the split plan without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if dirIn != "" {
				cfg.Paths.DirIn = dirIn
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Planning never shells out; the client only satisfies the
			// runner's transcoder dependency.
			client, err := ffmpeg.New(cfg.Transcoder.FFmpegPath, cfg.Transcoder.Overwrite)
			if err != nil {
				return err
			}
			r, err := runner.New(cfg, logging.NewNop(), client, nil)
			if err != nil {
				return err
			}

			preview, err := r.Plan(cmd.Context())
			if err != nil {
				return err
			}
			if err := dispatch.Validate(preview.Jobs()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var rows [][]string
			for _, dir := range preview.Directories {
				for _, job := range dir.Jobs {
					kind := "split"
					window := fmt.Sprintf("[%s, %s)", job.Start, endLabel(job))
					if job.Kind == plan.KindConvert {
						kind = "convert"
						window = "whole file"
					}
					rows = append(rows, []string{kind, job.Label, string(job.SourceType), window, job.Dest})
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "Nothing to do")
			} else {
				writeRows(out,
					[]string{"Kind", "Track", "Format", "Window", "Destination"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
			}

			for _, bad := range preview.BadCues {
				fmt.Fprintf(out, "Bad cue: %s (%s)\n", bad.Path, bad.Reason)
			}
			for _, dir := range preview.CueOnly {
				fmt.Fprintf(out, "Cue without audio: %s\n", dir)
			}
			for _, skip := range preview.Skipped {
				fmt.Fprintf(out, "Skipped: %s (%s)\n", skip.Path, skip.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dirIn, "dir-in", "", "Input root to scan (overrides config)")
	return cmd
}

func endLabel(job plan.Job) string {
	if job.RunsToEnd() {
		return "EOF"
	}
	return job.End.String()
}
