package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/perch-labs/leadscout/internal/model"
	"github.com/perch-labs/leadscout/internal/source"
)

var scanPlatform string

var scanCmd = &cobra.Command{
	Use:   "scan [export files...]",
	Short: "Qualify leads from scraper export files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		platform := scanPlatform
		if platform == "" {
			platform = cfg.Scan.Platform
		}

		summary, err := runScan(cmd.Context(), env, model.Platform(platform), args)
		printSummary(cmd, summary)
		return err
	},
}

func runScan(ctx context.Context, env *appEnv, platform model.Platform, paths []string) (model.RunSummary, error) {
	var batches []source.Batch
	for _, path := range paths {
		src := &source.ExportSource{Path: path, Platform: platform}
		bs, err := src.Fetch(ctx)
		if err != nil {
			return model.RunSummary{}, eris.Wrapf(err, "scan %s", path)
		}
		batches = append(batches, bs...)
	}
	return env.Pipeline.Run(ctx, batches)
}

func printSummary(cmd *cobra.Command, s model.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", s.RunID)
	fmt.Fprintf(out, "  total:              %d\n", s.Total)
	fmt.Fprintf(out, "  saved:              %d\n", s.Saved)
	fmt.Fprintf(out, "  skipped duplicate:  %d\n", s.SkippedDuplicate)
	fmt.Fprintf(out, "  skipped filtered:   %d\n", s.SkippedFiltered)
	fmt.Fprintf(out, "  skipped rejected:   %d\n", s.SkippedRejected)
	fmt.Fprintf(out, "  failed:             %d\n", s.Failed)
	fmt.Fprintf(out, "  cost:               $%.4f\n", s.TotalCost)
	fmt.Fprintf(out, "  duration:           %s\n", s.Duration)
	if s.Aborted {
		fmt.Fprintf(out, "  ABORTED: %s\n", s.AbortReason)
	}
}

func init() {
	scanCmd.Flags().StringVar(&scanPlatform, "platform", "", "source platform: linkedin, twitter, or bluesky (default from config)")
	rootCmd.AddCommand(scanCmd)
}
