package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perch-labs/leadscout/internal/model"
	"github.com/perch-labs/leadscout/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lead counts and recent run summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		total, err := env.Store.CountLeads(ctx, store.LeadFilter{IncludeDismissed: true})
		if err != nil {
			return err
		}
		active, err := env.Store.CountLeads(ctx, store.LeadFilter{})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "leads: %d total, %d active\n", total, active)

		for _, q := range model.AllLeadQualities() {
			n, err := env.Store.CountLeads(ctx, store.LeadFilter{Quality: q})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-5s %d\n", q, n)
		}

		runs, err := env.Store.ListRunSummaries(ctx, 5)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			fmt.Fprintln(out, "recent runs:")
			for _, r := range runs {
				status := "ok"
				if r.Aborted {
					status = "aborted: " + r.AbortReason
				}
				fmt.Fprintf(out, "  %s  total=%d saved=%d failed=%d cost=$%.4f  %s\n",
					r.StartedAt.Format("2006-01-02 15:04"), r.Total, r.Saved, r.Failed, r.TotalCost, status)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
