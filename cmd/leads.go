package main

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/perch-labs/leadscout/internal/model"
	"github.com/perch-labs/leadscout/internal/store"
)

var (
	leadsQuality   string
	leadsPlatform  string
	leadsSince     string
	leadsLimit     int
	leadsDismissed bool
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List qualified leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.LeadFilter{
			Platform:         model.Platform(leadsPlatform),
			Quality:          model.LeadQuality(leadsQuality),
			IncludeDismissed: leadsDismissed,
			Limit:            leadsLimit,
		}
		if leadsSince != "" {
			hours, err := parseRange(leadsSince)
			if err != nil {
				return err
			}
			filter.Since = time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		}

		leads, err := env.Store.ListLeads(cmd.Context(), filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(leads) == 0 {
			fmt.Fprintln(out, "no leads found")
			return nil
		}
		for _, l := range leads {
			marker := " "
			if l.Verdict.Fallback {
				marker = "?"
			}
			fmt.Fprintf(out, "%s [%s/%s] %.0f%% %s — %s\n", marker,
				l.Platform, l.Verdict.Quality, l.Verdict.Confidence, l.AuthorName, l.Company)
			fmt.Fprintf(out, "    %s\n", truncate(l.Content, 120))
			if l.BudgetMention != "" {
				fmt.Fprintf(out, "    budget: %s\n", l.BudgetMention)
			}
			fmt.Fprintf(out, "    %s  (id %s)\n", l.Permalink, l.ID)
		}
		return nil
	},
}

var leadsDismissCmd = &cobra.Command{
	Use:   "dismiss <lead-id>",
	Short: "Dismiss a lead from the active list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DismissLead(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dismissed %s\n", args[0])
		return nil
	},
}

var rangePattern = regexp.MustCompile(`^(\d+)([hdwm])$`)

// parseRange converts a shorthand like "24h", "7d", "1w", or "1m" to hours.
func parseRange(s string) (int, error) {
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, eris.Errorf("invalid range %q (want e.g. 24h, 7d, 1w, 1m)", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, eris.Wrapf(err, "invalid range %q", s)
	}
	switch m[2] {
	case "h":
		return n, nil
	case "d":
		return n * 24, nil
	case "w":
		return n * 24 * 7, nil
	default: // "m"
		return n * 24 * 30, nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func init() {
	leadsCmd.Flags().StringVar(&leadsQuality, "quality", "", "filter by quality: hot, warm, or cold")
	leadsCmd.Flags().StringVar(&leadsPlatform, "platform", "", "filter by platform")
	leadsCmd.Flags().StringVar(&leadsSince, "since", "", "only leads scraped within range (e.g. 24h, 7d)")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 0, "max leads to show")
	leadsCmd.Flags().BoolVar(&leadsDismissed, "all", false, "include dismissed leads")
	leadsCmd.AddCommand(leadsDismissCmd)
	rootCmd.AddCommand(leadsCmd)
}
