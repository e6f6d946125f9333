package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/barscout/barscout-cli/internal/cost"
	"github.com/barscout/barscout-cli/internal/model"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize API usage and cost from the usage log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		sessions, err := cost.ReadSessions(cfg.Usage.LogPath)
		if err != nil {
			return eris.Wrap(err, "usage")
		}
		if len(sessions) == 0 {
			fmt.Fprintf(os.Stderr, "No sessions recorded in %s.\n", cfg.Usage.LogPath)
			return nil
		}
		formatUsage(os.Stdout, sessions, limit)
		return nil
	},
}

func init() {
	usageCmd.Flags().Int("limit", 10, "number of recent sessions to list")
	rootCmd.AddCommand(usageCmd)
}

// formatUsage lists the most recent sessions, newest last, followed by the
// totals over every session.
func formatUsage(out io.Writer, sessions []model.SessionRecord, limit int) {
	recent := sessions
	if limit > 0 && len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SESSION\tMODEL\tSTARTED\tCALLS\tSEARCHES\tTOKENS IN/OUT\tCOST")
	_, _ = fmt.Fprintln(w, "-------\t-----\t-------\t-----\t--------\t-------------\t----")
	for _, s := range recent {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d/%d\t$%.4f\n",
			truncateID(s.SessionID),
			s.Model,
			s.StartTime,
			s.TotalAPICalls,
			s.SearchQueries,
			s.InputTokens, s.OutputTokens,
			s.TotalCost,
		)
	}
	_ = w.Flush()

	t := cost.Summarize(sessions)
	_, _ = fmt.Fprintf(out, "\nTotal: %d sessions, %d API calls, %d searches, %d input / %d output tokens, $%.4f\n",
		t.Sessions, t.APICalls, t.SearchQueries, t.InputTokens, t.OutputTokens, t.TotalCost)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
