package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/store"
)

// -- bars --

var barsCmd = &cobra.Command{
	Use:   "bars",
	Short: "List stored bars",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		city, _ := cmd.Flags().GetString("city")
		limit, _ := cmd.Flags().GetInt("limit")

		bars, err := st.GetBars(ctx, store.BarFilter{City: city, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "bars")
		}
		if len(bars) == 0 {
			fmt.Fprintln(os.Stderr, "No bars found.")
			return nil
		}
		formatBarsList(os.Stdout, bars)
		return nil
	},
}

// -- stats --

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bar store statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.GetStats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}
		return writeStats(os.Stdout, stats, format)
	},
}

// -- reset --

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete stored bars",
	Long:  "Deletes every bar of a city, or the whole store when no city is given. Asks for confirmation unless --yes is set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		city, _ := cmd.Flags().GetString("city")
		yes, _ := cmd.Flags().GetBool("yes")

		scope := "ALL bars"
		if city != "" {
			scope = "all bars in " + city
		}
		if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s?", scope)) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.Reset(ctx, city)
		if err != nil {
			return eris.Wrap(err, "reset")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d bars.\n", n)
		return nil
	},
}

func init() {
	barsCmd.Flags().String("city", "", "filter by city")
	barsCmd.Flags().Int("limit", 50, "max number of bars to display")

	statsCmd.Flags().String("format", "table", "output format: table, json or yaml")

	resetCmd.Flags().String("city", "", "only delete bars in this city")
	resetCmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	rootCmd.AddCommand(barsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
}

// confirm asks question on out and reports whether the answer read from in
// starts with y.
func confirm(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}

// formatBarsList writes a tabular list of bars to w.
func formatBarsList(out io.Writer, bars []model.Bar) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCITY\tMENU\tWEBSITE\tDISCOVERED")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t----\t-------\t----------")
	for _, b := range bars {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID,
			truncate(b.Name, 30),
			b.City,
			b.MenuStatus,
			truncate(b.WebsiteURL(), 40),
			b.DiscoveredAt,
		)
	}
	_ = w.Flush()
}

// writeStats renders stats as a table, JSON or YAML.
func writeStats(out io.Writer, stats *model.BarStats, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(stats); err != nil {
			return eris.Wrap(err, "stats: encode yaml")
		}
		return enc.Close()
	case "table", "":
		formatStats(out, stats)
		return nil
	default:
		return eris.Errorf("stats: unknown format %q (want table, json or yaml)", format)
	}
}

// formatStats writes aggregate store statistics to w.
func formatStats(out io.Writer, s *model.BarStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total bars:\t%d\n", s.TotalBars)
	_, _ = fmt.Fprintf(w, "With menu data:\t%d\n", s.BarsWithMenus)

	statuses := make([]string, 0, len(s.BarsByMenuStatus))
	for st := range s.BarsByMenuStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", st, s.BarsByMenuStatus[model.MenuStatus(st)])
	}

	if len(s.BarsByCity) > 0 {
		_, _ = fmt.Fprintln(w, "By city:\t")
		for _, c := range s.BarsByCity {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", c.City, c.Count)
		}
	}
	if len(s.RecentDiscoveries) > 0 {
		_, _ = fmt.Fprintln(w, "Recent discoveries:\t")
		for _, r := range s.RecentDiscoveries {
			_, _ = fmt.Fprintf(w, "  %s (%s):\t%s\n", r.Name, r.City, r.DiscoveredAt)
		}
	}
	_ = w.Flush()
}
