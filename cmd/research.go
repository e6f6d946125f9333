package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/barscout/barscout-cli/internal/config"
	"github.com/barscout/barscout-cli/internal/pipeline"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Discover cocktail bars in a city",
	Long:  "Searches the web for cocktail bars in a city, structures the results with the LLM and stores new bars. Bars already known for the city are excluded from the query.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		city, _ := cmd.Flags().GetString("city")
		numBars, _ := cmd.Flags().GetInt("num-bars")
		if numBars <= 0 {
			numBars = cfg.Research.NumBars
		}

		env, err := initEnv(ctx, config.NeedSearch)
		if err != nil {
			return err
		}
		defer env.Close()
		defer saveUsage(os.Stdout, env.Ledger)

		strategy, err := pipeline.NewStrategy(cfg.Research.Strategy, cfg.Research.Seed, cfg.Research.FixedTemplate)
		if err != nil {
			return err
		}
		r := pipeline.NewResearcher(env.Store, newSearchClient(), env.LLM,
			pipeline.NewQueryGenerator(strategy), env.Ledger,
			pipeline.ResearchConfig{NumBars: numBars, MaxResults: cfg.Research.MaxResults},
		)

		summary, err := r.ResearchCity(ctx, city)
		if err != nil {
			return eris.Wrapf(err, "research %s", city)
		}
		formatResearchSummary(os.Stdout, summary)
		return nil
	},
}

func init() {
	researchCmd.Flags().String("city", "", "city to research (required)")
	researchCmd.Flags().Int("num-bars", 0, "max bars to keep from one search (default research.num_bars)")
	_ = researchCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(researchCmd)
}

// formatResearchSummary writes the outcome of a research pass to w.
func formatResearchSummary(out io.Writer, s *pipeline.ResearchSummary) {
	_, _ = fmt.Fprintf(out, "Query: %s\n", s.Query)
	_, _ = fmt.Fprintf(out, "Search results: %d, bars found: %d (%d new, %d updated)\n",
		s.Results, s.Found, s.Created, s.Updated)
	if len(s.Bars) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tWEBSITE\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----------")
	for _, b := range s.Bars {
		website, desc := "", ""
		if b.Website != nil {
			website = *b.Website
		}
		if b.Description != nil {
			desc = truncate(*b.Description, 60)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, website, desc)
	}
	_ = w.Flush()
}

// truncate shortens s to n runes with a trailing ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
