package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/barscout/barscout-cli/internal/pipeline"
)

// -- menus --

var menusCmd = &cobra.Command{
	Use:   "menus",
	Short: "Crawl and extract menus for bars that have none",
	Long:  "Selects stored bars with a website and no menu data, crawls each site for menu pages, PDFs and ordering links, extracts cocktails and writes the result back. A failing bar is logged and skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		city, _ := cmd.Flags().GetString("city")
		limit, _ := cmd.Flags().GetInt("limit")
		force, _ := cmd.Flags().GetBool("force")
		verbose, _ := cmd.Flags().GetBool("verbose")

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()
		defer saveUsage(os.Stdout, env.Ledger)

		crawler, extractor, err := newMenuPipeline(env)
		if err != nil {
			return err
		}
		ctrl := pipeline.NewController(env.Store, crawler, extractor,
			pipeline.WithProgressWriter(os.Stdout),
			pipeline.WithRequireWellFormed(cfg.Extract.RequireWellFormed),
		)

		summary, err := ctrl.ProcessBarsWithoutMenus(ctx, pipeline.ProcessOptions{
			City:    city,
			Limit:   limit,
			Force:   force,
			Verbose: verbose,
		})
		if summary != nil {
			formatBatchSummary(os.Stdout, summary)
		}
		return err
	},
}

// -- menu --

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Crawl and extract the menu of one bar or URL",
	Long:  "Runs menu discovery for a single stored bar (--bar-id), writing the result back, or for an arbitrary website (--url), printing the result only.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		barID, _ := cmd.Flags().GetString("bar-id")
		siteURL, _ := cmd.Flags().GetString("url")
		if (barID == "") == (siteURL == "") {
			return eris.New("exactly one of --bar-id or --url is required")
		}
		persist := barID != ""

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()
		defer saveUsage(os.Stderr, env.Ledger)

		if persist {
			bar, err := env.Store.GetBar(ctx, barID)
			if err != nil {
				return eris.Wrapf(err, "menu: load bar %s", barID)
			}
			if !bar.HasWebsite() {
				return eris.Errorf("menu: bar %s has no website", barID)
			}
			siteURL = bar.WebsiteURL()
		} else {
			u, err := url.Parse(siteURL)
			if err != nil || u.Host == "" {
				return eris.Errorf("menu: invalid url %q", siteURL)
			}
			barID = u.Hostname()
		}

		crawler, extractor, err := newMenuPipeline(env)
		if err != nil {
			return err
		}

		raw, err := crawler.FindMenu(ctx, barID, siteURL)
		if err != nil {
			return err
		}
		menu := extractor.ProcessMenuData(ctx, raw)

		if persist {
			if err := env.Store.UpdateMenuInfo(ctx, barID, menu.MenuURLs, menu, menu.Status()); err != nil {
				return eris.Wrapf(err, "menu: save %s", barID)
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(menu)
	},
}

func init() {
	menusCmd.Flags().String("city", "", "only process bars in this city")
	menusCmd.Flags().Int("limit", 0, "max bars to process (0 = all)")
	menusCmd.Flags().Bool("force", false, "also retry bars whose last attempt found nothing")
	menusCmd.Flags().BoolP("verbose", "v", false, "print per-bar progress")

	menuCmd.Flags().String("bar-id", "", "stored bar id (e.g. canon_seattle)")
	menuCmd.Flags().String("url", "", "website to crawl without storing the result")

	rootCmd.AddCommand(menusCmd)
	rootCmd.AddCommand(menuCmd)
}

// formatBatchSummary writes the outcome of a menu batch to w.
func formatBatchSummary(out io.Writer, s *pipeline.BatchSummary) {
	if s.Selected == 0 {
		_, _ = fmt.Fprintln(out, "No bars need menu processing.")
		return
	}
	_, _ = fmt.Fprintf(out, "Processed %d of %d bars: %d succeeded, %d failed\n", s.Processed, s.Selected, s.Succeeded, s.Failed)
	_, _ = fmt.Fprintf(out, "Bars with menu information: %d, cocktails extracted: %d\n", s.WithMenus, s.Cocktails)
	if s.ExtractionFailures > 0 {
		_, _ = fmt.Fprintf(out, "Extraction failed for %d bars; rerun with --force to retry them\n", s.ExtractionFailures)
	}
	for _, f := range s.Failures {
		_, _ = fmt.Fprintf(out, "  %s (%s): %s\n", f.Name, f.Kind, f.Err)
	}
}
