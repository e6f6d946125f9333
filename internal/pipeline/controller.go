package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/resilience"
	"github.com/barscout/barscout-cli/internal/store"
)

// Crawler finds raw menu material on a bar's site.
type Crawler interface {
	FindMenu(ctx context.Context, barID, websiteURL string) (*model.MenuResult, error)
}

// Extractor structures raw menu material.
type Extractor interface {
	ProcessMenuData(ctx context.Context, raw *model.MenuResult) *model.ProcessedMenu
}

// ProcessOptions selects and shapes a menu batch.
type ProcessOptions struct {
	City    string
	Limit   int
	Force   bool
	Verbose bool
}

// BarFailure records why one bar of a batch failed.
type BarFailure struct {
	BarID string `json:"bar_id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Err   string `json:"error"`
}

// BatchSummary counts the outcome of a menu batch.
type BatchSummary struct {
	Selected           int          `json:"selected"`
	Processed          int          `json:"processed"`
	Succeeded          int          `json:"succeeded"`
	Failed             int          `json:"failed"`
	WithMenus          int          `json:"with_menus"`
	ExtractionFailures int          `json:"extraction_failures"`
	Cocktails          int          `json:"cocktails"`
	Failures           []BarFailure `json:"failures,omitempty"`
}

// Controller runs menu discovery over the bars that still need it.
type Controller struct {
	store             store.Store
	crawler           Crawler
	extractor         Extractor
	out               io.Writer
	requireWellFormed bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithProgressWriter sets where verbose progress lines go.
func WithProgressWriter(w io.Writer) ControllerOption {
	return func(c *Controller) { c.out = w }
}

// WithRequireWellFormed keeps only cocktails with a name, price and
// ingredients.
func WithRequireWellFormed(v bool) ControllerOption {
	return func(c *Controller) { c.requireWellFormed = v }
}

// NewController creates a Controller.
func NewController(st store.Store, crawler Crawler, extractor Extractor, opts ...ControllerOption) *Controller {
	c := &Controller{store: st, crawler: crawler, extractor: extractor, out: io.Discard}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProcessBarsWithoutMenus crawls and extracts menus for every selected bar.
// A failing bar is logged and counted; it never stops the batch. A bar whose
// crawl fails stays unattempted so the next run retries it.
func (c *Controller) ProcessBarsWithoutMenus(ctx context.Context, opts ProcessOptions) (*BatchSummary, error) {
	bars, err := c.store.BarsNeedingMenus(ctx, opts.City, opts.Force)
	if err != nil {
		return nil, eris.Wrap(err, "controller: select bars")
	}
	if opts.Limit > 0 && len(bars) > opts.Limit {
		bars = bars[:opts.Limit]
	}

	summary := &BatchSummary{Selected: len(bars)}
	if len(bars) == 0 {
		zap.L().Info("controller: no bars need menu processing", zap.String("city", opts.City))
		return summary, nil
	}
	zap.L().Info("controller: processing bars", zap.Int("bars", len(bars)), zap.String("city", opts.City), zap.Bool("force", opts.Force))

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return summary, eris.Wrap(err, "controller: batch interrupted")
		}
		if !bar.HasWebsite() {
			continue
		}
		if opts.Verbose {
			fmt.Fprintf(c.out, "Processing %d/%d: %s\n", i+1, len(bars), bar.Name)
		}
		summary.Processed++

		menu, err := c.processBar(ctx, bar)
		if err != nil {
			kind := resilience.KindOf(err)
			summary.Failed++
			summary.Failures = append(summary.Failures, BarFailure{BarID: bar.ID, Name: bar.Name, Kind: string(kind), Err: err.Error()})
			zap.L().Error("controller: bar failed",
				zap.String("bar", bar.ID), zap.String("kind", string(kind)), zap.Error(err))
			if opts.Verbose {
				fmt.Fprintf(c.out, "✗ Failed to process %s: %v\n", bar.Name, err)
			}
			continue
		}

		summary.Succeeded++
		summary.Cocktails += len(menu.Cocktails)
		switch menu.Status() {
		case model.MenuStatusAttemptedFound:
			summary.WithMenus++
			if opts.Verbose {
				fmt.Fprintf(c.out, "✓ Found menu information for %s (%d cocktails)\n", bar.Name, len(menu.Cocktails))
			}
		case model.MenuStatusExtractionFailed:
			summary.ExtractionFailures++
			if opts.Verbose {
				fmt.Fprintf(c.out, "✗ Menu extraction failed for %s: %s\n", bar.Name, menu.ExtractionError)
			}
		default:
			if opts.Verbose {
				fmt.Fprintf(c.out, "✗ No menu information found for %s\n", bar.Name)
			}
		}
	}

	zap.L().Info("controller: batch complete",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("cocktails", summary.Cocktails),
	)
	return summary, nil
}

func (c *Controller) processBar(ctx context.Context, bar model.Bar) (*model.ProcessedMenu, error) {
	raw, err := c.crawler.FindMenu(ctx, bar.ID, bar.WebsiteURL())
	if err != nil {
		return nil, err
	}

	menu := c.extractor.ProcessMenuData(ctx, raw)
	if c.requireWellFormed {
		kept := menu.Cocktails[:0]
		for _, ck := range menu.Cocktails {
			if ck.WellFormed() {
				kept = append(kept, ck)
			}
		}
		menu.Cocktails = kept
	}

	if err := c.store.UpdateMenuInfo(ctx, bar.ID, menu.MenuURLs, menu, menu.Status()); err != nil {
		return nil, resilience.Wrap(resilience.KindStorage, err)
	}
	return menu, nil
}
