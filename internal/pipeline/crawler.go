package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/resilience"
	"github.com/barscout/barscout-cli/internal/scrape"
)

const artifactTimeLayout = "20060102_150405"

// CrawlerConfig bounds a menu crawl.
type CrawlerConfig struct {
	PageTimeout   time.Duration
	MaxCandidates int
	OutputDir     string
	Screenshots   bool
}

// MenuCrawler visits a bar's site and captures raw menu material: page
// text, PDF links, external ordering links and screenshots. It makes no
// judgement about what is a cocktail.
type MenuCrawler struct {
	browser scrape.Browser
	links   *scrape.LinkClassifier
	cfg     CrawlerConfig
	now     func() time.Time
}

// NewMenuCrawler creates a MenuCrawler.
func NewMenuCrawler(browser scrape.Browser, links *scrape.LinkClassifier, cfg CrawlerConfig) *MenuCrawler {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	if links == nil {
		links = scrape.NewLinkClassifier(nil, nil)
	}
	return &MenuCrawler{browser: browser, links: links, cfg: cfg, now: time.Now}
}

// FindMenu crawls websiteURL and the menu candidates linked from it. Only a
// failure on the seed page fails the crawl; candidate, screenshot and
// artifact failures are logged and skipped.
func (c *MenuCrawler) FindMenu(ctx context.Context, barID, websiteURL string) (*model.MenuResult, error) {
	log := zap.L().With(zap.String("bar", barID), zap.String("url", websiteURL))
	log.Info("crawler: starting menu search")

	var result *model.MenuResult
	err := scrape.WithSession(ctx, c.browser, func(sess scrape.Session) error {
		seed, err := sess.Navigate(ctx, websiteURL, c.cfg.PageTimeout)
		if err != nil {
			return resilience.Wrap(resilience.KindNavigation, eris.Wrapf(err, "crawler: load seed %s", websiteURL))
		}
		seedPage, anchors, err := c.capture(seed)
		if err != nil {
			return resilience.Wrap(resilience.KindNavigation, eris.Wrapf(err, "crawler: parse seed %s", websiteURL))
		}
		if seedPage.Blocked != "" {
			log.Warn("crawler: seed page looks blocked", zap.String("block", seedPage.Blocked))
		}

		result = &model.MenuResult{
			BarID:     barID,
			SeedURL:   websiteURL,
			MenuPages: []string{websiteURL},
			Pages:     []model.MenuPage{*seedPage},
			CrawledAt: c.now().UTC(),
		}
		c.screenshot(ctx, sess, result, 0)

		candidates := c.links.Candidates(anchors, c.cfg.MaxCandidates, websiteURL, seed.URL)
		log.Debug("crawler: menu candidates", zap.Strings("candidates", candidates))

		for _, cand := range candidates {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "crawler: cancelled")
			}
			snap, err := sess.Navigate(ctx, cand, c.cfg.PageTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return eris.Wrap(ctx.Err(), "crawler: cancelled")
				}
				log.Warn("crawler: candidate failed", zap.String("candidate", cand),
					zap.String("kind", string(resilience.KindOf(err))), zap.Error(err))
				continue
			}
			page, _, err := c.capture(snap)
			if err != nil {
				log.Warn("crawler: candidate unparsable", zap.String("candidate", cand), zap.Error(err))
				continue
			}
			result.MenuPages = append(result.MenuPages, cand)
			result.Pages = append(result.Pages, *page)
			c.screenshot(ctx, sess, result, len(result.MenuPages)-1)
		}
		return nil
	})
	if err != nil {
		log.Error("crawler: menu search failed", zap.Error(err))
		return nil, err
	}

	for _, p := range result.Pages {
		result.PDFMenus = appendUnique(result.PDFMenus, p.PDFLinks...)
		result.ExternalMenuLinks = appendUnique(result.ExternalMenuLinks, p.ExternalLinks...)
	}
	if result.PDFMenus == nil {
		result.PDFMenus = []string{}
	}
	if result.ExternalMenuLinks == nil {
		result.ExternalMenuLinks = []string{}
	}
	c.saveArtifact(result)

	log.Info("crawler: menu search complete",
		zap.Int("pages", len(result.MenuPages)),
		zap.Int("pdf_menus", len(result.PDFMenus)),
		zap.Int("external_links", len(result.ExternalMenuLinks)),
	)
	return result, nil
}

// capture turns a snapshot into a MenuPage and returns the page's anchors.
func (c *MenuCrawler) capture(snap *scrape.Snapshot) (*model.MenuPage, []scrape.Anchor, error) {
	doc, err := scrape.ParseDocument(snap.HTML, snap.URL)
	if err != nil {
		return nil, nil, err
	}
	anchors := doc.Anchors()
	page := &model.MenuPage{
		URL:     snap.URL,
		Title:   doc.Title(),
		Text:    doc.Text(),
		Blocked: string(scrape.DetectBlock(snap.HTML)),
	}
	for _, a := range anchors {
		if c.links.IsPDF(a.Href) {
			page.PDFLinks = appendUnique(page.PDFLinks, a.Href)
		}
		if c.links.IsExternalMenu(a.Href) {
			page.ExternalLinks = appendUnique(page.ExternalLinks, a.Href)
		}
	}
	return page, anchors, nil
}

// screenshot captures the current page as {barID}_menu_{index}_{ts}.png.
func (c *MenuCrawler) screenshot(ctx context.Context, sess scrape.Session, result *model.MenuResult, index int) {
	if !c.cfg.Screenshots || c.cfg.OutputDir == "" {
		return
	}
	log := zap.L().With(zap.String("bar", result.BarID), zap.Int("index", index))

	png, err := sess.Screenshot(ctx)
	if errors.Is(err, scrape.ErrScreenshotUnsupported) {
		log.Debug("crawler: screenshots unsupported by browser")
		return
	}
	if err != nil {
		log.Warn("crawler: screenshot failed", zap.Error(err))
		return
	}

	dir := filepath.Join(c.cfg.OutputDir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("crawler: create screenshot dir", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s_menu_%d_%s.png", fileSafe(result.BarID), index, c.now().Format(artifactTimeLayout))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.Warn("crawler: write screenshot", zap.Error(err))
		return
	}
	result.Screenshots = append(result.Screenshots, path)
}

// saveArtifact writes the raw crawl result as {barID}_menu_{ts}.json.
func (c *MenuCrawler) saveArtifact(result *model.MenuResult) {
	if c.cfg.OutputDir == "" {
		return
	}
	log := zap.L().With(zap.String("bar", result.BarID))

	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		log.Warn("crawler: create output dir", zap.Error(err))
		return
	}
	path := filepath.Join(c.cfg.OutputDir,
		fmt.Sprintf("%s_menu_%s.json", fileSafe(result.BarID), c.now().Format(artifactTimeLayout)))
	result.ArtifactPath = path

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Warn("crawler: marshal artifact", zap.Error(err))
		result.ArtifactPath = ""
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn("crawler: write artifact", zap.Error(err))
		result.ArtifactPath = ""
	}
}

// appendUnique appends the values of vs not already in dst, preserving order.
func appendUnique(dst []string, vs ...string) []string {
	for _, v := range vs {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

var fileReplacer = strings.NewReplacer("/", "-", `\`, "-", ":", "-")

func fileSafe(s string) string {
	return fileReplacer.Replace(s)
}
