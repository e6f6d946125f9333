package scrape

import (
	"net/url"
	"path"
	"strings"
)

var (
	// menuPathKeywords mark a URL path as a likely menu page.
	menuPathKeywords = []string{"/menu", "/drinks", "/cocktails", "/bar", "/food-and-drink", "/libations"}
	// menuTextKeywords mark anchor text as a likely menu link.
	menuTextKeywords = []string{"menu", "cocktail", "drinks"}

	DefaultExcludePaths    = []string{"/careers/*", "/jobs/*", "/press/*"}
	DefaultExternalDomains = []string{
		"untappd.com", "toasttab.com", "opentable.com", "resy.com",
		"tockify.com", "square.site", "exploretock.com", "sevenrooms.com",
	}
)

// LinkClassifier sorts the links of a bar site into menu candidates, PDF
// menus and external ordering/reservation links. It does no semantic
// filtering of content.
type LinkClassifier struct {
	exclude []string
	domains []string
}

// NewLinkClassifier builds a classifier. Empty lists fall back to defaults.
// Exclude patterns are path globs where "/press/*" also covers deeper paths.
func NewLinkClassifier(excludePaths, externalDomains []string) *LinkClassifier {
	if len(excludePaths) == 0 {
		excludePaths = DefaultExcludePaths
	}
	if len(externalDomains) == 0 {
		externalDomains = DefaultExternalDomains
	}
	c := &LinkClassifier{}
	for _, p := range excludePaths {
		c.exclude = append(c.exclude, strings.ToLower(p))
	}
	for _, d := range externalDomains {
		c.domains = append(c.domains, strings.ToLower(strings.TrimPrefix(d, ".")))
	}
	return c
}

// IsMenuCandidate reports whether an anchor likely leads to a menu page.
func (c *LinkClassifier) IsMenuCandidate(a Anchor) bool {
	u, err := url.Parse(a.Href)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	if c.excluded(p) {
		return false
	}
	for _, kw := range menuPathKeywords {
		if strings.Contains(p, kw) {
			return true
		}
	}
	text := strings.ToLower(a.Text)
	for _, kw := range menuTextKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// IsPDF reports whether href points at a PDF document.
func (c *LinkClassifier) IsPDF(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// IsExternalMenu reports whether href is hosted on a known ordering or
// reservation platform.
func (c *LinkClassifier) IsExternalMenu(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range c.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Candidates returns the menu candidates among anchors, deduplicated by exact
// URL in first-seen order and capped at limit when limit > 0. URLs in skip
// (the page itself) and PDF links are never candidates; a trailing slash is
// ignored when comparing against skip.
func (c *LinkClassifier) Candidates(anchors []Anchor, limit int, skip ...string) []string {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[strings.TrimSuffix(s, "/")] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, a := range anchors {
		if seen[a.Href] || skipped[strings.TrimSuffix(a.Href, "/")] || c.IsPDF(a.Href) || !c.IsMenuCandidate(a) {
			continue
		}
		seen[a.Href] = true
		out = append(out, a.Href)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (c *LinkClassifier) excluded(urlPath string) bool {
	for _, pattern := range c.exclude {
		if ok, _ := path.Match(pattern, urlPath); ok {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/*"); ok {
			if urlPath == dir || strings.HasPrefix(urlPath, dir+"/") {
				return true
			}
		}
	}
	return false
}
