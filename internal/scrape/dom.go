package scrape

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Anchor is a link on a page with its href resolved to an absolute URL.
type Anchor struct {
	Href string
	Text string
}

// Document is a parsed HTML page.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// ParseDocument parses rendered HTML. pageURL resolves relative links.
func ParseDocument(rawHTML, pageURL string) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "dom: parse page url %q", pageURL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, eris.Wrap(err, "dom: parse html")
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}
	return &Document{doc: doc, base: base}, nil
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// Anchors returns every http(s) link on the page in document order.
// Fragments are dropped so in-page jumps resolve to the page itself.
func (d *Document) Anchors() []Anchor {
	var out []Anchor
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		u, err := d.base.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		u.RawFragment = ""
		text := strings.TrimSpace(innerWhitespace.ReplaceAllString(s.Text(), " "))
		out = append(out, Anchor{Href: u.String(), Text: text})
	})
	return out
}

// Text returns the distinct visible text nodes of the page, trimmed and
// longer than one character, joined by single spaces in document order.
func (d *Document) Text() string {
	seen := make(map[string]struct{})
	var parts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				return
			}
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(innerWhitespace.ReplaceAllString(n.Data, " "))
			if len([]rune(t)) > 1 {
				if _, dup := seen[t]; !dup {
					seen[t] = struct{}{}
					parts = append(parts, t)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range d.doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// Title returns the page title.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}
