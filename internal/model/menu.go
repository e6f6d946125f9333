package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// MenuPage is a page visited during a menu crawl.
type MenuPage struct {
	URL           string   `json:"url"`
	Title         string   `json:"title,omitempty"`
	Text          string   `json:"text"`
	PDFLinks      []string `json:"pdf_links,omitempty"`
	ExternalLinks []string `json:"external_links,omitempty"`
	Blocked       string   `json:"blocked,omitempty"`
}

// MenuResult is the raw aggregate of one menu crawl.
type MenuResult struct {
	BarID             string     `json:"bar_id"`
	SeedURL           string     `json:"seed_url"`
	MenuPages         []string   `json:"menu_pages"`
	Pages             []MenuPage `json:"pages"`
	PDFMenus          []string   `json:"pdf_menus"`
	ExternalMenuLinks []string   `json:"external_menu_links"`
	Screenshots       []string   `json:"screenshots,omitempty"`
	CrawledAt         time.Time  `json:"crawled_at"`
	ArtifactPath      string     `json:"artifact_path,omitempty"`
}

// RawText joins the text blobs of every visited page.
func (r *MenuResult) RawText() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Cocktail is one structured drink extracted from menu text.
type Cocktail struct {
	Name         string   `json:"name"`
	Price        *string  `json:"price"`
	Ingredients  []string `json:"ingredients"`
	SpecialNotes *string  `json:"special_notes"`
}

// UnmarshalJSON accepts the shapes language models commonly produce: a
// numeric price is kept as its literal text and a comma-separated ingredient
// string is split into a list.
func (c *Cocktail) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name         string          `json:"name"`
		Price        json.RawMessage `json:"price"`
		Ingredients  json.RawMessage `json:"ingredients"`
		SpecialNotes json.RawMessage `json:"special_notes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	price, err := looseString(raw.Price)
	if err != nil {
		return eris.Wrap(err, "price")
	}
	notes, err := looseString(raw.SpecialNotes)
	if err != nil {
		return eris.Wrap(err, "special_notes")
	}
	ingredients, err := looseList(raw.Ingredients)
	if err != nil {
		return eris.Wrap(err, "ingredients")
	}
	*c = Cocktail{Name: raw.Name, Price: price, Ingredients: ingredients, SpecialNotes: notes}
	return nil
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// looseString decodes a JSON string or number.
func looseString(b json.RawMessage) (*string, error) {
	if isNull(b) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, eris.Errorf("want string or number, got %s", b)
	}
	s = n.String()
	return &s, nil
}

// looseList decodes a JSON array of strings or a single comma-separated
// string.
func looseList(b json.RawMessage) ([]string, error) {
	if isNull(b) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, eris.Errorf("want list of strings, got %s", b)
	}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list, nil
}

// WellFormed reports whether the cocktail has a name, a price and at least
// one ingredient.
func (c Cocktail) WellFormed() bool {
	if strings.TrimSpace(c.Name) == "" || c.Price == nil || strings.TrimSpace(*c.Price) == "" {
		return false
	}
	for _, ing := range c.Ingredients {
		if strings.TrimSpace(ing) != "" {
			return true
		}
	}
	return false
}

// ProcessedMenu is the structured result of menu extraction. It is stored
// under the bar's raw_data as "menu_data".
type ProcessedMenu struct {
	MenuURLs          []string   `json:"menu_urls"`
	PDFMenus          []string   `json:"pdf_menus"`
	ExternalMenuLinks []string   `json:"external_menu_links"`
	Cocktails         []Cocktail `json:"cocktails"`
	ExtractionError   string     `json:"extraction_error,omitempty"`
	ProcessedAt       time.Time  `json:"processed_at"`
}

// Status classifies the menu for the bar's menu_status column. A failed
// extraction wins over anything the crawl found so a forced run retries it.
func (m *ProcessedMenu) Status() MenuStatus {
	if m.ExtractionError != "" {
		return MenuStatusExtractionFailed
	}
	if len(m.Cocktails) > 0 || len(m.PDFMenus) > 0 || len(m.ExternalMenuLinks) > 0 || len(m.MenuURLs) > 1 {
		return MenuStatusAttemptedFound
	}
	return MenuStatusAttemptedEmpty
}
