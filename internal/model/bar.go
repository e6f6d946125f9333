package model

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MenuStatus records whether menu discovery ran for a bar and what it found.
type MenuStatus string

const (
	MenuStatusUnattempted      MenuStatus = "unattempted"
	MenuStatusAttemptedEmpty   MenuStatus = "attempted_empty"
	MenuStatusAttemptedFound   MenuStatus = "attempted_found"
	MenuStatusExtractionFailed MenuStatus = "extraction_failed"
)

// Bar is a cocktail establishment keyed by its normalized name and city.
type Bar struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	City         string          `json:"city"`
	Description  *string         `json:"description,omitempty"`
	Website      *string         `json:"website,omitempty"`
	MenuURL      *string         `json:"menu_url,omitempty"`
	RawData      json.RawMessage `json:"raw_data,omitempty"`
	MenuStatus   MenuStatus      `json:"menu_status"`
	DiscoveredAt string          `json:"discovered_at"`
	LastUpdated  string          `json:"last_updated"`
	SearchQuery  string          `json:"search_query"`
}

// HasWebsite reports whether the bar has a non-empty website.
func (b Bar) HasWebsite() bool {
	return b.Website != nil && strings.TrimSpace(*b.Website) != ""
}

// WebsiteURL returns the website or an empty string.
func (b Bar) WebsiteURL() string {
	if b.Website == nil {
		return ""
	}
	return *b.Website
}

// BarInput is the data learned about a bar during discovery.
type BarInput struct {
	Name            string   `json:"name"`
	Address         *string  `json:"address,omitempty"`
	Description     *string  `json:"description,omitempty"`
	NotableFeatures []string `json:"notable_features,omitempty"`
	Website         *string  `json:"website,omitempty"`
	CocktailMenuURL *string  `json:"cocktail_menu_url,omitempty"`
	SourceLink      string   `json:"source_link,omitempty"`
	SourceSnippet   string   `json:"source_snippet,omitempty"`
}

// RecentDiscovery is one row of the recent-discoveries listing.
type RecentDiscovery struct {
	City         string `json:"city" yaml:"city"`
	Name         string `json:"name" yaml:"name"`
	DiscoveredAt string `json:"discovered_at" yaml:"discovered_at"`
}

// CityCount pairs a city with its number of bars.
type CityCount struct {
	City  string `json:"city" yaml:"city"`
	Count int    `json:"count" yaml:"count"`
}

// BarStats aggregates counts over the bar store.
type BarStats struct {
	TotalBars         int                `json:"total_bars" yaml:"total_bars"`
	BarsWithMenus     int                `json:"bars_with_menus" yaml:"bars_with_menus"`
	BarsByCity        []CityCount        `json:"bars_by_city" yaml:"bars_by_city"`
	BarsByMenuStatus  map[MenuStatus]int `json:"bars_by_menu_status" yaml:"bars_by_menu_status"`
	RecentDiscoveries []RecentDiscovery  `json:"recent_discoveries" yaml:"recent_discoveries"`
}

// BarID derives the stable identifier for a bar: name and city are trimmed,
// lower-cased, and every whitespace run becomes a single underscore.
func BarID(name, city string) string {
	return normalizeIDPart(name) + "_" + normalizeIDPart(city)
}

func normalizeIDPart(s string) string {
	// Casers are stateful, so each call gets its own.
	fields := strings.FieldsFunc(cases.Lower(language.Und).String(s), unicode.IsSpace)
	return strings.Join(fields, "_")
}
