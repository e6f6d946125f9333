package store

import (
	"context"

	"github.com/barscout/barscout-cli/internal/model"
)

// BarFilter specifies criteria for listing bars.
type BarFilter struct {
	City       string `json:"city,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	IncludeRaw bool   `json:"include_raw,omitempty"`
}

// Store defines the persistence interface for discovered bars.
type Store interface {
	// Bars
	UpsertBar(ctx context.Context, city string, bar model.BarInput, searchQuery string) (bool, error)
	GetBar(ctx context.Context, id string) (*model.Bar, error)
	GetBars(ctx context.Context, filter BarFilter) ([]model.Bar, error)
	GetBarNames(ctx context.Context, city string) ([]string, error)
	GetStats(ctx context.Context) (*model.BarStats, error)

	// Menus
	BarsNeedingMenus(ctx context.Context, city string, force bool) ([]model.Bar, error)
	UpdateMenuInfo(ctx context.Context, id string, menuURLs []string, menuData any, status model.MenuStatus) error

	// Searches
	RecordSearch(ctx context.Context, city, query string, results int) error
	CountSearches(ctx context.Context, city string) (int, error)

	// Reset deletes bars and searches for a city, or everything when city
	// is empty.
	Reset(ctx context.Context, city string) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
