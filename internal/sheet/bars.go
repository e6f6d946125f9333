package sheet

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/barscout/barscout-cli/internal/model"
)

var (
	barHeader      = []string{"id", "name", "city", "website", "menu_url", "menu_status", "cocktails", "description", "discovered_at", "last_updated"}
	cocktailHeader = []string{"bar_id", "bar", "city", "cocktail", "price", "ingredients", "special_notes"}
)

// BarTables renders bars as a Bars sheet and a Cocktails sheet. Cocktails
// come from each bar's stored menu_data, so bars should be loaded with their
// raw data.
func BarTables(bars []model.Bar) []Table {
	barsTable := Table{Name: "Bars", Header: barHeader}
	cocktails := Table{Name: "Cocktails", Header: cocktailHeader}

	for _, b := range bars {
		menu := menuData(b.RawData)
		n := 0
		if menu != nil {
			n = len(menu.Cocktails)
			for _, c := range menu.Cocktails {
				cocktails.Rows = append(cocktails.Rows, []string{
					b.ID, b.Name, b.City, c.Name, deref(c.Price),
					strings.Join(c.Ingredients, "; "), deref(c.SpecialNotes),
				})
			}
		}
		barsTable.Rows = append(barsTable.Rows, []string{
			b.ID, b.Name, b.City, deref(b.Website), deref(b.MenuURL), string(b.MenuStatus),
			strconv.Itoa(n), deref(b.Description), b.DiscoveredAt, b.LastUpdated,
		})
	}
	return []Table{barsTable, cocktails}
}

func menuData(raw json.RawMessage) *model.ProcessedMenu {
	if len(raw) == 0 {
		return nil
	}
	var wrapper struct {
		MenuData *model.ProcessedMenu `json:"menu_data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil
	}
	return wrapper.MenuData
}

// ImportRow is one bar read from a spreadsheet.
type ImportRow struct {
	City string
	Bar  model.BarInput
}

// BarRows maps header-keyed records to bars. A city column overrides
// defaultCity per row. Rows without a name or a city are skipped and
// counted.
func BarRows(records []map[string]string, defaultCity string) ([]ImportRow, int) {
	var (
		out     []ImportRow
		skipped int
	)
	for _, rec := range records {
		name := first(rec, "name", "bar")
		city := first(rec, "city")
		if city == "" {
			city = strings.TrimSpace(defaultCity)
		}
		if name == "" || city == "" {
			skipped++
			continue
		}

		in := model.BarInput{
			Name:            name,
			Address:         optional(first(rec, "address")),
			Description:     optional(first(rec, "description")),
			Website:         optional(first(rec, "website", "url")),
			CocktailMenuURL: optional(first(rec, "cocktail_menu_url", "menu_url")),
			SourceLink:      first(rec, "source_link"),
		}
		for _, f := range strings.Split(first(rec, "notable_features"), ";") {
			if f = strings.TrimSpace(f); f != "" {
				in.NotableFeatures = append(in.NotableFeatures, f)
			}
		}
		out = append(out, ImportRow{City: city, Bar: in})
	}
	return out, skipped
}

func first(rec map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(rec[k]); v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
