package sheet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barscout/barscout-cli/internal/model"
)

func strPtr(s string) *string { return &s }

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "bars.xlsx")
	err := WriteXLSX(path,
		Table{Name: "Bars", Header: []string{"name", "city"}, Rows: [][]string{{"Canon", "Seattle"}}},
		Table{Name: "Cocktails", Header: []string{"cocktail"}, Rows: [][]string{{"Negroni"}, {"Daiquiri"}}},
	)
	require.NoError(t, err)

	rows, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "city"}, {"Canon", "Seattle"}}, rows)

	rows, err = ReadXLSX(path, "Cocktails")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"cocktail"}, {"Negroni"}, {"Daiquiri"}}, rows)

	_, err = ReadXLSX(path, "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))
	_, err := ReadXLSX(path, "")
	require.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("# exported list\nname, website\n Canon ,https://canon.example\nZig Zag\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "website"},
		{"Canon", "https://canon.example"},
		{"Zig Zag"},
	}, rows)
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile("bars.ods")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestRecords(t *testing.T) {
	recs := Records([][]string{
		{" Name ", "Website", ""},
		{"Canon", "https://canon.example", "ignored"},
		{"", ""},
		{"Zig Zag"},
	})
	require.Len(t, recs, 2)
	assert.Equal(t, map[string]string{"name": "Canon", "website": "https://canon.example"}, recs[0])
	assert.Equal(t, "Zig Zag", recs[1]["name"])
	assert.Nil(t, Records(nil))
}

func TestBarRows(t *testing.T) {
	rows, skipped := BarRows([]map[string]string{
		{"name": "Canon", "url": "https://canon.example", "notable_features": "whiskey library; ; bar seats"},
		{"name": "Herbs & Rye", "city": "Las Vegas", "menu_url": "https://herbs.example/menu"},
		{"website": "https://nameless.example"},
	}, "Seattle")

	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 2)
	assert.Equal(t, "Seattle", rows[0].City)
	assert.Equal(t, "Canon", rows[0].Bar.Name)
	require.NotNil(t, rows[0].Bar.Website)
	assert.Equal(t, "https://canon.example", *rows[0].Bar.Website)
	assert.Equal(t, []string{"whiskey library", "bar seats"}, rows[0].Bar.NotableFeatures)
	assert.Nil(t, rows[0].Bar.Description)

	assert.Equal(t, "Las Vegas", rows[1].City)
	require.NotNil(t, rows[1].Bar.CocktailMenuURL)
	assert.Equal(t, "https://herbs.example/menu", *rows[1].Bar.CocktailMenuURL)
}

func TestBarRows_NoCity(t *testing.T) {
	rows, skipped := BarRows([]map[string]string{{"name": "Canon"}}, "")
	assert.Empty(t, rows)
	assert.Equal(t, 1, skipped)
}

func TestBarTables(t *testing.T) {
	bars := []model.Bar{
		{
			ID: "canon_seattle", Name: "Canon", City: "Seattle",
			Website: strPtr("https://canon.example"), MenuURL: strPtr("https://canon.example/menu"),
			MenuStatus: model.MenuStatusAttemptedFound,
			RawData: []byte(`{"name":"Canon","menu_data":{"menu_urls":["https://canon.example/menu"],
				"cocktails":[{"name":"Negroni","price":"$14","ingredients":["gin","campari"],"special_notes":null},
				{"name":"Paper Plane","price":null,"ingredients":["bourbon"],"special_notes":"equal parts"}]}}`),
			DiscoveredAt: "2026-03-14 21:05:09",
		},
		{ID: "quiet_seattle", Name: "Quiet", City: "Seattle", MenuStatus: model.MenuStatusUnattempted, RawData: []byte(`{"name":"Quiet"}`)},
	}

	tables := BarTables(bars)
	require.Len(t, tables, 2)

	assert.Equal(t, "Bars", tables[0].Name)
	require.Len(t, tables[0].Rows, 2)
	assert.Equal(t, []string{
		"canon_seattle", "Canon", "Seattle", "https://canon.example", "https://canon.example/menu",
		"attempted_found", "2", "", "2026-03-14 21:05:09", "",
	}, tables[0].Rows[0])
	assert.Equal(t, "0", tables[0].Rows[1][6])

	assert.Equal(t, "Cocktails", tables[1].Name)
	assert.Equal(t, [][]string{
		{"canon_seattle", "Canon", "Seattle", "Negroni", "$14", "gin; campari", ""},
		{"canon_seattle", "Canon", "Seattle", "Paper Plane", "", "bourbon", "equal parts"},
	}, tables[1].Rows)
}
