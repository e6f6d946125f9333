package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/sheet"
	"github.com/barscout/barscout-cli/internal/store"
)

// -- export --

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export bars and cocktails to XLSX or JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")
		city, _ := cmd.Flags().GetString("city")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		bars, err := st.GetBars(ctx, store.BarFilter{City: city, IncludeRaw: true})
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if err := exportBars(out, bars); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bars to %s\n", len(bars), out)
		return nil
	},
}

// -- import --

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import bars from an XLSX or CSV file",
	Long:  "Reads bars from a spreadsheet with a header row (name, website, description, address, cocktail_menu_url, notable_features, city) and upserts them. Rows without a city column use --city.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		file, _ := cmd.Flags().GetString("file")
		city, _ := cmd.Flags().GetString("city")

		rows, err := sheet.ReadFile(file)
		if err != nil {
			return eris.Wrapf(err, "import %s", file)
		}
		bars, skipped := sheet.BarRows(sheet.Records(rows), city)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		query := "import:" + filepath.Base(file)
		var created, updated int
		for _, r := range bars {
			isNew, err := st.UpsertBar(ctx, r.City, r.Bar, query)
			if err != nil {
				return eris.Wrapf(err, "import %q", r.Bar.Name)
			}
			if isNew {
				created++
			} else {
				updated++
			}
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bars (%d new, %d updated, %d rows skipped)\n",
			len(bars), created, updated, skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "bars.xlsx", "output file (.xlsx or .json)")
	exportCmd.Flags().String("city", "", "only export bars in this city")

	importCmd.Flags().String("file", "", "spreadsheet to import (.xlsx or .csv)")
	importCmd.Flags().String("city", "", "city for rows without a city column")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

// exportBars writes bars to path in the format named by its extension.
func exportBars(path string, bars []model.Bar) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return sheet.WriteXLSX(path, sheet.BarTables(bars)...)
	case ".json":
		if bars == nil {
			bars = []model.Bar{}
		}
		data, err := json.MarshalIndent(bars, "", "  ")
		if err != nil {
			return eris.Wrap(err, "export: marshal bars")
		}
		return eris.Wrapf(os.WriteFile(path, data, 0o644), "export: write %s", path)
	default:
		return eris.Errorf("export: unsupported file type %q (want .xlsx or .json)", filepath.Ext(path))
	}
}
