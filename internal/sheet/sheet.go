// Package sheet reads and writes tabular bar data as XLSX and CSV.
package sheet

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Table is one named sheet: a header row followed by data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// WriteXLSX saves tables as sheets of a new workbook at path.
func WriteXLSX(path string, tables ...Table) error {
	f := xlsx.NewFile()
	for _, t := range tables {
		sh, err := f.AddSheet(t.Name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %q", t.Name)
		}
		writeRow(sh, t.Header)
		for _, r := range t.Rows {
			writeRow(sh, r)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "xlsx: create dir %s", dir)
		}
	}
	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

func writeRow(sh *xlsx.Sheet, cells []string) {
	row := sh.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// ReadXLSX returns every row of the named sheet, or of the first sheet when
// name is empty.
func ReadXLSX(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	var sh *xlsx.Sheet
	if name != "" {
		var ok bool
		if sh, ok = f.Sheet[name]; !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("xlsx: workbook has no sheets")
		}
		sh = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sh.Rows))
	for _, row := range sh.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// ReadCSV returns every record of r with fields trimmed. Rows may have
// differing field counts.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
}

// ReadFile reads a .xlsx or .csv file by extension.
func ReadFile(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, "")
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	default:
		return nil, eris.Errorf("sheet: unsupported file type %q", filepath.Ext(path))
	}
}

// Records keys each data row by the lower-cased header of its column. Blank
// rows are skipped.
func Records(rows [][]string) []map[string]string {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var out []map[string]string
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		blank := true
		for i, v := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			rec[header[i]] = v
			if v != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}
