package cost

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"

	"github.com/barscout/barscout-cli/internal/model"
)

// ReadSessions loads every session record from a usage log. A missing log
// yields no records.
func ReadSessions(path string) ([]model.SessionRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "usage log: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var out []model.SessionRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec model.SessionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, eris.Wrapf(err, "usage log: line %d", lineNo)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(sc.Err(), "usage log: scan")
}

// UsageTotals sums a set of session records.
type UsageTotals struct {
	Sessions      int     `json:"sessions"`
	APICalls      int     `json:"api_calls"`
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	SearchQueries int     `json:"search_queries"`
	TotalCost     float64 `json:"total_cost"`
}

// Summarize totals the given sessions.
func Summarize(sessions []model.SessionRecord) UsageTotals {
	t := UsageTotals{Sessions: len(sessions)}
	for _, s := range sessions {
		t.APICalls += s.TotalAPICalls
		t.InputTokens += s.InputTokens
		t.OutputTokens += s.OutputTokens
		t.SearchQueries += s.SearchQueries
		t.TotalCost += s.TotalCost
	}
	return t
}
