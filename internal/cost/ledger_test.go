package cost

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/resilience"
)

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) (int, error) { return len(strings.Fields(text)), nil }

type failingTokenizer struct{ calls int }

func (f *failingTokenizer) Count(string) (int, error) {
	f.calls++
	return 0, errors.New("no encoding")
}

func newTestLedger(t *testing.T, tok Tokenizer) (*Ledger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "logs", "usage.jsonl")
	l, err := NewLedger(LedgerConfig{Model: "small", Rates: testRates(), LogPath: logPath}, tok)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	l.resetLocked()
	return l, logPath
}

func TestNewLedger_UnknownModel(t *testing.T) {
	t.Parallel()
	_, err := NewLedger(LedgerConfig{Model: "mystery", Rates: testRates()}, wordTokenizer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.True(t, resilience.IsFatal(err))
}

func TestLedger_TrackSearch(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t, wordTokenizer{})

	c := l.TrackSearch("best cocktail bars seattle", 20)
	assert.Equal(t, model.APIKindSearch, c.APIType)
	assert.Equal(t, 20, c.NumResults)
	assert.InDelta(t, 0.02, c.Cost, 1e-12)

	st := l.Status()
	assert.Equal(t, 1, st.SearchQueries)
	assert.Equal(t, 1, st.TotalAPICalls)
	assert.InDelta(t, 0.02, st.SearchCost, 1e-12)
	assert.InDelta(t, 0.02, st.CurrentCost, 1e-12)
}

func TestLedger_TrackLLM(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t, wordTokenizer{})

	prompt := strings.Repeat("word ", 2000)
	response := strings.Repeat("word ", 1000)
	c := l.TrackLLM(prompt, response)

	assert.Equal(t, model.APIKindLLM, c.APIType)
	assert.Equal(t, 2000, c.InputTokens)
	assert.Equal(t, 1000, c.OutputTokens)
	assert.InDelta(t, 0.001, c.InputCost, 1e-12)
	assert.InDelta(t, 0.0015, c.OutputCost, 1e-12)
	assert.InDelta(t, 0.0025, c.Cost, 1e-12)

	st := l.Status()
	assert.Equal(t, 2000, st.InputTokens)
	assert.Equal(t, 1000, st.OutputTokens)
	assert.Equal(t, 0, st.SearchQueries)
	assert.Equal(t, 1, st.TotalAPICalls)
}

func TestLedger_TokenizerFallback(t *testing.T) {
	t.Parallel()
	tok := &failingTokenizer{}
	l, _ := newTestLedger(t, tok)

	c := l.TrackLLM("abcdefghi", "abcd")
	assert.Equal(t, 3, c.InputTokens, "ceil(9/4)")
	assert.Equal(t, 1, c.OutputTokens)
	assert.Equal(t, 2, tok.calls)

	nilTok, _ := newTestLedger(t, nil)
	c = nilTok.TrackLLM("", "abcde")
	assert.Equal(t, 0, c.InputTokens)
	assert.Equal(t, 2, c.OutputTokens)
}

func TestLedger_CostAdditivity(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t, wordTokenizer{})

	l.TrackSearch("q1", 20)
	l.TrackLLM("a b c", "d e")
	l.TrackSearch("q2", 7)
	l.TrackLLM(strings.Repeat("x ", 1234), strings.Repeat("y ", 321))
	l.TrackSearch("q3", 0)

	st := l.Status()
	require.Len(t, st.Calls, 5)

	var sum float64
	for _, c := range st.Calls {
		sum += c.Cost
	}
	assert.InDelta(t, sum, st.CurrentCost, 1e-12)
	assert.InDelta(t, st.CurrentCost, st.InputCost+st.OutputCost+st.SearchCost, 1e-12)
	assert.Equal(t, 5, st.TotalAPICalls)
	assert.Equal(t, 3, st.SearchQueries)
}

func TestLedger_StatusIsSnapshot(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t, wordTokenizer{})
	l.TrackSearch("q", 1)

	st := l.Status()
	st.Calls[0].Cost = 99
	assert.NotEqual(t, 99.0, l.Status().Calls[0].Cost)
}

func TestLedger_SaveSessionResets(t *testing.T) {
	t.Parallel()
	l, logPath := newTestLedger(t, wordTokenizer{})

	firstID := l.Status().SessionID
	l.TrackSearch("q", 10)
	l.TrackLLM("one two three", "four")
	l.AddTruncations(4)

	rec, err := l.SaveSession()
	require.NoError(t, err)
	assert.Equal(t, firstID, rec.SessionID)
	assert.Equal(t, 2, rec.TotalAPICalls)
	assert.Equal(t, 4, rec.SearchResultsTruncated)
	assert.Greater(t, rec.EndTime, rec.StartTime)
	assert.Len(t, rec.Calls, 2)

	st := l.Status()
	assert.Zero(t, st.InputTokens)
	assert.Zero(t, st.OutputTokens)
	assert.Zero(t, st.SearchQueries)
	assert.Zero(t, st.TotalAPICalls)
	assert.Zero(t, st.SearchResultsTruncated)
	assert.Zero(t, st.CurrentCost)
	assert.Empty(t, st.Calls)
	assert.NotEqual(t, firstID, st.SessionID)

	l.TrackSearch("again", 1)
	_, err = l.SaveSession()
	require.NoError(t, err)

	sessions, err := ReadSessions(logPath)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, firstID, sessions[0].SessionID)
	assert.Equal(t, 1, sessions[1].TotalAPICalls)

	totals := Summarize(sessions)
	assert.Equal(t, 2, totals.Sessions)
	assert.Equal(t, 3, totals.APICalls)
	assert.InDelta(t, sessions[0].TotalCost+sessions[1].TotalCost, totals.TotalCost, 1e-12)
}

func TestLedger_SaveSessionWriteFailureKeepsSession(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t, wordTokenizer{})

	dir := t.TempDir()
	l.logPath = dir // a directory cannot be opened for append
	l.TrackSearch("q", 3)

	_, err := l.SaveSession()
	require.Error(t, err)
	assert.Equal(t, 1, l.Status().TotalAPICalls)
}

func TestReadSessions_Missing(t *testing.T) {
	t.Parallel()
	sessions, err := ReadSessions(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestReadSessions_Malformed(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"session_id\":\"a\"}\n\nnot json\n"), 0o644))

	_, err := ReadSessions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestApproxTokens(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, approxTokens(""))
	assert.Equal(t, 1, approxTokens("a"))
	assert.Equal(t, 1, approxTokens("abcd"))
	assert.Equal(t, 2, approxTokens("abcde"))
}
