package cost

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/resilience"
)

// LedgerConfig configures a Ledger.
type LedgerConfig struct {
	Model   string
	Rates   Rates
	LogPath string
}

// Ledger accounts for search and LLM usage within one session. Totals are
// always derived from the recorded calls, so the session cost is the sum of
// the per-call costs.
type Ledger struct {
	mu        sync.Mutex
	calc      *Calculator
	model     string
	logPath   string
	tokenizer Tokenizer
	now       func() time.Time

	sessionID  string
	startTime  time.Time
	calls      []model.APICall
	truncated  int
	warnedOnce bool
}

// NewLedger creates a Ledger for the configured model. It fails with
// ErrUnknownModel when the model has no pricing.
func NewLedger(cfg LedgerConfig, tok Tokenizer) (*Ledger, error) {
	calc := NewCalculator(cfg.Rates)
	if _, ok := calc.Rate(cfg.Model); !ok {
		return nil, resilience.Wrap(resilience.KindConfiguration,
			eris.Wrapf(ErrUnknownModel, "ledger: no pricing for %q", cfg.Model))
	}
	l := &Ledger{
		calc:      calc,
		model:     cfg.Model,
		logPath:   cfg.LogPath,
		tokenizer: tok,
		now:       time.Now,
	}
	l.resetLocked()
	return l, nil
}

// Model returns the model the ledger prices LLM calls for.
func (l *Ledger) Model() string { return l.model }

// TrackSearch records a web search that requested resultCount results.
func (l *Ledger) TrackSearch(query string, resultCount int) model.APICall {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := model.APICall{
		Timestamp:  model.Timestamp(l.now()),
		APIType:    model.APIKindSearch,
		Query:      query,
		NumResults: resultCount,
		Cost:       l.calc.Search(resultCount),
	}
	l.calls = append(l.calls, c)
	return c
}

// TrackLLM records an LLM call, counting tokens in the prompt and response.
func (l *Ledger) TrackLLM(prompt, response string) model.APICall {
	l.mu.Lock()
	defer l.mu.Unlock()

	in := l.countLocked(prompt)
	out := l.countLocked(response)
	inCost, outCost := l.calc.LLM(l.model, in, out)

	c := model.APICall{
		Timestamp:    model.Timestamp(l.now()),
		APIType:      model.APIKindLLM,
		InputTokens:  in,
		OutputTokens: out,
		InputCost:    inCost,
		OutputCost:   outCost,
		Cost:         inCost + outCost,
	}
	l.calls = append(l.calls, c)
	return c
}

// AddTruncations counts search results dropped before they reached the LLM.
func (l *Ledger) AddTruncations(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.truncated += n
}

// Status returns a snapshot of the current session.
func (l *Ledger) Status() model.UsageStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := model.UsageStatus{
		SessionID:              l.sessionID,
		Model:                  l.model,
		StartTime:              model.Timestamp(l.startTime),
		SearchResultsTruncated: l.truncated,
		TotalAPICalls:          len(l.calls),
		Calls:                  append([]model.APICall(nil), l.calls...),
	}
	for _, c := range l.calls {
		switch c.APIType {
		case model.APIKindSearch:
			s.SearchQueries++
			s.SearchCost += c.Cost
		case model.APIKindLLM:
			s.InputTokens += c.InputTokens
			s.OutputTokens += c.OutputTokens
			s.InputCost += c.InputCost
			s.OutputCost += c.OutputCost
		}
		s.CurrentCost += c.Cost
	}
	if s.Calls == nil {
		s.Calls = []model.APICall{}
	}
	return s
}

// SaveSession appends the session to the usage log as one JSON line and
// starts a fresh session. On a write failure the session is kept intact.
func (l *Ledger) SaveSession() (*model.SessionRecord, error) {
	status := l.Status()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := &model.SessionRecord{
		SessionID:              status.SessionID,
		Model:                  status.Model,
		StartTime:              status.StartTime,
		EndTime:                model.Timestamp(l.now()),
		InputTokens:            status.InputTokens,
		OutputTokens:           status.OutputTokens,
		SearchQueries:          status.SearchQueries,
		SearchResultsTruncated: status.SearchResultsTruncated,
		TotalAPICalls:          status.TotalAPICalls,
		InputCost:              status.InputCost,
		OutputCost:             status.OutputCost,
		SearchCost:             status.SearchCost,
		TotalCost:              status.CurrentCost,
		Calls:                  status.Calls,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: marshal session")
	}
	if err := appendLine(l.logPath, line); err != nil {
		return nil, err
	}

	zap.L().Info("usage session saved",
		zap.String("session_id", rec.SessionID),
		zap.Int("api_calls", rec.TotalAPICalls),
		zap.Float64("total_cost", rec.TotalCost),
	)
	l.resetLocked()
	return rec, nil
}

func (l *Ledger) resetLocked() {
	l.sessionID = uuid.New().String()
	l.startTime = l.now()
	l.calls = nil
	l.truncated = 0
}

func (l *Ledger) countLocked(text string) int {
	if l.tokenizer != nil {
		n, err := l.tokenizer.Count(text)
		if err == nil {
			return n
		}
		if !l.warnedOnce {
			zap.L().Warn("ledger: tokenizer failed, estimating tokens from length",
				zap.String("model", l.model), zap.Error(err))
			l.warnedOnce = true
		}
	}
	return approxTokens(text)
}

func appendLine(path string, line []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "ledger: create dir %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "ledger: open %s", path)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "ledger: write %s", path)
	}
	return eris.Wrapf(f.Close(), "ledger: close %s", path)
}
