package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/scrape"
	"github.com/barscout/barscout-cli/internal/store"
	"github.com/barscout/barscout-cli/internal/structured"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertBar(ctx context.Context, city string, bar model.BarInput, searchQuery string) (bool, error) {
	args := m.Called(ctx, city, bar, searchQuery)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) GetBar(ctx context.Context, id string) (*model.Bar, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bar), args.Error(1)
}

func (m *mockStore) GetBars(ctx context.Context, filter store.BarFilter) ([]model.Bar, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bar), args.Error(1)
}

func (m *mockStore) GetBarNames(ctx context.Context, city string) ([]string, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) GetStats(ctx context.Context) (*model.BarStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BarStats), args.Error(1)
}

func (m *mockStore) BarsNeedingMenus(ctx context.Context, city string, force bool) ([]model.Bar, error) {
	args := m.Called(ctx, city, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bar), args.Error(1)
}

func (m *mockStore) UpdateMenuInfo(ctx context.Context, id string, menuURLs []string, menuData any, status model.MenuStatus) error {
	args := m.Called(ctx, id, menuURLs, menuData, status)
	return args.Error(0)
}

func (m *mockStore) RecordSearch(ctx context.Context, city, query string, results int) error {
	args := m.Called(ctx, city, query, results)
	return args.Error(0)
}

func (m *mockStore) CountSearches(ctx context.Context, city string) (int, error) {
	args := m.Called(ctx, city)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Reset(ctx context.Context, city string) (int64, error) {
	args := m.Called(ctx, city)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Browser Fake ---

// fakeBrowser serves HTML by URL. Unknown URLs fail to load.
type fakeBrowser struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	visited  []string
	opened   int
	closed   int
	shotErr  error
}

func (b *fakeBrowser) Open(context.Context) (scrape.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	return &fakeSession{b: b}, nil
}

type fakeSession struct {
	b *fakeBrowser
}

func (s *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) (*scrape.Snapshot, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.visited = append(s.b.visited, url)
	if err, ok := s.b.failures[url]; ok {
		return nil, err
	}
	html, ok := s.b.pages[url]
	if !ok {
		return nil, eris.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	return &scrape.Snapshot{URL: url, HTML: html}, nil
}

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) {
	if s.b.shotErr != nil {
		return nil, s.b.shotErr
	}
	return []byte("\x89PNG fake"), nil
}

func (s *fakeSession) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.closed++
	return nil
}

// --- Structured Extraction Stub ---

// stubLLM answers every extraction with a fixed JSON reply.
type stubLLM struct {
	reply        string
	err          error
	sources      []string
	instructions []string
	schemas      []structured.Schema
}

func (s *stubLLM) ExtractList(_ context.Context, instruction, source string, schema structured.Schema, out any) error {
	s.instructions = append(s.instructions, instruction)
	s.sources = append(s.sources, source)
	s.schemas = append(s.schemas, schema)
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.reply), out)
}

// --- Crawler / Extractor Fakes ---

type fakeCrawler struct {
	results map[string]*model.MenuResult
	errs    map[string]error
	calls   []string
}

func (c *fakeCrawler) FindMenu(_ context.Context, barID, websiteURL string) (*model.MenuResult, error) {
	c.calls = append(c.calls, barID)
	if err, ok := c.errs[barID]; ok {
		return nil, err
	}
	if r, ok := c.results[barID]; ok {
		return r, nil
	}
	return &model.MenuResult{BarID: barID, SeedURL: websiteURL, MenuPages: []string{websiteURL}}, nil
}

type fakePDFs struct {
	texts map[string]string
	calls []string
}

func (f *fakePDFs) FetchText(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if t, ok := f.texts[url]; ok {
		return t, nil
	}
	return "", eris.Errorf("pdf: %s returned status 404", url)
}

// --- Search Usage Recorder ---

type recordingUsage struct {
	searches    []string
	counts      []int
	truncations int
}

func (r *recordingUsage) TrackSearch(query string, n int) model.APICall {
	r.searches = append(r.searches, query)
	r.counts = append(r.counts, n)
	return model.APICall{APIType: model.APIKindSearch, Query: query, NumResults: n}
}

func (r *recordingUsage) AddTruncations(n int) { r.truncations += n }

// --- Helpers ---

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strPtr(s string) *string { return &s }
