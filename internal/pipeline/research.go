package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/resilience"
	"github.com/barscout/barscout-cli/internal/store"
	"github.com/barscout/barscout-cli/internal/structured"
	"github.com/barscout/barscout-cli/pkg/brave"
)

// Character caps applied to search result text before it reaches the LLM.
const (
	maxTitleChars   = 400
	maxSnippetChars = 800
)

const researchInstruction = `From the web search results below, list up to %d distinct craft cocktail bars located in %s.
For each bar give its name, a one-sentence description and two or three notable features.
Use the bar's own website and cocktail menu URL only when they appear in the results; otherwise use null.
Set source_link to the link of the result the bar came from. Skip listicles, hotels and restaurants without a bar program.`

// SearchTracker records search usage. *cost.Ledger satisfies it.
type SearchTracker interface {
	TrackSearch(query string, resultCount int) model.APICall
	AddTruncations(n int)
}

// ResearchConfig bounds one research pass.
type ResearchConfig struct {
	NumBars    int
	MaxResults int
}

// ResearchSummary reports the outcome of one research pass.
type ResearchSummary struct {
	City    string           `json:"city"`
	Query   string           `json:"query"`
	Results int              `json:"results"`
	Found   int              `json:"found"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Bars    []model.BarInput `json:"bars"`
}

// Researcher discovers bars: web search, LLM structuring, store upsert.
type Researcher struct {
	store   store.Store
	search  brave.Client
	llm     ListExtractor
	queries *QueryGenerator
	usage   SearchTracker
	cfg     ResearchConfig
}

// NewResearcher creates a Researcher.
func NewResearcher(st store.Store, search brave.Client, llm ListExtractor, queries *QueryGenerator, usage SearchTracker, cfg ResearchConfig) *Researcher {
	if cfg.NumBars <= 0 {
		cfg.NumBars = 10
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if queries == nil {
		queries = NewQueryGenerator(nil)
	}
	return &Researcher{store: st, search: search, llm: llm, queries: queries, usage: usage, cfg: cfg}
}

// ResearchCity runs one discovery pass for city. Known bars are excluded from
// the query so repeated passes surface new ones.
func (r *Researcher) ResearchCity(ctx context.Context, city string) (*ResearchSummary, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, eris.New("research: city is required")
	}
	log := zap.L().With(zap.String("city", city))

	known, err := r.store.GetBarNames(ctx, city)
	if err != nil {
		return nil, eris.Wrap(err, "research: load known bars")
	}
	passes, err := r.store.CountSearches(ctx, city)
	if err != nil {
		return nil, resilience.Wrap(resilience.KindStorage, eris.Wrap(err, "research: count searches"))
	}
	r.queries.Resume(passes)
	query := r.queries.Generate(city, known)
	summary := &ResearchSummary{City: city, Query: query}
	log.Info("research: searching",
		zap.String("query", query), zap.Int("known", len(known)), zap.Int("pass", passes+1))

	resp, err := r.search.Search(ctx, query, r.cfg.MaxResults)
	if err != nil {
		return nil, resilience.Wrap(resilience.KindNavigation, eris.Wrap(err, "research: search"))
	}
	results := resp.Web.Results
	if len(results) > r.cfg.MaxResults {
		results = results[:r.cfg.MaxResults]
	}
	summary.Results = len(results)
	if err := r.store.RecordSearch(ctx, city, query, len(results)); err != nil {
		log.Warn("research: record search", zap.Error(err))
	}
	if r.usage != nil {
		r.usage.TrackSearch(query, len(results))
	}
	if len(results) == 0 {
		log.Info("research: no search results")
		return summary, nil
	}

	source, truncated := formatResults(results)
	if r.usage != nil && truncated > 0 {
		r.usage.AddTruncations(truncated)
	}

	var found []model.BarInput
	instruction := fmt.Sprintf(researchInstruction, r.cfg.NumBars, city)
	if err := r.llm.ExtractList(ctx, instruction, source, structured.BarSchema, &found); err != nil {
		return summary, eris.Wrap(err, "research: structure results")
	}

	snippets := make(map[string]string, len(results))
	for _, res := range results {
		snippets[res.URL] = res.Description
	}

	for _, in := range found {
		if summary.Found == r.cfg.NumBars {
			break
		}
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" {
			continue
		}
		in.Website = httpURLOrNil(in.Website)
		in.CocktailMenuURL = httpURLOrNil(in.CocktailMenuURL)
		if in.SourceSnippet == "" {
			in.SourceSnippet = snippets[in.SourceLink]
		}
		summary.Found++

		created, err := r.store.UpsertBar(ctx, city, in, query)
		if err != nil {
			return summary, resilience.Wrap(resilience.KindStorage, eris.Wrapf(err, "research: save %q", in.Name))
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
		summary.Bars = append(summary.Bars, in)
	}

	log.Info("research: complete",
		zap.Int("found", summary.Found), zap.Int("created", summary.Created), zap.Int("updated", summary.Updated))
	return summary, nil
}

// formatResults renders search results as numbered text blocks, capping long
// titles and snippets. It returns the number of results that were cut.
func formatResults(results []brave.Result) (string, int) {
	var b strings.Builder
	truncated := 0
	for i, res := range results {
		title, cutTitle := truncateRunes(res.Title, maxTitleChars)
		snippet, cutSnippet := truncateRunes(strings.Join(append([]string{res.Description}, res.ExtraSnippets...), " "), maxSnippetChars)
		if cutTitle || cutSnippet {
			truncated++
		}
		fmt.Fprintf(&b, "[%d] %s\nLink: %s\n%s\n\n", i+1, title, res.URL, snippet)
	}
	return strings.TrimSpace(b.String()), truncated
}

func truncateRunes(s string, n int) (string, bool) {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r), false
	}
	return string(r[:n]), true
}

func httpURLOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	u, err := url.Parse(t)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}
	return &t
}
