package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/config"
	"github.com/barscout/barscout-cli/internal/cost"
	"github.com/barscout/barscout-cli/internal/pdftext"
	"github.com/barscout/barscout-cli/internal/pipeline"
	"github.com/barscout/barscout-cli/internal/scrape"
	"github.com/barscout/barscout-cli/internal/store"
	"github.com/barscout/barscout-cli/internal/structured"
	"github.com/barscout/barscout-cli/pkg/brave"
)

// appEnv holds the store, usage ledger and LLM extractor shared by the
// research and menu commands.
type appEnv struct {
	Store  store.Store
	Ledger *cost.Ledger
	LLM    *structured.Extractor
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the bar store. Callers should defer Close.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv validates the configuration for needs and builds the store, the
// ledger and the LLM extractor. Callers should defer env.Close().
func initEnv(ctx context.Context, needs config.Need) (*appEnv, error) {
	if err := cfg.Validate(needs | config.NeedLLM); err != nil {
		return nil, err
	}

	ledger, err := cost.NewLedger(cost.LedgerConfig{
		Model:   cfg.LLM.Model,
		Rates:   cfg.Rates(),
		LogPath: cfg.Usage.LogPath,
	}, cost.NewTiktoken(cfg.LLM.Model))
	if err != nil {
		return nil, err
	}

	completer, err := structured.NewCompleter(cfg.LLM.Provider, cfg.LLM.Model, structured.ProviderKeys{
		OpenAIKey:        cfg.OpenAI.Key,
		OpenAIBaseURL:    cfg.OpenAI.BaseURL,
		AnthropicKey:     cfg.Anthropic.Key,
		AnthropicBaseURL: cfg.Anthropic.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	llm := structured.NewExtractor(completer,
		structured.WithTracker(ledger),
		structured.WithTemperature(cfg.LLM.Temperature),
		structured.WithMaxTokens(cfg.LLM.MaxTokens),
	)

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("environment ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("store", cfg.Store.Path),
	)
	return &appEnv{Store: st, Ledger: ledger, LLM: llm}, nil
}

// newSearchClient builds the Brave client from configuration.
func newSearchClient() brave.Client {
	opts := []brave.Option{
		brave.WithRateLimit(cfg.Brave.RateLimit),
		brave.WithTimeout(time.Duration(cfg.Brave.TimeoutSecs) * time.Second),
	}
	if cfg.Brave.BaseURL != "" {
		opts = append(opts, brave.WithBaseURL(cfg.Brave.BaseURL))
	}
	return brave.NewClient(cfg.Brave.Key, opts...)
}

// newBrowser selects the browser engine named by crawl.engine.
func newBrowser() scrape.Browser {
	if cfg.Crawl.Engine == "http" {
		return scrape.NewHTTPBrowser(cfg.Crawl.UserAgent)
	}
	return scrape.NewChromeBrowser(scrape.ChromeOptions{
		Headless:  cfg.Crawl.Headless,
		ExecPath:  cfg.Crawl.ChromePath,
		UserAgent: cfg.Crawl.UserAgent,
	})
}

// newMenuPipeline builds the crawler and the menu extractor.
func newMenuPipeline(env *appEnv) (*pipeline.MenuCrawler, *pipeline.MenuExtractor, error) {
	links := scrape.NewLinkClassifier(cfg.Crawl.ExcludePaths, cfg.Crawl.ExternalDomains)
	crawler := pipeline.NewMenuCrawler(newBrowser(), links, pipeline.CrawlerConfig{
		PageTimeout:   time.Duration(cfg.Crawl.TimeoutSecs) * time.Second,
		MaxCandidates: cfg.Crawl.MaxCandidates,
		OutputDir:     cfg.Crawl.OutputDir,
		Screenshots:   cfg.Crawl.Screenshots,
	})

	engine, err := pdftext.NewExtractor(cfg.Extract)
	if err != nil {
		return nil, nil, err
	}
	pdfs := scrape.NewPDFFetcher(engine, cfg.Crawl.UserAgent,
		scrape.WithPDFMaxBytes(int64(cfg.Extract.PDFMaxBytes)),
		scrape.WithPDFTimeout(time.Duration(cfg.Extract.PDFTimeoutSecs)*time.Second),
	)

	extractor := pipeline.NewMenuExtractor(env.LLM, pdfs, nil, pipeline.ExtractorConfig{
		MaxChars:    cfg.Extract.MaxChars,
		MaxPDFMenus: cfg.Extract.MaxPDFMenus,
	})
	return crawler, extractor, nil
}

// saveUsage appends the ledger session to the usage log when any calls were
// made and prints its cost.
func saveUsage(out io.Writer, ledger *cost.Ledger) {
	if ledger.Status().TotalAPICalls == 0 {
		return
	}
	rec, err := ledger.SaveSession()
	if err != nil {
		zap.L().Error("save usage session", zap.Error(err))
		return
	}
	_, _ = fmt.Fprintf(out, "Usage: %d API calls, %d input / %d output tokens, $%.4f\n",
		rec.TotalAPICalls, rec.InputTokens, rec.OutputTokens, rec.TotalCost)
}
