package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/barscout/barscout-cli/internal/cost"
	"github.com/barscout/barscout-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Brave     BraveConfig     `yaml:"brave" mapstructure:"brave"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Usage     UsageConfig     `yaml:"usage" mapstructure:"usage"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the SQLite bar store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BraveConfig holds Brave Search API settings.
type BraveConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMConfig selects the structured-extraction provider and model.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CrawlConfig configures the menu crawler.
type CrawlConfig struct {
	Engine          string   `yaml:"engine" mapstructure:"engine"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxCandidates   int      `yaml:"max_candidates" mapstructure:"max_candidates"`
	OutputDir       string   `yaml:"output_dir" mapstructure:"output_dir"`
	Screenshots     bool     `yaml:"screenshots" mapstructure:"screenshots"`
	Headless        bool     `yaml:"headless" mapstructure:"headless"`
	ChromePath      string   `yaml:"chrome_path" mapstructure:"chrome_path"`
	UserAgent       string   `yaml:"user_agent" mapstructure:"user_agent"`
	ExcludePaths    []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	ExternalDomains []string `yaml:"external_domains" mapstructure:"external_domains"`
}

// ExtractConfig configures menu extraction.
type ExtractConfig struct {
	MaxChars          int    `yaml:"max_chars" mapstructure:"max_chars"`
	MaxPDFMenus       int    `yaml:"max_pdf_menus" mapstructure:"max_pdf_menus"`
	PDFMaxBytes       int    `yaml:"pdf_max_bytes" mapstructure:"pdf_max_bytes"`
	PDFTimeoutSecs    int    `yaml:"pdf_timeout_secs" mapstructure:"pdf_timeout_secs"`
	PDFEngine         string `yaml:"pdf_engine" mapstructure:"pdf_engine"`
	PdfToTextPath     string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	RequireWellFormed bool   `yaml:"require_well_formed" mapstructure:"require_well_formed"`
}

// ResearchConfig configures bar discovery.
type ResearchConfig struct {
	NumBars       int    `yaml:"num_bars" mapstructure:"num_bars"`
	MaxResults    int    `yaml:"max_results" mapstructure:"max_results"`
	Strategy      string `yaml:"strategy" mapstructure:"strategy"`
	Seed          uint64 `yaml:"seed" mapstructure:"seed"`
	FixedTemplate int    `yaml:"fixed_template" mapstructure:"fixed_template"`
}

// UsageConfig configures the usage ledger.
type UsageConfig struct {
	LogPath string `yaml:"log_path" mapstructure:"log_path"`
}

// PricingConfig holds pricing overrides layered on cost.DefaultRates.
type PricingConfig struct {
	Models          map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	SearchPerResult float64                 `yaml:"search_per_result" mapstructure:"search_per_result"`
}

// ModelPricing holds per-model token pricing (USD per thousand tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Rates returns the effective pricing table.
func (c *Config) Rates() cost.Rates {
	overrides := cost.Rates{
		Models: make(map[string]cost.ModelRate, len(c.Pricing.Models)),
		Search: cost.SearchRate{PerResult: c.Pricing.SearchPerResult},
	}
	for name, p := range c.Pricing.Models {
		overrides.Models[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	return cost.DefaultRates().Merge(overrides)
}

// Need names a capability a command depends on.
type Need int

const (
	NeedSearch Need = 1 << iota
	NeedLLM
)

// Validate checks that the credentials and model required by needs are
// configured. Failures are configuration errors.
func (c *Config) Validate(needs Need) error {
	var problems []string

	if c.Crawl.TimeoutSecs <= 0 {
		problems = append(problems, "crawl.timeout_secs must be > 0")
	}
	if c.Crawl.MaxCandidates < 0 {
		problems = append(problems, "crawl.max_candidates must be >= 0")
	}
	if c.Extract.MaxChars <= 0 {
		problems = append(problems, "extract.max_chars must be > 0")
	}
	switch c.Crawl.Engine {
	case "chrome", "http", "":
	default:
		problems = append(problems, "crawl.engine must be chrome or http, got "+c.Crawl.Engine)
	}

	if needs&NeedSearch != 0 && c.Brave.Key == "" {
		problems = append(problems, "brave.key is required (BARSCOUT_BRAVE_KEY)")
	}
	if needs&NeedLLM != 0 {
		switch c.LLM.Provider {
		case "openai":
			if c.OpenAI.Key == "" {
				problems = append(problems, "openai.key is required (BARSCOUT_OPENAI_KEY)")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				problems = append(problems, "anthropic.key is required (BARSCOUT_ANTHROPIC_KEY)")
			}
		default:
			problems = append(problems, "llm.provider must be openai or anthropic, got "+c.LLM.Provider)
		}
		if _, ok := c.Rates().Models[c.LLM.Model]; !ok {
			problems = append(problems, "no pricing for llm.model "+c.LLM.Model)
		}
	}

	if len(problems) > 0 {
		return resilience.Wrap(resilience.KindConfiguration,
			eris.Errorf("config: %s", strings.Join(problems, "; ")))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BARSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "data/bars.db")
	v.SetDefault("brave.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("brave.rate_limit", 1.0)
	v.SetDefault("brave.timeout_secs", 15)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("openai.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("brave.key", "")
	v.SetDefault("crawl.engine", "chrome")
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("crawl.max_candidates", 10)
	v.SetDefault("crawl.output_dir", "data/menu_data")
	v.SetDefault("crawl.screenshots", true)
	v.SetDefault("crawl.headless", true)
	v.SetDefault("crawl.exclude_paths", []string{"/careers/*", "/jobs/*", "/press/*"})
	v.SetDefault("crawl.external_domains", []string{
		"untappd.com", "toasttab.com", "opentable.com", "resy.com",
		"tockify.com", "square.site", "exploretock.com", "sevenrooms.com",
	})
	v.SetDefault("extract.max_chars", 12000)
	v.SetDefault("extract.max_pdf_menus", 3)
	v.SetDefault("extract.pdf_max_bytes", 10<<20)
	v.SetDefault("extract.pdf_timeout_secs", 30)
	v.SetDefault("extract.pdf_engine", "native")
	v.SetDefault("extract.require_well_formed", false)
	v.SetDefault("research.num_bars", 10)
	v.SetDefault("research.max_results", 10)
	v.SetDefault("research.strategy", "rotating")
	v.SetDefault("usage.log_path", "usage_logs.jsonl")
	v.SetDefault("pricing.search_per_result", 0.00083)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "logs/barscout.log")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger. Output goes to stderr and,
// when cfg.File is set, to that file as well.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return eris.Wrapf(err, "config: create log dir for %s", cfg.File)
		}
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
		zapCfg.ErrorOutputPaths = append(zapCfg.ErrorOutputPaths, cfg.File)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
