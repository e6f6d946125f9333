package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/resilience"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/bars.db", cfg.Store.Path)
	assert.Equal(t, "https://api.search.brave.com/res/v1", cfg.Brave.BaseURL)
	assert.Equal(t, 15, cfg.Brave.TimeoutSecs)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, "chrome", cfg.Crawl.Engine)
	assert.Equal(t, 30, cfg.Crawl.TimeoutSecs)
	assert.Equal(t, 10, cfg.Crawl.MaxCandidates)
	assert.Equal(t, "data/menu_data", cfg.Crawl.OutputDir)
	assert.True(t, cfg.Crawl.Screenshots)
	assert.True(t, cfg.Crawl.Headless)
	assert.Contains(t, cfg.Crawl.ExcludePaths, "/careers/*")
	assert.Contains(t, cfg.Crawl.ExternalDomains, "toasttab.com")
	assert.Equal(t, 12000, cfg.Extract.MaxChars)
	assert.Equal(t, 3, cfg.Extract.MaxPDFMenus)
	assert.Equal(t, "native", cfg.Extract.PDFEngine)
	assert.False(t, cfg.Extract.RequireWellFormed)
	assert.Equal(t, 10, cfg.Research.NumBars)
	assert.Equal(t, "rotating", cfg.Research.Strategy)
	assert.Equal(t, "usage_logs.jsonl", cfg.Usage.LogPath)
	assert.InDelta(t, 0.00083, cfg.Pricing.SearchPerResult, 1e-12)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "logs/barscout.log", cfg.Log.File)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  path: /tmp/other.db
llm:
  provider: anthropic
  model: claude-haiku-4-5-20251001
crawl:
  max_candidates: 4
  screenshots: false
pricing:
  models:
    my-model:
      input: 0.01
      output: 0.02
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 4, cfg.Crawl.MaxCandidates)
	assert.False(t, cfg.Crawl.Screenshots)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Crawl.TimeoutSecs)

	rates := cfg.Rates()
	assert.InDelta(t, 0.01, rates.Models["my-model"].Input, 1e-12)
	assert.Contains(t, rates.Models, "gpt-3.5-turbo")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  path: file.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("BARSCOUT_STORE_PATH", "env.db")
	t.Setenv("BARSCOUT_LOG_LEVEL", "warn")
	t.Setenv("BARSCOUT_BRAVE_KEY", "brave-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "brave-key", cfg.Brave.Key)
}

func TestInitLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "barscout.log")

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json", File: logFile}))
	zap.L().Error("persisted failure", zap.String("bar", "canon_seattle"))
	_ = zap.L().Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted failure")
	assert.Contains(t, string(data), "canon_seattle")

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-3.5-turbo"
	cfg.Crawl.TimeoutSecs = 30
	cfg.Crawl.MaxCandidates = 10
	cfg.Extract.MaxChars = 12000
	return cfg
}

func TestValidate_NoNeeds(t *testing.T) {
	assert.NoError(t, validDefaults().Validate(0))
}

func TestValidate_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Brave.Key = "brave"
	cfg.OpenAI.Key = "sk-test"

	assert.NoError(t, cfg.Validate(NeedSearch|NeedLLM))
}

func TestValidate_MissingKeys(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate(NeedSearch | NeedLLM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brave.key is required")
	assert.Contains(t, err.Error(), "openai.key is required")
	assert.True(t, resilience.IsFatal(err))
}

func TestValidate_AnthropicProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Model = "claude-haiku-4-5-20251001"

	err := cfg.Validate(NeedLLM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate(NeedLLM))
}

func TestValidate_UnknownProviderAndModel(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "mistral"
	cfg.LLM.Model = "mystery"

	err := cfg.Validate(NeedLLM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider must be openai or anthropic")
	assert.Contains(t, err.Error(), "no pricing for llm.model mystery")
}

func TestValidate_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Crawl.TimeoutSecs = 0
	cfg.Extract.MaxChars = 0
	cfg.Crawl.Engine = "firefox"

	err := cfg.Validate(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.timeout_secs must be > 0")
	assert.Contains(t, err.Error(), "extract.max_chars must be > 0")
	assert.Contains(t, err.Error(), "crawl.engine must be chrome or http, got firefox")
}
