package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/config"
	"github.com/barscout/barscout-cli/internal/resilience"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "barscout",
	Short: "Cocktail bar discovery and menu extraction",
	Long:  "Discovers cocktail bars through web search, crawls their websites for drink menus, extracts structured cocktails with an LLM and keeps everything in a local SQLite store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return resilience.Wrap(resilience.KindConfiguration, fmt.Errorf("load config: %w", err))
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return resilience.Wrap(resilience.KindConfiguration, fmt.Errorf("init logger: %w", err))
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// Exit codes: 2 for configuration failures, 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case resilience.IsFatal(err):
		return 2
	default:
		return 1
	}
}

func main() {
	os.Exit(exitCode(rootCmd.Execute()))
}
