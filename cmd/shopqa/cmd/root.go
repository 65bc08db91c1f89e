// Package cmd holds the shopqa command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/config"
	logpkg "github.com/kailas-cloud/shopqa/internal/logger"
	"github.com/kailas-cloud/shopqa/internal/metrics"
	"github.com/kailas-cloud/shopqa/internal/version"
)

var (
	env     string
	cfgFile string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shopqa",
	Short: "Secure product question answering over a shop knowledge base",
	Long: `shopqa answers customer questions about products from an indexed set of
product documents. Queries pass an input gateway, optional rewriting, intent
filtering, hybrid retrieval, optional re-ranking and signed generation.

Commands:
  serve   Start the HTTP API
  ask     Answer a single question from the command line
  ingest  Add documents from a JSON file to the index
  mcp     Serve the ask tool over MCP stdio`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "environment name, selects config/<env>.yaml")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "explicit config file path (overrides --env lookup)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func setup(_ *cobra.Command, _ []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err = logpkg.NewLogger(env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	metrics.Register()
	return nil
}
