package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpTransport "github.com/kailas-cloud/shopqa/internal/transport/mcp"
	"github.com/kailas-cloud/shopqa/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ask tool over MCP stdio",
	Long: `Start an MCP server on stdin/stdout exposing the ask_product_question tool.
Logs go to stderr.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	watcher, err := a.watchIndex(ctx)
	if err != nil {
		logger.Warn("Index watcher disabled", zap.Error(err))
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	srv := mcpTransport.NewServer(mcpTransport.Config{
		Name:     "shopqa",
		Version:  version.Version,
		Defaults: a.defaults,
	}, a.querier, a.gateway, logger)

	logger.Info("Starting MCP server", zap.Int("documents", a.index.Len()))
	return srv.ServeStdio()
}
