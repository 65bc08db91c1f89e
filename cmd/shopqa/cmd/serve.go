package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/config"
	chiTransport "github.com/kailas-cloud/shopqa/internal/transport/chi"
	"github.com/kailas-cloud/shopqa/internal/version"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the question answering HTTP API.

Endpoints:
  POST /v1/query  answer a question
  GET  /health    component health
  GET  /metrics   Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shopqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.openQueryLog(); err != nil {
		return err
	}
	watcher, err := a.watchIndex(ctx)
	if err != nil {
		logger.Warn("Index watcher disabled", zap.Error(err))
	}
	if watcher != nil {
		defer watcher.Stop()
	}
	logger.Info("Index loaded", zap.Int("documents", a.index.Len()), zap.Strings("warnings", a.index.Warnings()))

	server := chiTransport.NewServer(a.querier, a.gateway, a.health, a.entryLog(), logger)

	limiter, err := chiTransport.NewRateLimiter(cfg.Gateway.RateLimitRPS, cfg.Gateway.RateLimitBurst).
		WithTrustedProxies(cfg.Gateway.TrustedProxies)
	if err != nil {
		return err
	}
	handler := server.Handler(chiTransport.Options{
		APIKeys:     cfg.Auth.APIKeys,
		RateLimiter: limiter,
		Defaults:    a.defaults,
	})

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTP.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return serveUntil(ctx, ln, newHTTPServer(&cfg.HTTP, handler), time.Duration(cfg.HTTP.ShutdownSec)*time.Second, logger)
}

func newHTTPServer(c *config.HTTPConfig, h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       time.Duration(c.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(c.WriteTimeoutSec) * time.Second,
		IdleTimeout:       idleTimeout,
	}
}

// serveUntil serves on ln until ctx is done, then drains in-flight requests for up to grace.
func serveUntil(ctx context.Context, ln net.Listener, srv *http.Server, grace time.Duration, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("Server stopped gracefully")
	return nil
}
