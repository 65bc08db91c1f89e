package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/config"
	"github.com/kailas-cloud/shopqa/internal/db"
	"github.com/kailas-cloud/shopqa/internal/db/memory"
	dbRedis "github.com/kailas-cloud/shopqa/internal/db/redis"
	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
	budgetrepo "github.com/kailas-cloud/shopqa/internal/repository/budget"
	"github.com/kailas-cloud/shopqa/internal/repository/embcache"
	"github.com/kailas-cloud/shopqa/internal/repository/index"
	"github.com/kailas-cloud/shopqa/internal/repository/querycache"
	"github.com/kailas-cloud/shopqa/internal/repository/querylog"
	anthropicGen "github.com/kailas-cloud/shopqa/internal/transport/anthropic"
	openaiTransport "github.com/kailas-cloud/shopqa/internal/transport/openai"
	rerankTransport "github.com/kailas-cloud/shopqa/internal/transport/rerank"
	embeddinguc "github.com/kailas-cloud/shopqa/internal/usecase/embedding"
	"github.com/kailas-cloud/shopqa/internal/usecase/gateway"
	"github.com/kailas-cloud/shopqa/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/shopqa/internal/usecase/health"
	"github.com/kailas-cloud/shopqa/internal/usecase/ingest"
	"github.com/kailas-cloud/shopqa/internal/usecase/intent"
	"github.com/kailas-cloud/shopqa/internal/usecase/pipeline"
	"github.com/kailas-cloud/shopqa/internal/usecase/rerank"
	"github.com/kailas-cloud/shopqa/internal/usecase/response"
	"github.com/kailas-cloud/shopqa/internal/usecase/retrieval"
	"github.com/kailas-cloud/shopqa/internal/usecase/rewrite"
	"github.com/kailas-cloud/shopqa/internal/usecase/signing"
)

const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
	queryLogRetain   = 30 * 24 * time.Hour
)

// querier answers a pipeline request.
type querier interface {
	Query(ctx context.Context, req domain.QueryRequest) domain.Response
}

type entryAppender interface {
	Append(e querylog.Entry) (string, error)
}

// app is the composition root shared by every command.
type app struct {
	cfg      config.Config
	store    db.Store // nil when caching is disabled
	index    *index.Index
	cache    *querycache.Cache // nil when caching is disabled
	querier  querier
	gateway  *gateway.Gateway
	health   *healthuc.Service
	ingest   *ingest.Service
	queryLog *querylog.Store // nil when disabled
	defaults domain.QueryOptions
	logger   *zap.Logger
}

// buildApp wires the pipeline from configuration.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.store = store

	// Embedders: OpenAI -> Cached -> Instrumented -> Instruction, or the local hashing embedder.
	local := embeddinguc.NewLocalEmbedder(cfg.Embedding.Dimensions)
	var docEmbedder, queryEmbedder domain.Embedder
	var embeddingBackend domain.HealthChecker
	indexOpts := []index.Option{}
	switch cfg.Embedding.Provider {
	case "openai":
		base := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   "openai",
			Logger:     logger,
		})
		embeddingBackend = base
		docEmbedder = a.buildEmbedder(base, cfg.Embedding.DocumentInstruction)
		queryEmbedder = a.buildEmbedder(base, cfg.Embedding.QueryInstruction)
	default:
		queryEmbedder = embeddinguc.NewInstrumentedEmbedder(local, "local", "hashing", local.Dimensions(), logger)
		indexOpts = append(indexOpts, index.WithVectorizer(local.Vector))
	}
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	a.index = index.Open(index.Config{
		Path:         cfg.Index.Path,
		MaxDocuments: cfg.Index.MaxDocuments,
		ScanLimit:    cfg.Index.ScanLimit,
	}, logger, indexOpts...)
	// docEmbedder is nil for the local provider: the index vectorizes on insert.
	a.ingest = ingest.New(a.index, docEmbedder, logger)

	budget := a.buildBudget(ctx)
	signer := signing.NewSigner(cfg.Security.SigningSecret, time.Duration(cfg.Security.SignatureMaxAgeSec)*time.Second)

	genCompleter, generationBackend := a.buildCompleter(cfg.Generation.Model, budget)

	var rewriter pipeline.Rewriter
	if !cfg.Rewrite.DisableRewrite {
		rwCompleter := genCompleter
		if cfg.Rewrite.Model != "" && cfg.Rewrite.Model != cfg.Generation.Model {
			rwCompleter, _ = a.buildCompleter(cfg.Rewrite.Model, budget)
		}
		rewriter = rewrite.New(rwCompleter, signer, rewrite.Config{
			Timeout:       time.Duration(cfg.Rewrite.TimeoutMS) * time.Millisecond,
			ClearQueryLen: cfg.Rewrite.ClearQueryLen,
			MaxTokens:     cfg.Rewrite.MaxTokens,
		}, logger)
	}

	// Pass a nil interface, not a typed nil pointer, when reranking is not configured.
	rerankCfg := rerankTransport.Config{
		BaseURL: cfg.Rerank.BaseURL,
		APIKey:  cfg.Rerank.APIKey,
		Model:   cfg.Rerank.Model,
		Timeout: time.Duration(cfg.Rerank.TimeoutMS) * time.Millisecond,
		Logger:  logger,
	}
	var scorer rerank.Scorer
	if rerankTransport.Configured(rerankCfg) {
		scorer = rerankTransport.New(rerankCfg)
	}

	pipe := pipeline.New(pipeline.Deps{
		Documents: a.index,
		Rewriter:  rewriter,
		Intent:    intent.NewDetector(nil),
		Retriever: retrieval.New(queryEmbedder, retrieval.Config{
			Fusion:           cfg.Retrieval.Fusion,
			WordBonus:        cfg.Retrieval.WordBonus,
			DualChannelBonus: cfg.Retrieval.DualChannelBonus,
			RRFK:             cfg.Retrieval.RRFK,
			ScanLimit:        cfg.Index.ScanLimit,
		}, logger),
		Reranker: rerank.New(scorer, rerank.Config{
			Timeout:  time.Duration(cfg.Rerank.TimeoutMS) * time.Millisecond,
			MaxPairs: cfg.Rerank.MaxPairs,
		}, logger),
		Generator: generation.New(genCompleter, signer, generation.Config{
			Timeout:     time.Duration(cfg.Generation.TimeoutMS) * time.Millisecond,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
		}, logger),
		Processor: response.NewProcessor(nil, logger),
	}, pipeline.Config{
		MaxQueryLength: cfg.Gateway.MaxQueryLength,
		ContextChars:   cfg.Pipeline.ContextChars,
		OverallTimeout: time.Duration(cfg.Pipeline.OverallTimeoutMS) * time.Millisecond,
	}, logger)

	a.querier = pipe
	if store != nil {
		a.cache = querycache.New(pipe, store, cfg.Cache.KeyPrefix,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.QueryCacheTotal, logger)
		a.cache.Sync(ctx)
		a.querier = a.cache
	}

	a.gateway = gateway.New(cfg.Gateway.MaxQueryLength, nil, logger)

	a.defaults = domain.DefaultQueryOptions()
	a.defaults.TopK = cfg.Retrieval.TopK
	a.defaults.MinScore = cfg.Retrieval.MinScore
	a.defaults.MaxTokens = cfg.Generation.MaxTokens
	a.defaults.OverallTimeout = time.Duration(cfg.Pipeline.OverallTimeoutMS) * time.Millisecond
	a.defaults.EnableQueryRewriting = rewriter != nil
	a.defaults.EnableReranking = scorer != nil

	// Health: pass nil interfaces for disabled components.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	a.health = healthuc.New(cachePinger, a.index)
	if embeddingBackend != nil {
		a.health.WithBackend("embedding", embeddingBackend)
	}
	if generationBackend != nil {
		a.health.WithBackend("generation", generationBackend)
	}

	return a, nil
}

// openStore creates the cache backend. Returns nil for driver "none".
func openStore(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	var store db.Store
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "memory":
		store = memory.NewStore()
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	return store, nil
}

func (a *app) buildEmbedder(base domain.Embedder, instruction string) domain.Embedder {
	embedder := base
	if a.store != nil {
		embedder = embcache.New(base, a.store, embcache.Config{
			KeyPrefix: a.cfg.Cache.KeyPrefix,
			Model:     a.cfg.Embedding.Model,
			TTL:       time.Duration(a.cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, a.logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, a.cfg.Embedding.Provider, a.cfg.Embedding.Model, a.cfg.Embedding.Dimensions, a.logger,
	)

	// Instruction prefix is outermost so the cache key includes it.
	return embeddinguc.WithInstruction(embedder, instruction)
}

// buildBudget returns nil when no limit is configured.
func (a *app) buildBudget(ctx context.Context) *generation.Budget {
	bc := a.cfg.Generation.Budget
	if bc.DailyTokenLimit <= 0 && bc.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := generation.BudgetActionWarn
	if bc.Action == "reject" {
		action = generation.BudgetActionReject
	}
	budget := generation.NewBudget(
		a.cfg.Generation.Provider, bc.DailyTokenLimit, bc.MonthlyTokenLimit, action, a.logger,
	)
	if a.store != nil {
		budget.WithStore(ctx, budgetrepo.New(a.store, a.cfg.Cache.KeyPrefix, budgetDailyTTL, budgetMonthlyTTL))
	}
	return budget
}

// buildCompleter returns the instrumented completer and, when the backend supports it, its health check.
func (a *app) buildCompleter(model string, budget *generation.Budget) (domain.Completer, domain.HealthChecker) {
	gc := a.cfg.Generation
	var inner domain.Completer
	switch gc.Provider {
	case "openai":
		inner = openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:   gc.APIKey,
			BaseURL:  gc.BaseURL,
			Model:    model,
			Provider: "openai",
			Logger:   a.logger,
		})
	case "anthropic":
		inner = anthropicGen.NewCompleter(&anthropicGen.Config{
			APIKey:  gc.APIKey,
			BaseURL: gc.BaseURL,
			Model:   model,
			Logger:  a.logger,
		})
	default:
		return generation.NoopCompleter{}, nil
	}
	var hc domain.HealthChecker
	if c, ok := inner.(domain.HealthChecker); ok {
		hc = c
	}
	return generation.NewInstrumentedCompleter(inner, budget, gc.Provider, model, a.logger), hc
}

// openQueryLog opens the bbolt query log and prunes old entries. Returns nil when disabled.
func (a *app) openQueryLog() error {
	path := a.cfg.Gateway.QueryLogPath
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create query log dir: %w", err)
	}
	ql, err := querylog.Open(path)
	if err != nil {
		return fmt.Errorf("open query log: %w", err)
	}
	if n, err := ql.Prune(time.Now().Add(-queryLogRetain)); err != nil {
		a.logger.Warn("Query log prune failed", zap.Error(err))
	} else if n > 0 {
		a.logger.Info("Query log pruned", zap.Int("removed", n))
	}
	a.queryLog = ql
	return nil
}

// watchIndex reloads the index on file changes and drops cached answers after each reload.
func (a *app) watchIndex(ctx context.Context) (*index.Watcher, error) {
	if !a.cfg.Index.Watch || a.cfg.Index.Path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Index.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	w, err := index.NewWatcher(a.index, a.logger, index.WithOnReload(func() {
		if a.cache != nil {
			a.cache.Invalidate(ctx)
		}
	}))
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	return w, nil
}

// ask runs one question through the gateway and the pipeline.
func (a *app) ask(ctx context.Context, question, productID string) domain.Response {
	gw, err := a.gateway.Process(question)
	if err != nil {
		return domain.Response{Error: response.SanitizeError(err), Sources: []domain.Source{}}
	}
	resp := a.querier.Query(ctx, domain.QueryRequest{
		Query:     gw.Query,
		ProductID: productID,
		Options:   a.defaults,
	})
	if len(gw.Findings) > 0 {
		resp.Warnings = append(resp.Warnings, "suspicious_input")
	}
	return resp
}

// entryLog returns the query log or a nil interface when disabled.
func (a *app) entryLog() entryAppender {
	if a.queryLog == nil {
		return nil
	}
	return a.queryLog
}

func (a *app) close() {
	if a.queryLog != nil {
		if err := a.queryLog.Close(); err != nil {
			a.logger.Warn("Query log close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}
