// Package pipeline orchestrates the secure retrieval pipeline:
// Validate, Rewrite, Filter, Retrieve, Rerank, Generate, Process.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
	"github.com/kailas-cloud/shopqa/internal/usecase/intent"
	"github.com/kailas-cloud/shopqa/internal/usecase/response"
	"github.com/kailas-cloud/shopqa/internal/usecase/retrieval"
)

// Stage names used in latency maps, fallbacks and metrics.
const (
	StageValidate = "validate"
	StageRewrite  = "rewrite"
	StageFilter   = "filter"
	StageRetrieve = "retrieve"
	StageRerank   = "rerank"
	StageGenerate = "generate"
	StageProcess  = "process"
)

// Techniques reported in PipelineMetadata.TechniquesApplied.
const (
	TechniqueRewriting          = "query_rewriting"
	TechniqueHierarchicalFilter = "hierarchical_filter"
	TechniqueProductFilter      = "product_filter"
	TechniqueEmbedding          = "embedding_retrieval"
	TechniqueKeyword            = "keyword_retrieval"
	TechniqueSubstring          = "substring_retrieval"
	TechniqueHybridFusion       = "hybrid_fusion"
	TechniqueReranking          = "reranking"
	TechniqueSecureGeneration   = "secure_generation"
	TechniqueOutputFiltering    = "output_filtering"
	TechniqueFallbackAnswer     = "fallback_answer"
	TechniqueResponseProcessing = "response_processing"
)

const (
	defaultTopK         = 8
	defaultContextChars = 4000
	defaultSnippetChars = 200
	defaultMaxQueryLen  = 500
)

// Config tunes the orchestrator.
type Config struct {
	MaxQueryLength int
	ContextChars   int
	SnippetChars   int
	OverallTimeout time.Duration
}

// Deps are the stage implementations. Rewriter and Reranker may be nil.
type Deps struct {
	Documents DocumentSource
	Rewriter  Rewriter
	Intent    IntentDetector
	Retriever Retriever
	Reranker  Reranker
	Generator Generator
	Processor Processor
}

// Pipeline answers product questions from the document index.
type Pipeline struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New creates a pipeline.
func New(deps Deps, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = defaultMaxQueryLen
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = defaultContextChars
	}
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = defaultSnippetChars
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = 10 * time.Second
	}
	return &Pipeline{deps: deps, cfg: cfg, logger: logger}
}

// Query runs one request. It always returns a processed response; the only
// failures are an invalid query and an empty retrieval result.
func (p *Pipeline) Query(ctx context.Context, req domain.QueryRequest) domain.Response {
	opts := req.Options
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	timeout := p.cfg.OverallTimeout
	if opts.OverallTimeout > 0 {
		timeout = opts.OverallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := &run{
		start:  time.Now(),
		meta:   domain.PipelineMetadata{TechniquesApplied: []string{}, StageLatencyMS: map[string]int64{}},
		logger: p.logger,
	}

	// Validate
	var query string
	var err error
	r.timed(StageValidate, func() { query, err = p.validate(req.Query) })
	if err != nil {
		return p.fail(r, err)
	}

	// Rewrite
	searchQuery := query
	if opts.EnableQueryRewriting && p.deps.Rewriter != nil {
		var rw domain.RewriteResult
		ok := r.guard(StageRewrite, func() { rw = p.deps.Rewriter.Rewrite(ctx, query) })
		switch {
		case !ok:
		case rw.FallbackUsed:
			r.fallback(StageRewrite, rw.Reason)
		case rw.Changed:
			searchQuery = rw.Rewritten
			r.meta.RewrittenQuery = rw.Rewritten
			r.technique(TechniqueRewriting)
		}
	}

	// Filter
	var candidates []domain.Document
	r.timed(StageFilter, func() { candidates = p.filter(r, searchQuery, req.ProductID, opts) })
	if len(candidates) == 0 {
		return p.fail(r, domain.ErrNoResults)
	}

	// Retrieve
	docs := p.retrieve(ctx, r, searchQuery, candidates, opts)
	if len(docs) == 0 {
		return p.fail(r, domain.ErrNoResults)
	}

	// Rerank
	docs = p.rerank(ctx, r, searchQuery, docs, opts)
	r.meta.RetrievedCount = len(docs)

	// Generate
	gen, genErr := p.generate(ctx, r, query, req.History, docs, opts)
	answer := gen.Answer
	if genErr != nil {
		r.fallback(StageGenerate, generationReason(genErr))
		answer = FallbackAnswer(query, docs)
		r.technique(TechniqueFallbackAnswer)
		r.logger.Warn("Generation failed, using fallback answer", zap.Error(genErr))
	}

	resp := domain.Response{
		Success:  true,
		Answer:   answer,
		Sources:  p.sources(docs),
		Warnings: r.warnings,
		Metadata: map[string]any{
			"model":    gen.Model,
			"signed":   gen.Signed,
			"filtered": gen.Filtered,
		},
	}
	if usage := domain.UsageFromContext(ctx); usage != nil {
		resp.Metadata["tokens"] = usage.Total()
	}
	return p.finish(r, resp)
}

func (p *Pipeline) validate(raw string) (string, error) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return "", domain.ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > p.cfg.MaxQueryLength {
		return "", fmt.Errorf("%w: %d characters", domain.ErrQueryTooLong, utf8.RuneCountInString(query))
	}
	return query, nil
}

func (p *Pipeline) filter(r *run, query, productID string, opts domain.QueryOptions) []domain.Document {
	all := p.deps.Documents.All()
	r.meta.CandidateCount = len(all)
	if len(all) == 0 {
		return nil
	}

	var criteria domain.FilterCriteria
	if opts.EnableHierarchicalFilter && p.deps.Intent != nil {
		var cat intent.Category
		criteria, cat = p.deps.Intent.DetectIntent(query)
		r.meta.Intent = string(cat)
	}
	if productID != "" {
		criteria.ProductIDs = []string{productID}
		r.technique(TechniqueProductFilter)
	}
	if criteria.IsEmpty() {
		return all
	}

	out := intent.Filter(criteria, all)
	if len(criteria.Types) > 0 {
		r.technique(TechniqueHierarchicalFilter)
	}
	if out.FallbackUsed {
		r.fallback(StageFilter, "relaxed_to_"+out.Relaxed)
	}
	r.meta.CandidateCount = len(out.Documents)
	return out.Documents
}

func (p *Pipeline) retrieve(
	ctx context.Context, r *run, query string, candidates []domain.Document, opts domain.QueryOptions,
) []domain.ScoredDocument {
	pool := opts.TopK
	if opts.EnableReranking && p.deps.Reranker != nil && p.deps.Reranker.Enabled() {
		pool = max(pool, p.deps.Reranker.PoolSize())
	}

	var out retrieval.Outcome
	r.timed(StageRetrieve, func() {
		out = p.deps.Retriever.Retrieve(ctx, query, candidates, retrieval.Options{
			UseEmbeddings: opts.EnableEmbeddings,
			TopK:          pool,
			MinScore:      opts.MinScore,
		})
	})

	for _, ch := range out.Channels {
		switch ch {
		case retrieval.ChannelEmbedding:
			r.technique(TechniqueEmbedding)
		case retrieval.ChannelKeyword:
			r.technique(TechniqueKeyword)
		case retrieval.ChannelSubstring:
			r.technique(TechniqueSubstring)
		}
	}
	if out.Fused {
		r.technique(TechniqueHybridFusion)
	}
	if out.FallbackUsed {
		r.fallback(StageRetrieve, out.Reason)
	}
	return out.Documents
}

func (p *Pipeline) rerank(
	ctx context.Context, r *run, query string, docs []domain.ScoredDocument, opts domain.QueryOptions,
) []domain.ScoredDocument {
	original := docs
	if len(original) > opts.TopK {
		original = original[:opts.TopK]
	}
	if !opts.EnableReranking || p.deps.Reranker == nil {
		return original
	}

	var out []domain.ScoredDocument
	ok := r.guard(StageRerank, func() {
		res := p.deps.Reranker.Rerank(ctx, query, docs, opts.TopK)
		out = res.Documents
		if res.FallbackUsed {
			r.fallback(StageRerank, res.Reason)
			return
		}
		r.technique(TechniqueReranking)
	})
	if !ok || len(out) == 0 {
		return original
	}
	return out
}

func (p *Pipeline) generate(
	ctx context.Context, r *run, query string, history []domain.Message,
	docs []domain.ScoredDocument, opts domain.QueryOptions,
) (domain.GenerationResponse, error) {
	if p.deps.Generator == nil {
		return domain.GenerationResponse{}, domain.ErrBackendUnavailable
	}

	var gen domain.GenerationResponse
	var err error
	ok := r.guard(StageGenerate, func() {
		gen, err = p.deps.Generator.Generate(ctx, domain.GenerationRequest{
			Query:   query,
			Context: BuildContext(docs, p.cfg.ContextChars),
			History: history,
			Options: domain.GenerationOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature},
		})
	})
	if !ok {
		return domain.GenerationResponse{}, fmt.Errorf("generator panicked: %w", domain.ErrBackendUnavailable)
	}
	if err != nil {
		return domain.GenerationResponse{}, err
	}

	r.technique(TechniqueSecureGeneration)
	if gen.Filtered {
		r.technique(TechniqueOutputFiltering)
		r.warn("generation_output_filtered")
	}
	return gen, nil
}

func (p *Pipeline) fail(r *run, err error) domain.Response {
	r.logger.Info("Pipeline request failed", zap.Error(err))
	return p.finish(r, domain.Response{
		Success:  false,
		Error:    response.SanitizeError(err),
		Sources:  []domain.Source{},
		Warnings: r.warnings,
	})
}

func (p *Pipeline) finish(r *run, resp domain.Response) domain.Response {
	var result response.Result
	r.timed(StageProcess, func() { result = p.deps.Processor.Process(resp) })
	r.technique(TechniqueResponseProcessing)
	if result.SecretsFound > 0 {
		result.Response.Warnings = append(result.Response.Warnings, "secrets_redacted")
	}

	r.meta.TotalLatencyMS = time.Since(r.start).Milliseconds()
	result.Response.PipelineMetadata = r.meta

	status := "success"
	if !result.Response.Success {
		status = "failed"
	}
	metrics.PipelineRequestsTotal.WithLabelValues(status).Inc()
	for _, t := range r.meta.TechniquesApplied {
		metrics.PipelineTechniquesTotal.WithLabelValues(t).Inc()
	}

	p.logger.Debug("Pipeline completed",
		zap.String("status", status),
		zap.Strings("techniques", r.meta.TechniquesApplied),
		zap.Strings("fallbacks", r.meta.FallbacksUsed),
		zap.Int64("latency_ms", r.meta.TotalLatencyMS),
	)
	return result.Response
}

func (p *Pipeline) sources(docs []domain.ScoredDocument) []domain.Source {
	out := make([]domain.Source, 0, len(docs))
	for _, d := range docs {
		title := d.Metadata.Title
		if title == "" {
			title = d.ID
		}
		out = append(out, domain.Source{ID: d.ID, Title: title, Snippet: truncate(d.Content, p.cfg.SnippetChars)})
	}
	return out
}

func generationReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, domain.ErrSignatureMismatch):
		return "signature"
	default:
		return "backend_unavailable"
	}
}
