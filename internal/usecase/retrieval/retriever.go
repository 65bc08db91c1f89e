// Package retrieval implements the hybrid similarity + keyword retrieval stage
// and its fallback chain: embedding, keyword, substring.
package retrieval

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/keyword"
)

// Fusion modes.
const (
	FusionBonus = "bonus"
	FusionRRF   = "rrf"
)

// Channels reported in Outcome.Channels.
const (
	ChannelEmbedding = "embedding"
	ChannelKeyword   = "keyword"
	ChannelSubstring = "substring"
)

// Config holds fusion weights. Zero values fall back to defaults except the bonuses,
// which are taken as given so either channel bonus can be disabled.
type Config struct {
	Fusion           string
	WordBonus        float64
	DualChannelBonus float64
	RRFK             int
	// ScanLimit caps how many candidates are compared by similarity. 0 means all.
	ScanLimit int
	// EmbedTimeout bounds the query embedding call. 0 means the caller's deadline only.
	EmbedTimeout time.Duration
}

// Options are per-request retrieval settings.
type Options struct {
	UseEmbeddings bool
	TopK          int
	MinScore      float64
}

// Outcome is the tagged result of Retrieve.
type Outcome struct {
	Documents    []domain.ScoredDocument
	Channels     []string
	Fused        bool
	FallbackUsed bool
	Reason       string
}

// Retriever scores candidate documents for a query.
type Retriever struct {
	embedder Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a retriever. A nil embedder disables the similarity channel.
func New(embedder Embedder, cfg Config, logger *zap.Logger) *Retriever {
	if cfg.Fusion == "" {
		cfg.Fusion = FusionBonus
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	return &Retriever{embedder: embedder, cfg: cfg, logger: logger}
}

// Retrieve never fails: backend problems degrade to keyword-only retrieval, and an
// empty keyword channel degrades to substring matching. Zero documents means no
// candidate shares any content word with the query.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, candidates []domain.Document, opts Options,
) Outcome {
	topK := opts.TopK
	if topK <= 0 {
		topK = 8
	}
	pool := topK * 2

	var out Outcome
	lexical := keyword.Search(query, candidates, pool, 0)
	if len(lexical) > 0 {
		out.Channels = append(out.Channels, ChannelKeyword)
	}

	var similarity map[string]float64
	var semantic []domain.ScoredDocument
	if opts.UseEmbeddings && r.embedder != nil {
		var err error
		similarity, semantic, err = r.similarity(ctx, query, candidates, pool)
		if err != nil {
			out.FallbackUsed = true
			out.Reason = reason(err)
			r.logger.Warn("Embedding channel unavailable, using keyword retrieval",
				zap.String("reason", out.Reason), zap.Error(err))
		} else if len(semantic) > 0 {
			out.Channels = append([]string{ChannelEmbedding}, out.Channels...)
		}
	}

	var docs []domain.ScoredDocument
	switch {
	case len(semantic) > 0 && len(lexical) > 0:
		docs = r.fuse(similarity, semantic, lexical, candidates)
		out.Fused = true
	case len(semantic) > 0:
		docs = semantic
	case len(lexical) > 0:
		docs = scored(lexical)
	default:
		sub := keyword.Substring(query, candidates, topK)
		if len(sub) > 0 {
			out.Channels = append(out.Channels, ChannelSubstring)
			out.FallbackUsed = true
			if out.Reason == "" {
				out.Reason = "no_keyword_match"
			}
		}
		docs = scored(sub)
	}

	docs = applyMinScore(docs, opts.MinScore)
	if len(docs) > topK {
		docs = docs[:topK]
	}
	domain.Rerank(docs)
	out.Documents = docs
	return out
}

func (r *Retriever) fuse(
	similarity map[string]float64, semantic []domain.ScoredDocument,
	lexical []keyword.Match, candidates []domain.Document,
) []domain.ScoredDocument {
	if r.cfg.Fusion == FusionRRF {
		return fuseRRF(semantic, scored(lexical), r.cfg.RRFK)
	}

	byID := make(map[string]domain.Document, len(candidates))
	for _, d := range candidates {
		byID[d.ID] = d
	}
	top := make(map[string]bool, len(semantic))
	for _, d := range semantic {
		top[d.ID] = true
	}
	return fuseBonus(similarity, top, byID, lexical, r.cfg.WordBonus, r.cfg.DualChannelBonus)
}

// similarity embeds the query and returns the cosine of every scanned candidate plus
// the positive top set of size pool.
func (r *Retriever) similarity(
	ctx context.Context, query string, candidates []domain.Document, pool int,
) (map[string]float64, []domain.ScoredDocument, error) {
	if r.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EmbedTimeout)
		defer cancel()
	}

	res, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Embedding) == 0 {
		return nil, nil, domain.ErrInvalidResponse
	}

	scored := domain.ScanSimilarity(res.Embedding, candidates, r.cfg.ScanLimit)
	sims := make(map[string]float64, len(scored))
	top := make([]domain.ScoredDocument, 0, len(scored))
	for _, d := range scored {
		sims[d.ID] = d.Score
		if d.Score > 0 {
			top = append(top, d)
		}
	}
	domain.SortByScore(top)
	if len(top) > pool {
		top = top[:pool]
	}
	return sims, top, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrInvalidResponse):
		return "invalid_response"
	default:
		return "backend_unavailable"
	}
}

func scored(matches []keyword.Match) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, len(matches))
	for i, m := range matches {
		out[i] = m.ScoredDocument
	}
	return out
}

func applyMinScore(docs []domain.ScoredDocument, minScore float64) []domain.ScoredDocument {
	if minScore <= 0 {
		return docs
	}
	out := docs[:0]
	for _, d := range docs {
		if d.Score >= minScore {
			out = append(out, d)
		}
	}
	return out
}

