// Package rerank re-scores retrieval candidates with a cross-encoder backend.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// Fallback reasons.
const (
	ReasonDisabled      = "missing_credentials"
	ReasonFewCandidates = "few_candidates"
	ReasonTimeout       = "timeout"
	ReasonUnavailable   = "backend_unavailable"
	ReasonCountMismatch = "count_mismatch"
	ReasonOutOfRange    = "score_out_of_range"
)

// Scorer scores (query, text) pairs. Scores are expected in [0,1], one per text.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Config tunes the reranker.
type Config struct {
	Timeout  time.Duration
	MaxPairs int
}

// Outcome is the tagged result of Rerank.
type Outcome struct {
	Documents    []domain.ScoredDocument
	FallbackUsed bool
	Reason       string
}

// Reranker wraps a Scorer with validation and fallback.
type Reranker struct {
	scorer Scorer
	cfg    Config
	logger *zap.Logger
}

// New creates a reranker. A nil scorer disables the stage.
func New(scorer Scorer, cfg Config, logger *zap.Logger) *Reranker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxPairs <= 0 {
		cfg.MaxPairs = 20
	}
	return &Reranker{scorer: scorer, cfg: cfg, logger: logger}
}

// Enabled reports whether a scoring backend is configured.
func (r *Reranker) Enabled() bool { return r != nil && r.scorer != nil }

// PoolSize is the number of candidates worth retrieving for reranking.
func (r *Reranker) PoolSize() int { return r.cfg.MaxPairs }

// Rerank returns docs reordered by backend score, truncated to topK.
// Any problem returns the original top-K order with FallbackUsed set.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []domain.ScoredDocument, topK int) Outcome {
	original := head(docs, topK)
	fallback := func(reason string, err error) Outcome {
		if err != nil {
			r.logger.Warn("Rerank failed, keeping retrieval order", zap.String("reason", reason), zap.Error(err))
		}
		return Outcome{Documents: original, FallbackUsed: true, Reason: reason}
	}

	if !r.Enabled() {
		return fallback(ReasonDisabled, nil)
	}
	if len(docs) <= topK {
		return fallback(ReasonFewCandidates, nil)
	}

	pairs := head(docs, r.cfg.MaxPairs)
	texts := make([]string, len(pairs))
	for i, d := range pairs {
		texts[i] = d.Metadata.Title + "\n" + d.Content
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	scores, err := r.scorer.Score(callCtx, query, texts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fallback(ReasonTimeout, err)
		}
		if errors.Is(err, domain.ErrMissingCredentials) {
			return fallback(ReasonDisabled, err)
		}
		return fallback(ReasonUnavailable, err)
	}
	if len(scores) != len(pairs) {
		return fallback(ReasonCountMismatch,
			fmt.Errorf("%w: %d scores for %d pairs", domain.ErrInvalidResponse, len(scores), len(pairs)))
	}
	for i, s := range scores {
		if s < 0 || s > 1 || math.IsNaN(s) {
			return fallback(ReasonOutOfRange,
				fmt.Errorf("%w: score %v at %d", domain.ErrInvalidResponse, s, i))
		}
	}

	out := make([]domain.ScoredDocument, len(pairs))
	for i, d := range pairs {
		d.Score = scores[i]
		out[i] = d
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	out = head(out, topK)
	domain.Rerank(out)
	return Outcome{Documents: out}
}

func head(docs []domain.ScoredDocument, n int) []domain.ScoredDocument {
	if n < 0 || len(docs) <= n {
		n = len(docs)
	}
	out := make([]domain.ScoredDocument, n)
	copy(out, docs[:n])
	return out
}
