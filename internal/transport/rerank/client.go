// Package rerank is a cross-encoder scoring client for text-embeddings-inference
// compatible /rerank endpoints.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// Config holds rerank backend settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client scores (query, text) pairs.
type Client struct {
	http   *resty.Client
	model  string
	logger *zap.Logger
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	Model     string   `json:"model,omitempty"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// New creates a client. Callers decide whether the stage is enabled; see Configured.
func New(cfg Config) *Client {
	h := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		h.SetAuthToken(cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		h.SetTimeout(cfg.Timeout)
	}
	return &Client{http: h, model: cfg.Model, logger: cfg.Logger}
}

// Configured reports whether cfg carries enough to call a backend.
func Configured(cfg Config) bool {
	return cfg.BaseURL != "" && cfg.APIKey != ""
}

// Score returns one relevance score per text, in input order.
func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	var items []rerankItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rerankRequest{Query: query, Texts: texts, Model: c.model, Truncate: true}).
		SetResult(&items).
		Post("/rerank")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("rerank request: %w: %w", domain.ErrBackendUnavailable, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("rerank request: %w: %w", domain.ErrBackendUnavailable, err)
	}
	if resp.IsError() {
		c.logger.Warn("Rerank backend returned error",
			zap.Int("status", resp.StatusCode()), zap.String("body", truncate(resp.String(), 200)))
		return nil, fmt.Errorf("rerank API error %d: %w", resp.StatusCode(), domain.ErrBackendUnavailable)
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, it := range items {
		if it.Index < 0 || it.Index >= len(texts) || seen[it.Index] {
			return nil, fmt.Errorf("rerank index %d out of range: %w", it.Index, domain.ErrInvalidResponse)
		}
		seen[it.Index] = true
		scores[it.Index] = it.Score
	}
	if len(items) != len(texts) {
		return nil, fmt.Errorf("rerank returned %d scores for %d texts: %w",
			len(items), len(texts), domain.ErrInvalidResponse)
	}
	return scores, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
