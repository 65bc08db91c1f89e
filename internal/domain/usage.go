package domain

import (
	"context"
	"sync"
	"time"
)

// BudgetPeriod is a token accounting window.
type BudgetPeriod string

const (
	// BudgetDaily resets at UTC midnight.
	BudgetDaily BudgetPeriod = "daily"
	// BudgetMonthly resets on the first of the month, UTC.
	BudgetMonthly BudgetPeriod = "monthly"
)

// Bucket labels the window containing t, e.g. "2026-10-19" or "2026-10".
func (p BudgetPeriod) Bucket(t time.Time) string {
	if p == BudgetDaily {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01")
}

type tokenUsageKey struct{}

// TokenUsage collects remote token consumption for a single request.
// The transport puts it into the context; decorators write; the transport reads it for headers.
type TokenUsage struct {
	mu               sync.Mutex
	EmbeddingTokens  int
	GenerationTokens int
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, tokenUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(tokenUsageKey{}).(*TokenUsage)
	return u
}

// AddEmbedding records embedding tokens.
func (u *TokenUsage) AddEmbedding(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.EmbeddingTokens += n
	u.mu.Unlock()
}

// AddGeneration records completion tokens (prompt + output).
func (u *TokenUsage) AddGeneration(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.GenerationTokens += n
	u.mu.Unlock()
}

// Total returns all recorded tokens.
func (u *TokenUsage) Total() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.EmbeddingTokens + u.GenerationTokens
}
