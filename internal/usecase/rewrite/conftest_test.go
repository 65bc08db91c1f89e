package rewrite

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/signing"
)

type mockCompleter struct {
	text  string
	err   error
	delay time.Duration
	last  domain.Completion
	calls int
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	m.calls++
	m.last = req
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.CompletionResult{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.CompletionResult{}, m.err
	}
	return domain.CompletionResult{Text: m.text, Model: "mock"}, nil
}

func newRewriter(c domain.Completer) *Rewriter {
	return New(c, signing.NewSigner("secret", time.Minute), Config{Timeout: 50 * time.Millisecond}, zap.NewNop())
}
