package generation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/signing"
)

type mockCompleter struct {
	text  string
	echo  bool
	err   error
	block bool
	last  domain.Completion
	calls int
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	m.calls++
	m.last = req
	if m.block {
		<-ctx.Done()
		return domain.CompletionResult{}, ctx.Err()
	}
	if m.err != nil {
		return domain.CompletionResult{}, m.err
	}
	text := m.text
	if m.echo {
		text = req.System
	}
	return domain.CompletionResult{Text: text, Model: "mock-model", PromptTokens: 100, CompletionTokens: 20}, nil
}

func newGenerator(c domain.Completer) *Generator {
	g := New(c, signing.NewSigner("secret", time.Minute), Config{Timeout: 50 * time.Millisecond}, zap.NewNop())
	g.newNonce = func() string { return "n1" }
	return g
}

func request(query string) domain.GenerationRequest {
	return domain.GenerationRequest{
		Query:   query,
		Context: "[1] Inhoud afvalbak\nDe afvalbak heeft een inhoud van 10.5 liter.",
	}
}
