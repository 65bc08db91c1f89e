// Package generation builds signed, delimiter-isolated prompts, calls the
// generation backend and filters the output for prompt leakage.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/logger"
	"github.com/kailas-cloud/shopqa/internal/metrics"
	"github.com/kailas-cloud/shopqa/internal/usecase/prompt"
	"github.com/kailas-cloud/shopqa/internal/usecase/signing"
)

// maxHistoryTurns bounds the history rendered into the prompt.
const maxHistoryTurns = 6

// Config tunes the generator.
type Config struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Generator produces answers through a Completer.
type Generator struct {
	completer domain.Completer
	signer    *signing.Signer
	filter    *OutputFilter
	cfg       Config
	logger    *zap.Logger
	newNonce  func() string
}

// New creates a generator. A nil completer makes every call fail with ErrBackendUnavailable.
func New(completer domain.Completer, signer *signing.Signer, cfg Config, logger *zap.Logger) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	return &Generator{
		completer: completer,
		signer:    signer,
		filter:    NewOutputFilter(SystemTemplate),
		cfg:       cfg,
		logger:    logger,
		newNonce:  uuid.NewString,
	}
}

// Generate answers req.Query from req.Context. Errors wrap ErrBackendUnavailable,
// ErrMissingCredentials, ErrQuotaExceeded, ErrInvalidResponse or ErrSignatureMismatch;
// the caller owns the fallback.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResponse, error) {
	if g.completer == nil {
		return domain.GenerationResponse{}, fmt.Errorf("generate: %w", domain.ErrBackendUnavailable)
	}

	stamp := g.signer.Stamp(SystemTemplate)
	if err := g.signer.Check(SystemTemplate, stamp); err != nil {
		return domain.GenerationResponse{}, fmt.Errorf("sign system prompt: %w", err)
	}

	nonce := g.newNonce()
	completion := domain.Completion{
		System:      prompt.Signed(SystemTemplate, stamp),
		User:        BuildUserSegment(nonce, req),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}
	if req.Options.MaxTokens > 0 {
		completion.MaxTokens = req.Options.MaxTokens
	}
	if req.Options.Temperature != nil {
		completion.Temperature = *req.Options.Temperature
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := g.completer.Complete(callCtx, completion)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.GenerationResponse{}, fmt.Errorf("generate: %w: %w", domain.ErrBackendUnavailable, err)
		}
		return domain.GenerationResponse{}, fmt.Errorf("generate: %w", err)
	}

	raw := strings.TrimSpace(out.Text)
	if raw == "" {
		return domain.GenerationResponse{}, fmt.Errorf("generate: empty completion: %w", domain.ErrInvalidResponse)
	}

	answer, filtered := g.filter.Apply(raw)
	if filtered {
		metrics.GenerationFilteredTotal.Inc()
		logger.Audit(g.logger, "generation_output_filtered",
			zap.String("model", out.Model),
			zap.Int("raw_length", len(raw)),
			zap.Int("filtered_length", len(answer)),
		)
	}
	if answer == "" {
		return domain.GenerationResponse{}, fmt.Errorf("generate: output consisted of prompt markers: %w",
			domain.ErrInvalidResponse)
	}

	return domain.GenerationResponse{
		Answer:           answer,
		Model:            out.Model,
		LatencyMS:        latency.Milliseconds(),
		Signed:           true,
		Filtered:         filtered,
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
	}, nil
}

// BuildUserSegment wraps context, history and question in nonce-tagged sections.
// All caller text is neutralized first so it cannot close a section.
func BuildUserSegment(nonce string, req domain.GenerationRequest) string {
	var b strings.Builder
	b.WriteString(prompt.Section("context", nonce, prompt.Neutralize(req.Context)))
	b.WriteString("\n\n")

	if history := renderHistory(req.History); history != "" {
		b.WriteString(prompt.Section("history", nonce, history))
		b.WriteString("\n\n")
	}

	b.WriteString(prompt.Section("question", nonce, prompt.Neutralize(req.Query)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, answerInstruction, nonce, nonce)
	return b.String()
}

func renderHistory(history []domain.Message) string {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		content := strings.TrimSpace(prompt.Neutralize(m.Content))
		if content == "" {
			continue
		}
		speaker := "Klant"
		if strings.EqualFold(m.Role, "assistant") {
			speaker = "Assistent"
		}
		lines = append(lines, speaker+": "+strings.Join(strings.Fields(content), " "))
	}
	return strings.Join(lines, "\n")
}
