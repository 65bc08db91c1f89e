package openai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
)

// Completer is a chat completion backend using the OpenAI-compatible API.
// The trusted segment goes out as the system message, the isolated segment as the user message.
type Completer struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	hasKey   bool
	logger   *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion backend.
func NewCompleter(cfg *Config) *Completer {
	return &Completer{
		client:   newClient(cfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		hasKey:   cfg.APIKey != "",
		logger:   cfg.Logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	if !c.hasKey {
		return domain.CompletionResult{}, fmt.Errorf("completion %s: %w", c.provider, domain.ErrMissingCredentials)
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
		User:        c.user,
	})
	duration := time.Since(start)

	if err != nil {
		outcome, apiErr := parseAPIError("completion", err)
		metrics.GenerationRequestsTotal.WithLabelValues(c.provider, c.model, outcome).Inc()
		return domain.CompletionResult{}, apiErr
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(c.provider, c.model, "empty_response").Inc()
		return domain.CompletionResult{}, fmt.Errorf("completion returned no choices: %w", domain.ErrInvalidResponse)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(c.provider, c.model, "ok").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(c.provider, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(c.provider, "completion").Add(float64(resp.Usage.CompletionTokens))

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.CompletionResult{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// wireTemperature maps 0 to the smallest positive float32: the request field is
// omitempty, so a literal 0 would fall back to the provider default.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// HealthCheck verifies API availability via ListModels.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if !c.hasKey {
		return domain.ErrMissingCredentials
	}
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
