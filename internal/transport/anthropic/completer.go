// Package anthropic is a completion backend on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
)

const provider = "anthropic"

// Config holds Anthropic settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Completer sends the trusted segment as the system prompt and the isolated segment as the
// single user message.
type Completer struct {
	client anthropic.Client
	model  string
	hasKey bool
	logger *zap.Logger
}

// NewCompleter creates an Anthropic completion backend. Retries are disabled; stage timeouts
// and fallbacks are handled by the pipeline.
func NewCompleter(cfg *Config) *Completer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Completer{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
		logger: cfg.Logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	if !c.hasKey {
		return domain.CompletionResult{}, fmt.Errorf("completion %s: %w", provider, domain.ErrMissingCredentials)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	params.Temperature = anthropic.Float(req.Temperature)

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		outcome, apiErr := parseAPIError(err)
		metrics.GenerationRequestsTotal.WithLabelValues(provider, c.model, outcome).Inc()
		return domain.CompletionResult{}, apiErr
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, c.model, "empty_response").Inc()
		return domain.CompletionResult{}, fmt.Errorf("message has no text content: %w", domain.ErrInvalidResponse)
	}

	prompt, completion := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	metrics.GenerationRequestsTotal.WithLabelValues(provider, c.model, "ok").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(provider, c.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	metrics.GenerationTokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))

	c.logger.Debug("Anthropic message completed",
		zap.String("model", string(msg.Model)),
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Duration("duration", duration),
	)

	model := string(msg.Model)
	if model == "" {
		model = c.model
	}
	return domain.CompletionResult{
		Text:             strings.TrimSpace(text.String()),
		Model:            model,
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

// parseAPIError maps an SDK failure onto a domain error and a metrics outcome.
// 529 (overloaded) counts as a server error.
func parseAPIError(err error) (string, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout", fmt.Errorf("anthropic request: %w: %w", domain.ErrBackendUnavailable, err)
	}
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return "transport", fmt.Errorf("anthropic request failed: %w", domain.ErrBackendUnavailable)
	}
	switch code := apiErr.StatusCode; {
	case code == http.StatusTooManyRequests:
		return "rate_limited", fmt.Errorf("anthropic API error %d: %w", code, domain.ErrRateLimited)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return "unauthorized", fmt.Errorf("anthropic API error %d: %w", code, domain.ErrMissingCredentials)
	case code >= http.StatusInternalServerError:
		return "server_error", fmt.Errorf("anthropic API error %d: %w", code, domain.ErrBackendUnavailable)
	default:
		return "rejected", fmt.Errorf("anthropic API error %d: %w", code, domain.ErrBackendUnavailable)
	}
}
