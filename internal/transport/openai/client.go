// Package openai talks to OpenAI-compatible APIs for completions and embeddings.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// Config holds the provider settings shared by the completer and the embedder.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// parseAPIError turns a go-openai failure into a domain error and a metrics outcome.
// 429 wraps ErrRateLimited, 401 and 403 wrap ErrMissingCredentials, everything else
// wraps ErrBackendUnavailable. Deadlines keep context.DeadlineExceeded in the chain.
func parseAPIError(op string, err error) (string, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout", fmt.Errorf("%s request: %w: %w", op, domain.ErrBackendUnavailable, err)
	}

	status, detail := 0, ""
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		if detail = extractDetail(reqErr.Body); detail == "" {
			detail = string(reqErr.Body)
		}
	case errors.As(err, &apiErr):
		status, detail = apiErr.HTTPStatusCode, apiErr.Message
	default:
		return "transport", fmt.Errorf("%s request failed: %w", op, domain.ErrBackendUnavailable)
	}

	outcome, sentinel := classifyStatus(status)
	return outcome, fmt.Errorf("%s API error %d: %s: %w", op, status, detail, sentinel)
}

func classifyStatus(status int) (string, error) {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited", domain.ErrRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "unauthorized", domain.ErrMissingCredentials
	case status >= http.StatusInternalServerError:
		return "server_error", domain.ErrBackendUnavailable
	default:
		return "rejected", domain.ErrBackendUnavailable
	}
}

// extractDetail reads the "detail" field of a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
