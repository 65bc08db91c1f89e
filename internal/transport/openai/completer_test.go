package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

func newTestCompleter(url string) *Completer {
	return NewCompleter(&Config{
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestCompleter_SendsSegmentsSeparately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}
		if body.Messages[0].Content != "trusted" || body.Messages[1].Content != "untrusted" {
			t.Errorf("segments mixed up: %+v", body.Messages)
		}
		if body.MaxTokens != 42 {
			t.Errorf("expected max_tokens 42, got %d", body.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": "test-model-2026",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "  10.5 liter  "}},
			},
			"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 4, "total_tokens": 34},
		})
	}))
	defer srv.Close()

	res, err := newTestCompleter(srv.URL).Complete(context.Background(), domain.Completion{
		System: "trusted", User: "untrusted", MaxTokens: 42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "10.5 liter" {
		t.Errorf("expected trimmed text, got %q", res.Text)
	}
	if res.Model != "test-model-2026" {
		t.Errorf("expected model from response, got %q", res.Model)
	}
	if res.PromptTokens != 30 || res.CompletionTokens != 4 {
		t.Errorf("unexpected usage: %+v", res)
	}
}

func TestCompleter_ZeroTemperatureIsSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		temp, ok := body["temperature"].(float64)
		if !ok {
			t.Errorf("temperature missing from request: %v", body)
		} else if temp <= 0 || temp > 1e-6 {
			t.Errorf("expected near-zero temperature, got %v", temp)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	if _, err := newTestCompleter(srv.URL).Complete(context.Background(), domain.Completion{
		System: "s", User: "u", Temperature: 0,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleter_NoChoicesIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), domain.Completion{User: "q"})
	if !errors.Is(err, domain.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestCompleter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), domain.Completion{User: "q"})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestCompleter_TimeoutKeepsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestCompleter(srv.URL).Complete(ctx, domain.Completion{User: "q"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline in chain, got %v", err)
	}
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestCompleter_MissingKey(t *testing.T) {
	c := NewCompleter(&Config{Model: "m", Provider: "test", Logger: zap.NewNop()})

	_, err := c.Complete(context.Background(), domain.Completion{User: "q"})
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected health check to report missing key, got %v", err)
	}
}
