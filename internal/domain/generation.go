package domain

import "context"

// Message is one turn of request-scoped conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationOptions tunes a single completion.
// A nil Temperature keeps the generator's configured value.
type GenerationOptions struct {
	MaxTokens   int
	Temperature *float64
}

// GenerationRequest is the input of the secure generator.
type GenerationRequest struct {
	Query   string
	Context string
	History []Message
	Options GenerationOptions
}

// GenerationResponse is the sanitized generator output.
// Filtered is set when leak stripping changed the raw model text.
type GenerationResponse struct {
	Answer           string
	Model            string
	LatencyMS        int64
	Signed           bool
	Filtered         bool
	PromptTokens     int
	CompletionTokens int
}

// Completion is a raw model call: a trusted system segment plus an isolated user segment.
type Completion struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// CompletionResult carries model text and token usage through the decorator chain.
type CompletionResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Completer is the generation backend contract shared by rewriter and generator.
type Completer interface {
	Complete(ctx context.Context, req Completion) (CompletionResult, error)
}

// RewriteResult reports the outcome of query rewriting.
// FallbackUsed guarantees Rewritten equals Original.
type RewriteResult struct {
	Original     string `json:"original"`
	Rewritten    string `json:"rewritten"`
	Changed      bool   `json:"changed"`
	FallbackUsed bool   `json:"fallback_used"`
	Reason       string `json:"reason,omitempty"`
	LatencyMS    int64  `json:"latency_ms"`
}
