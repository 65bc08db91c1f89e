package domain

import "time"

// QueryOptions toggles pipeline stages and tunes generation.
type QueryOptions struct {
	EnableQueryRewriting     bool          `json:"enable_query_rewriting"`
	EnableHierarchicalFilter bool          `json:"enable_hierarchical_filter"`
	EnableEmbeddings         bool          `json:"enable_embeddings"`
	EnableReranking          bool          `json:"enable_reranking"`
	TopK                     int           `json:"top_k"`
	MinScore                 float64       `json:"min_score"`
	MaxTokens                int           `json:"max_tokens"`
	Temperature              *float64      `json:"temperature,omitempty"` // nil uses the generator default
	OverallTimeout           time.Duration `json:"-"`
}

// DefaultQueryOptions enables every stage.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		EnableQueryRewriting:     true,
		EnableHierarchicalFilter: true,
		EnableEmbeddings:         true,
		EnableReranking:          true,
		TopK:                     8,
		MaxTokens:                500,
		OverallTimeout:           10 * time.Second,
	}
}

// Source is a citation returned to the caller.
type Source struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// PipelineMetadata is the observability record of one invocation.
type PipelineMetadata struct {
	TechniquesApplied []string         `json:"techniques_applied"`
	StageLatencyMS    map[string]int64 `json:"stage_latency_ms"`
	FallbacksUsed     []string         `json:"fallbacks_used,omitempty"`
	Intent            string           `json:"intent,omitempty"`
	RewrittenQuery    string           `json:"rewritten_query,omitempty"`
	CandidateCount    int              `json:"candidate_count"`
	RetrievedCount    int              `json:"retrieved_count"`
	TotalLatencyMS    int64            `json:"total_latency_ms"`
}

// Response is the pipeline result.
// Success=false implies Error is set and Answer is empty.
type Response struct {
	Success          bool             `json:"success"`
	Answer           string           `json:"answer,omitempty"`
	Error            string           `json:"error,omitempty"`
	Sources          []Source         `json:"sources"`
	Warnings         []string         `json:"warnings,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
	PipelineMetadata PipelineMetadata `json:"pipeline_metadata"`
}

// QueryRequest is the inbound pipeline call. History is request-scoped and never persisted.
type QueryRequest struct {
	Query     string
	History   []Message
	ProductID string
	Options   QueryOptions
}
