package chi

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

const (
	maxTopK      = 50
	maxHistory   = 20
	maxTimeoutMS = 30000
)

type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type productContextDTO struct {
	ProductID string `json:"product_id"`
}

type optionsDTO struct {
	EnableQueryRewriting     *bool    `json:"enable_query_rewriting"`
	EnableHierarchicalFilter *bool    `json:"enable_hierarchical_filter"`
	EnableEmbeddings         *bool    `json:"enable_embeddings"`
	EnableReranking          *bool    `json:"enable_reranking"`
	TopK                     *int     `json:"top_k"`
	MinScore                 *float64 `json:"min_score"`
	MaxTokens                *int     `json:"max_tokens"`
	Temperature              *float64 `json:"temperature"`
	OverallTimeoutMS         *int     `json:"overall_timeout_ms"`
	// TimeoutMS is the older name of overall_timeout_ms, which wins when both are set.
	TimeoutMS *int `json:"timeout_ms"`
}

type queryRequestDTO struct {
	Query               string             `json:"query"`
	ConversationHistory []messageDTO       `json:"conversation_history"`
	ProductContext      *productContextDTO `json:"product_context"`
	Options             *optionsDTO        `json:"options"`
}

// toDomain merges request options over defaults. query is the sanitized query.
func (d *queryRequestDTO) toDomain(query string, defaults domain.QueryOptions) (domain.QueryRequest, error) {
	opts, err := d.Options.apply(defaults)
	if err != nil {
		return domain.QueryRequest{}, err
	}

	history := d.ConversationHistory
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	msgs := make([]domain.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "user", "assistant":
		default:
			return domain.QueryRequest{}, fmt.Errorf("unknown history role %q", m.Role)
		}
		msgs = append(msgs, domain.Message{Role: m.Role, Content: m.Content})
	}

	req := domain.QueryRequest{Query: query, History: msgs, Options: opts}
	if d.ProductContext != nil {
		req.ProductID = d.ProductContext.ProductID
	}
	return req, nil
}

func (o *optionsDTO) apply(opts domain.QueryOptions) (domain.QueryOptions, error) {
	if o == nil {
		return opts, nil
	}
	setBool(&opts.EnableQueryRewriting, o.EnableQueryRewriting)
	setBool(&opts.EnableHierarchicalFilter, o.EnableHierarchicalFilter)
	setBool(&opts.EnableEmbeddings, o.EnableEmbeddings)
	setBool(&opts.EnableReranking, o.EnableReranking)

	if o.TopK != nil {
		if *o.TopK < 1 || *o.TopK > maxTopK {
			return opts, fmt.Errorf("top_k must be between 1 and %d", maxTopK)
		}
		opts.TopK = *o.TopK
	}
	if o.MinScore != nil {
		if *o.MinScore < 0 {
			return opts, fmt.Errorf("min_score must be non-negative")
		}
		opts.MinScore = *o.MinScore
	}
	if o.MaxTokens != nil {
		if *o.MaxTokens < 1 || *o.MaxTokens > 4096 {
			return opts, fmt.Errorf("max_tokens must be between 1 and 4096")
		}
		opts.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		if *o.Temperature < 0 || *o.Temperature > 2 {
			return opts, fmt.Errorf("temperature must be between 0 and 2")
		}
		t := *o.Temperature
		opts.Temperature = &t
	}
	timeout := o.OverallTimeoutMS
	if timeout == nil {
		timeout = o.TimeoutMS
	}
	if timeout != nil {
		if *timeout < 1 || *timeout > maxTimeoutMS {
			return opts, fmt.Errorf("overall_timeout_ms must be between 1 and %d", maxTimeoutMS)
		}
		opts.OverallTimeout = time.Duration(*timeout) * time.Millisecond
	}
	return opts, nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
