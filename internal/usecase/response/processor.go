// Package response is the last safety net before a pipeline response leaves the
// process: secret redaction, internal-field stripping and structure validation.
package response

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/logger"
	"github.com/kailas-cloud/shopqa/internal/metrics"
)

// Result is the processed response plus what the processor changed.
type Result struct {
	Response       domain.Response
	SecretsFound   int
	FieldsStripped []string
	// Valid is false when the input violated the response invariants and was repaired.
	Valid      bool
	Violations []string
}

// Processor applies the secret table and the field blocklist.
type Processor struct {
	rules  []SecretRule
	logger *zap.Logger
}

// NewProcessor creates a processor. Nil rules means DefaultSecretRules.
func NewProcessor(rules []SecretRule, logger *zap.Logger) *Processor {
	if rules == nil {
		rules = DefaultSecretRules()
	}
	return &Processor{rules: rules, logger: logger}
}

// Process never fails: every finding is redacted in place and audited.
func (p *Processor) Process(resp domain.Response) Result {
	res := Result{Valid: true}

	resp.Answer = p.redact(resp.Answer, "answer", &res)
	resp.Error = p.redact(resp.Error, "error", &res)

	if len(resp.Sources) > 0 {
		sources := make([]domain.Source, len(resp.Sources))
		for i, s := range resp.Sources {
			s.Title = p.redact(s.Title, "source_title", &res)
			s.Snippet = p.redact(s.Snippet, "source_snippet", &res)
			sources[i] = s
		}
		resp.Sources = sources
	}
	if len(resp.Warnings) > 0 {
		warnings := make([]string, len(resp.Warnings))
		for i, w := range resp.Warnings {
			warnings[i] = p.redact(w, "warning", &res)
		}
		resp.Warnings = warnings
	}

	if resp.Metadata != nil {
		resp.Metadata = stripMap(resp.Metadata, "", &res.FieldsStripped)
		sort.Strings(res.FieldsStripped)
	}

	p.validate(&resp, &res)
	res.Response = resp
	return res
}

func (p *Processor) redact(text, location string, res *Result) string {
	if text == "" {
		return text
	}
	for _, rule := range p.rules {
		matches := rule.Pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		text = rule.Pattern.ReplaceAllString(text, Redaction)
		res.SecretsFound += len(matches)
		metrics.SecretsRedactedTotal.WithLabelValues(rule.Name).Add(float64(len(matches)))
		logger.Audit(p.logger, "secret_redacted",
			zap.String("pattern", rule.Name),
			zap.String("location", location),
			zap.Int("matches", len(matches)),
		)
	}
	return text
}

func (p *Processor) validate(resp *domain.Response, res *Result) {
	violate := func(v string) {
		res.Valid = false
		res.Violations = append(res.Violations, v)
	}

	if resp.Success {
		if strings.TrimSpace(resp.Answer) == "" {
			violate("success_without_answer")
			resp.Success = false
			resp.Answer = ""
			resp.Error = MsgGeneric
		}
		resp.Error = strings.TrimSpace(resp.Error)
		if resp.Success && resp.Error != "" {
			violate("success_with_error")
			resp.Error = ""
		}
	} else {
		if resp.Answer != "" {
			violate("failure_with_answer")
			resp.Answer = ""
		}
		if strings.TrimSpace(resp.Error) == "" {
			violate("failure_without_error")
			resp.Error = MsgGeneric
		}
	}
	if resp.Sources == nil {
		resp.Sources = []domain.Source{}
	}

	if !res.Valid {
		p.logger.Warn("Response violated structure invariants", zap.Strings("violations", res.Violations))
	}
}

// stripMap returns a copy of m without blocklisted keys at any depth.
func stripMap(m map[string]any, prefix string, stripped *[]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if IsInternalField(strings.ToLower(k)) {
			*stripped = append(*stripped, path)
			continue
		}
		out[k] = stripValue(v, path, stripped)
	}
	return out
}

func stripValue(v any, path string, stripped *[]string) any {
	switch t := v.(type) {
	case map[string]any:
		return stripMap(t, path, stripped)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = stripValue(e, path, stripped)
		}
		return out
	default:
		return v
	}
}
