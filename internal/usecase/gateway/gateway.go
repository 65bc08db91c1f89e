// Package gateway sanitizes raw user input and flags known prompt-attack patterns
// before the query reaches the pipeline.
package gateway

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/logger"
	"github.com/kailas-cloud/shopqa/internal/metrics"
)

const defaultMaxQueryLength = 500

// maxStripPasses bounds re-tokenizing when entities decode into new markup.
const maxStripPasses = 3

// Elements whose content never reaches the query.
var droppedContent = map[string]bool{
	"script": true, "style": true, "iframe": true, "noscript": true,
	"noembed": true, "noframes": true, "xmp": true, "plaintext": true,
}

// Finding is one matched rule.
type Finding struct {
	Rule     string `json:"rule"`
	Category string `json:"category"`
}

// Result is a sanitized query plus the findings on its raw form.
type Result struct {
	Query    string
	Findings []Finding
}

// Gateway is the input boundary.
type Gateway struct {
	maxLen int
	rules  []Rule
	logger *zap.Logger
}

// New creates a gateway. nil rules selects DefaultRules.
func New(maxLen int, rules []Rule, logger *zap.Logger) *Gateway {
	if maxLen <= 0 {
		maxLen = defaultMaxQueryLength
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Gateway{maxLen: maxLen, rules: rules, logger: logger}
}

// Process inspects the raw input, then sanitizes it. Findings never block the request.
func (g *Gateway) Process(raw string) (Result, error) {
	findings := g.Inspect(raw)
	q, err := g.Sanitize(raw)
	if err != nil {
		return Result{Findings: findings}, err
	}
	return Result{Query: q, Findings: findings}, nil
}

// Sanitize strips HTML and control characters and collapses whitespace.
func (g *Gateway) Sanitize(raw string) (string, error) {
	s := raw
	for range maxStripPasses {
		if !strings.ContainsAny(s, "<&") {
			break
		}
		s = stripMarkup(s)
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError:
			return -1
		case unicode.Is(unicode.Cf, r):
			return -1
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	if s == "" {
		return "", domain.ErrEmptyQuery
	}
	if n := utf8.RuneCountInString(s); n > g.maxLen {
		return "", fmt.Errorf("%w: %d characters, limit %d", domain.ErrQueryTooLong, n, g.maxLen)
	}
	return s, nil
}

// stripMarkup keeps the decoded text tokens of s. Tags, comments, doctypes and
// the content of script-like elements are dropped, and an unterminated tag at
// the end swallows the rest of the input. Text tokens are joined by a space so
// fragments around a removed tag never merge back into markup.
func stripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var (
		b    strings.Builder
		skip bool
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip {
				skip = false
				continue
			}
			b.Write(z.Text())
			b.WriteByte(' ')
		case html.StartTagToken:
			name, _ := z.TagName()
			skip = droppedContent[string(name)]
		case html.EndTagToken, html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
			skip = false
		}
	}
}

// Inspect matches the raw input against the rule table. Each finding is counted and audited.
func (g *Gateway) Inspect(raw string) []Finding {
	text := strings.ToLower(raw)
	var out []Finding
	for _, r := range g.rules {
		if !r.Pattern.MatchString(text) {
			continue
		}
		out = append(out, Finding{Rule: r.Name, Category: r.Category})
		metrics.GatewayFindingsTotal.WithLabelValues(r.Category).Inc()
	}
	if len(out) > 0 {
		logger.Audit(g.logger, "gateway_suspicious_input",
			zap.Int("findings", len(out)),
			zap.Strings("categories", Categories(out)),
		)
	}
	return out
}

// Categories returns the distinct categories in order of first appearance.
func Categories(findings []Finding) []string {
	seen := make(map[string]bool, len(findings))
	var out []string
	for _, f := range findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}
