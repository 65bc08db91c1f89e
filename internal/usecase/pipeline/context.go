package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// BuildContext renders ranked documents as "[n] title\ncontent" blocks within maxChars.
// The first document is always included, truncated if needed.
func BuildContext(docs []domain.ScoredDocument, maxChars int) string {
	var b strings.Builder
	remaining := maxChars
	for i, d := range docs {
		block := fmt.Sprintf("[%d] %s\n%s", i+1, d.Metadata.Title, strings.TrimSpace(d.Content))
		if i > 0 {
			block = "\n\n" + block
		}
		n := utf8.RuneCountInString(block)
		if n > remaining {
			if i == 0 {
				b.WriteString(truncate(block, remaining))
			}
			break
		}
		b.WriteString(block)
		remaining -= n
	}
	return b.String()
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}
