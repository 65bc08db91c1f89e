package index

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

func testDoc(id, title, content string) domain.Document {
	return domain.Document{
		ID:        id,
		Content:   content,
		Embedding: []float32{1, 0, 0},
		Metadata:  domain.Metadata{Title: title, Type: "faq", Importance: domain.ImportanceMedium},
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func numberedDocsJSON(n int) string {
	out := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"id":"d%03d","content":"document %d","embedding":[1,0],"metadata":{"title":"t%d","type":"faq","importance":"low"}}`, i, i, i)
	}
	return out + "]"
}

func tempIndex(t *testing.T, cfg Config) *Index {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "index.json")
	}
	return New(cfg, zap.NewNop())
}
