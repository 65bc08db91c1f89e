package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

func TestAddDocuments_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.json")
	ix := New(Config{Path: path}, zap.NewNop())

	added, err := ix.AddDocuments([]domain.Document{
		testDoc("a", "Afvalbak", "De afvalbak heeft 10.5 liter inhoud."),
		testDoc("b", "Levering", "Levering binnen 2 werkdagen."),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	reopened := Open(Config{Path: path}, zap.NewNop())
	all := reopened.All()
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("unexpected reloaded docs: %+v", all)
	}
	if all[0].Metadata.Importance != domain.ImportanceMedium {
		t.Errorf("metadata not round-tripped: %+v", all[0].Metadata)
	}
	if len(all[0].Embedding) != 3 {
		t.Errorf("embedding not round-tripped: %v", all[0].Embedding)
	}
}

func TestAddDocuments_DedupesByID(t *testing.T) {
	ix := tempIndex(t, Config{})
	_, _ = ix.AddDocuments([]domain.Document{testDoc("a", "first", "x")})
	added, err := ix.AddDocuments([]domain.Document{testDoc("a", "second", "y"), testDoc("b", "b", "z")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 1 || ix.Len() != 2 {
		t.Fatalf("expected 1 added and 2 total, got %d/%d", added, ix.Len())
	}
	if ix.All()[0].Metadata.Title != "first" {
		t.Error("first document with an ID must win")
	}
}

func TestAddDocuments_EnforcesCap(t *testing.T) {
	ix := tempIndex(t, Config{MaxDocuments: 2})
	docs := []domain.Document{testDoc("a", "a", "a"), testDoc("b", "b", "b"), testDoc("c", "c", "c")}

	added, err := ix.AddDocuments(docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 2 || ix.Len() != 2 {
		t.Fatalf("expected cap of 2, got added=%d len=%d", added, ix.Len())
	}
	if len(ix.Warnings()) == 0 {
		t.Error("expected a warning when documents are dropped")
	}
}

func TestLoad_TruncatesDeterministically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeFile(t, path, numberedDocsJSON(12))

	ix := Open(Config{Path: path, MaxDocuments: 5}, zap.NewNop())
	if ix.Len() != 5 {
		t.Fatalf("expected exactly 5 documents, got %d", ix.Len())
	}
	for i, d := range ix.All() {
		want := []string{"d000", "d001", "d002", "d003", "d004"}[i]
		if d.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, d.ID)
		}
	}
	warnings := ix.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "truncated") {
		t.Errorf("expected truncation warning, got %v", warnings)
	}
}

func TestLoad_AcceptsObjectShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeFile(t, path, `{"documents":[{"content":"zonder id","metadata":{"title":"t","importance":"urgent"}}]}`)

	ix := Open(Config{Path: path}, zap.NewNop())
	all := ix.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 document, got %d", len(all))
	}
	if all[0].ID != domain.DocumentID("zonder id") {
		t.Errorf("expected content-hash id, got %q", all[0].ID)
	}
	if all[0].Metadata.Importance != domain.ImportanceLow {
		t.Errorf("unknown importance should map to low, got %q", all[0].Metadata.Importance)
	}
}

func TestLoad_MalformedDegradesToEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"garbage":   "not json at all",
		"truncated": `{"documents":[{"id":"a"`,
		"wrong":     `{"documents":"nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.json")
			writeFile(t, path, body)

			ix := Open(Config{Path: path}, zap.NewNop())
			if ix.Len() != 0 {
				t.Fatalf("expected empty index, got %d", ix.Len())
			}
			if len(ix.Warnings()) == 0 {
				t.Error("expected a warning for malformed file")
			}
		})
	}
}

func TestDecodeFile_WrapsCorruptError(t *testing.T) {
	_, err := decodeFile([]byte("???"))
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	ix := Open(Config{Path: filepath.Join(t.TempDir(), "absent.json")}, zap.NewNop())
	if ix.Len() != 0 || len(ix.Warnings()) != 0 {
		t.Fatalf("expected silent empty index, got len=%d warnings=%v", ix.Len(), ix.Warnings())
	}
}

func TestSearch_OrdersAndFilters(t *testing.T) {
	ix := tempIndex(t, Config{})
	docs := []domain.Document{
		{ID: "x", Content: "x", Embedding: []float32{0, 1}},
		{ID: "b", Content: "b", Embedding: []float32{1, 0}},
		{ID: "a", Content: "a", Embedding: []float32{1, 0}},
		{ID: "c", Content: "c", Embedding: []float32{1, 1}},
	}
	if _, err := ix.AddDocuments(docs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := ix.Search([]float32{1, 0}, 3, 0.5)
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if res[0].ID != "a" || res[1].ID != "b" || res[2].ID != "c" {
		t.Errorf("unexpected order: %s %s %s", res[0].ID, res[1].ID, res[2].ID)
	}
	if res[0].Rank != 1 || res[2].Rank != 3 {
		t.Errorf("ranks not assigned: %d %d", res[0].Rank, res[2].Rank)
	}
}

func TestSearch_RespectsScanLimit(t *testing.T) {
	ix := tempIndex(t, Config{MaxDocuments: 10, ScanLimit: 2})
	_, _ = ix.AddDocuments([]domain.Document{
		{ID: "1", Content: "1", Embedding: []float32{0, 1}},
		{ID: "2", Content: "2", Embedding: []float32{0, 1}},
		{ID: "3", Content: "3", Embedding: []float32{1, 0}},
	})

	if res := ix.Search([]float32{1, 0}, 5, 0.5); len(res) != 0 {
		t.Fatalf("document beyond scan limit must not be scored, got %+v", res)
	}
}

func TestVectorizer_BackfillsMissingEmbeddings(t *testing.T) {
	var seen []string
	ix := New(Config{}, zap.NewNop(), WithVectorizer(func(text string) []float32 {
		seen = append(seen, text)
		return []float32{1}
	}))
	_, _ = ix.AddDocuments([]domain.Document{{ID: "a", Content: "body", Metadata: domain.Metadata{Title: "Title"}}})

	if len(seen) != 1 || seen[0] != "Title\nbody" {
		t.Fatalf("expected vectorizer to see title and content, got %v", seen)
	}
	if len(ix.All()[0].Embedding) != 1 {
		t.Error("expected backfilled embedding")
	}
}

func TestClear_PersistsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	ix := New(Config{Path: path}, zap.NewNop())
	_, _ = ix.AddDocuments([]domain.Document{testDoc("a", "a", "a")})

	if err := ix.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Open(Config{Path: path}, zap.NewNop()).Len() != 0 {
		t.Error("expected cleared index to persist")
	}
}

func TestReload_SkipsOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	ix := New(Config{Path: path}, zap.NewNop())
	_, _ = ix.AddDocuments([]domain.Document{testDoc("a", "a", "a")})

	if ix.Reload() {
		t.Error("reload after own write should be a no-op")
	}

	writeFile(t, path, numberedDocsJSON(3))
	if !ix.Reload() {
		t.Fatal("expected reload after external write")
	}
	if ix.Len() != 3 {
		t.Errorf("expected 3 documents after reload, got %d", ix.Len())
	}
}

func TestConcurrentReadsDuringWrite(t *testing.T) {
	ix := tempIndex(t, Config{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = ix.Search([]float32{1, 0, 0}, 3, 0)
				_ = ix.All()
			}
		}()
	}
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		_, _ = ix.AddDocuments([]domain.Document{testDoc(id, id, id)})
	}
	wg.Wait()
	if ix.Len() != 20 {
		t.Errorf("expected 20 documents, got %d", ix.Len())
	}
}

func TestPersist_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	ix := New(Config{Path: filepath.Join(dir, "index.json")}, zap.NewNop())
	_, _ = ix.AddDocuments([]domain.Document{testDoc("a", "a", "a")})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "index.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only index.json, got %v", names)
	}
}
