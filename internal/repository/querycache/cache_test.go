package querycache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/db/memory"
	"github.com/kailas-cloud/shopqa/internal/domain"
)

func newTestCache(t *testing.T, inner *mockQuerier) (*Cache, *prometheus.CounterVec) {
	t.Helper()
	store := memory.NewStore()
	t.Cleanup(store.Close)
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_query_cache_total"}, []string{"result"})
	return New(inner, store, "shopqa:", time.Minute, counter, zap.NewNop()), counter
}

func TestQuery_SecondCallIsCached(t *testing.T) {
	inner := &mockQuerier{resp: okResponse("Het is 10.5 liter.")}
	c, counter := newTestCache(t, inner)
	ctx := context.Background()
	req := domain.QueryRequest{Query: "Hoeveel liter is de afvalbak?", Options: domain.DefaultQueryOptions()}

	first := c.Query(ctx, req)
	req.Query = "  hoeveel LITER is de afvalbak "
	second := c.Query(ctx, req)

	if inner.calls != 1 {
		t.Fatalf("expected 1 pipeline call, got %d", inner.calls)
	}
	if second.Answer != first.Answer || len(second.Sources) != 1 {
		t.Errorf("cached response differs: %+v", second)
	}
	if second.Metadata["cached"] != true {
		t.Error("expected cached marker on hit")
	}
	if testutil.ToFloat64(counter.WithLabelValues("hit")) != 1 {
		t.Error("expected one hit recorded")
	}
}

func TestQuery_HistoryBypassesCache(t *testing.T) {
	inner := &mockQuerier{resp: okResponse("ok")}
	c, counter := newTestCache(t, inner)
	req := domain.QueryRequest{
		Query:   "En de prijs?",
		History: []domain.Message{{Role: "user", Content: "Hoeveel liter?"}},
	}

	c.Query(context.Background(), req)
	c.Query(context.Background(), req)

	if inner.calls != 2 {
		t.Fatalf("expected every call to reach the pipeline, got %d", inner.calls)
	}
	if testutil.ToFloat64(counter.WithLabelValues("bypass")) != 2 {
		t.Error("expected bypass to be counted")
	}
}

func TestQuery_FailuresAreNotCached(t *testing.T) {
	inner := &mockQuerier{resp: domain.Response{Success: false, Error: "Geen relevante informatie gevonden."}}
	c, _ := newTestCache(t, inner)
	req := domain.QueryRequest{Query: "onbekend"}

	c.Query(context.Background(), req)
	c.Query(context.Background(), req)

	if inner.calls != 2 {
		t.Fatalf("failed responses must not be cached, calls=%d", inner.calls)
	}
}

func TestInvalidate_ChangesKeys(t *testing.T) {
	inner := &mockQuerier{resp: okResponse("ok")}
	c, _ := newTestCache(t, inner)
	req := domain.QueryRequest{Query: "garantie"}

	ctx := context.Background()
	before := c.Key(req)
	c.Invalidate(ctx)
	if c.Key(req) == before {
		t.Fatal("expected a new key after invalidation")
	}

	c.Query(ctx, req)
	c.Invalidate(ctx)
	c.Query(ctx, req)
	if inner.calls != 2 {
		t.Errorf("expected cache miss after invalidation, calls=%d", inner.calls)
	}
}

func TestSync_SharesGenerationAcrossProcesses(t *testing.T) {
	store := memory.NewStore()
	t.Cleanup(store.Close)
	ctx := context.Background()

	// The ingest command reindexes and bumps the shared generation.
	ingest := New(&mockQuerier{}, store, "shopqa:", time.Minute, nil, zap.NewNop())
	ingest.Invalidate(ctx)
	ingest.Invalidate(ctx)

	server := New(&mockQuerier{}, store, "shopqa:", time.Minute, nil, zap.NewNop())
	server.Sync(ctx)
	if server.Generation() != 2 {
		t.Fatalf("expected generation 2 after sync, got %d", server.Generation())
	}
	req := domain.QueryRequest{Query: "garantie"}
	if server.Key(req) != ingest.Key(req) {
		t.Error("processes on the same generation must agree on keys")
	}
}

func TestInvalidate_FallsBackToLocalGeneration(t *testing.T) {
	c := New(&mockQuerier{}, failingStore{}, "shopqa:", time.Minute, nil, zap.NewNop())
	c.Sync(context.Background())
	c.Invalidate(context.Background())
	if c.Generation() != 1 {
		t.Errorf("expected local bump to 1, got %d", c.Generation())
	}
}

func TestQuery_GenerationFallbackIsNotCached(t *testing.T) {
	degraded := okResponse("Volgens de productinformatie: 10.5 liter.")
	degraded.PipelineMetadata.FallbacksUsed = []string{"rerank:missing_credentials", "generate:timeout"}
	inner := &mockQuerier{resp: degraded}
	c, counter := newTestCache(t, inner)
	req := domain.QueryRequest{Query: "Hoeveel liter?", Options: domain.DefaultQueryOptions()}

	c.Query(context.Background(), req)
	second := c.Query(context.Background(), req)

	if inner.calls != 2 {
		t.Fatalf("fallback answers must not be cached, calls=%d", inner.calls)
	}
	if second.Metadata["cached"] == true {
		t.Error("second answer should come from the pipeline")
	}
	if testutil.ToFloat64(counter.WithLabelValues("skip_degraded")) != 2 {
		t.Error("expected skipped writes to be counted")
	}

	// Other stages falling back still leave a model answer worth caching.
	inner.resp.PipelineMetadata.FallbacksUsed = []string{"rerank:missing_credentials"}
	req.Query = "Wat is de garantie?"
	c.Query(context.Background(), req)
	c.Query(context.Background(), req)
	if inner.calls != 3 {
		t.Errorf("expected the model answer to be cached, calls=%d", inner.calls)
	}
}

func TestKey_OptionsChangeKey(t *testing.T) {
	c, _ := newTestCache(t, &mockQuerier{})
	a := domain.QueryRequest{Query: "prijs", Options: domain.DefaultQueryOptions()}
	b := a
	b.Options.EnableReranking = false
	if c.Key(a) == c.Key(b) {
		t.Error("options must be part of the key")
	}

	zero, warm := 0.0, 0.7
	d := a
	d.Options.Temperature = &zero
	e := a
	e.Options.Temperature = &warm
	if c.Key(a) == c.Key(d) || c.Key(d) == c.Key(e) {
		t.Error("an explicit temperature must be part of the key")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Incr(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestQuery_StoreErrorsAreNotFatal(t *testing.T) {
	inner := &mockQuerier{resp: okResponse("ok")}
	c := New(inner, failingStore{}, "shopqa:", time.Minute, nil, zap.NewNop())

	resp := c.Query(context.Background(), domain.QueryRequest{Query: "prijs"})
	if !resp.Success || inner.calls != 1 {
		t.Fatalf("expected pass-through on store failure, got %+v", resp)
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("  Hoeveel   LITER?? ") != "hoeveel liter" {
		t.Errorf("unexpected normalization: %q", Normalize("  Hoeveel   LITER?? "))
	}
}
