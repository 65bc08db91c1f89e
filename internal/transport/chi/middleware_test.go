package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/shopqa/internal/domain"
	logpkg "github.com/kailas-cloud/shopqa/internal/logger"
)

func TestRequestLog_CanonicalLineCarriesTokens(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		domain.UsageFromContext(r.Context()).AddEmbedding(8)
		domain.UsageFromContext(r.Context()).AddGeneration(120)
		logpkg.From(r.Context()).Info("inside")
		w.WriteHeader(http.StatusOK)
	})
	h := chiMiddleware.RequestID(requestLog(zap.New(core))(inner))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", http.NoBody))

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID to be echoed")
	}
	lines := logs.FilterMessage("http_request").All()
	if len(lines) != 1 {
		t.Fatalf("expected one canonical line, got %d", len(lines))
	}
	fields := lines[0].ContextMap()
	if fields["embedding_tokens"] != int64(8) || fields["generation_tokens"] != int64(120) {
		t.Errorf("unexpected token fields: %v", fields)
	}
	inside := logs.FilterMessage("inside").All()
	if len(inside) != 1 || inside[0].ContextMap()["request_id"] != fields["request_id"] {
		t.Error("handler logger should share the request id")
	}
}

func TestRequestLog_ServerErrorsLogAtWarn(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := requestLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if n := logs.FilterLevelExact(zap.WarnLevel).Len(); n != 1 {
		t.Errorf("expected 5xx at warn level, got %d warn lines", n)
	}
}
