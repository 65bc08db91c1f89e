package chi

import (
	"context"
	"os"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
	"github.com/kailas-cloud/shopqa/internal/repository/querylog"
	"github.com/kailas-cloud/shopqa/internal/usecase/gateway"
	healthuc "github.com/kailas-cloud/shopqa/internal/usecase/health"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

type mockQuerier struct {
	mu   sync.Mutex
	last domain.QueryRequest
	resp domain.Response
}

func (m *mockQuerier) Query(ctx context.Context, req domain.QueryRequest) domain.Response {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	domain.UsageFromContext(ctx).AddGeneration(42)
	return m.resp
}

type mockQueryLog struct {
	entries []querylog.Entry
}

func (m *mockQueryLog) Append(e querylog.Entry) (string, error) {
	m.entries = append(m.entries, e)
	return "id", nil
}

type sizedIndex int

func (s sizedIndex) Len() int { return int(s) }

func okResponse() domain.Response {
	return domain.Response{
		Success: true,
		Answer:  "De afvalbak heeft een inhoud van 10.5 liter.",
		Sources: []domain.Source{{ID: "inhoud", Title: "Inhoud"}},
	}
}

func newTestServer(q *mockQuerier, ql *mockQueryLog) *Server {
	log := zap.NewNop()
	var qlog queryLog
	if ql != nil {
		qlog = ql
	}
	return NewServer(q, gateway.New(100, nil, log), healthuc.New(nil, sizedIndex(3)), qlog, log)
}
