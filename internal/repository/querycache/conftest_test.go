package querycache

import (
	"context"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

type mockQuerier struct {
	resp  domain.Response
	calls int
}

func (m *mockQuerier) Query(_ context.Context, _ domain.QueryRequest) domain.Response {
	m.calls++
	return m.resp
}

func okResponse(answer string) domain.Response {
	return domain.Response{
		Success: true,
		Answer:  answer,
		Sources: []domain.Source{{ID: "a", Title: "Afvalbak", Snippet: "10.5 liter"}},
	}
}
