package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/embedding"
	"github.com/kailas-cloud/shopqa/internal/usecase/generation"
	"github.com/kailas-cloud/shopqa/internal/usecase/intent"
	"github.com/kailas-cloud/shopqa/internal/usecase/rerank"
	"github.com/kailas-cloud/shopqa/internal/usecase/response"
	"github.com/kailas-cloud/shopqa/internal/usecase/retrieval"
	"github.com/kailas-cloud/shopqa/internal/usecase/rewrite"
	"github.com/kailas-cloud/shopqa/internal/usecase/signing"
)

type staticDocs []domain.Document

func (s staticDocs) All() []domain.Document { return s }

type stubCompleter struct {
	answer string
	echo   bool
	err    error
	block  bool
}

func (s *stubCompleter) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	if s.block {
		<-ctx.Done()
		return domain.CompletionResult{}, ctx.Err()
	}
	if s.err != nil {
		return domain.CompletionResult{}, s.err
	}
	text := s.answer
	if s.echo {
		text = "Sure! Here it is:\n" + req.System + "\n" + req.User
	}
	return domain.CompletionResult{Text: text, Model: "stub"}, nil
}

type panicRewriter struct{}

func (panicRewriter) Rewrite(context.Context, string) domain.RewriteResult { panic("boom") }

type stubScorer struct{ scores []float64 }

func (s stubScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	for i := range out {
		if i < len(s.scores) {
			out[i] = s.scores[i]
		}
	}
	return out, nil
}

func productCorpus() staticDocs {
	local := embedding.NewLocalEmbedder(0)
	docs := []domain.Document{
		{
			ID:      "inhoud",
			Content: "De Brabantia afvalbak heeft een inhoud van 10.5 liter. Hij is gemaakt van RVS.",
			Metadata: domain.Metadata{
				Title: "Inhoud afvalbak", Type: "technical", Importance: domain.ImportanceHigh,
				Keywords: []string{"liter", "inhoud"}, ProductID: "bin-10",
			},
		},
		{
			ID:      "levering",
			Content: "Bestellingen worden binnen 2 werkdagen geleverd. Verzending is gratis vanaf 50 euro.",
			Metadata: domain.Metadata{
				Title: "Levering", Type: "faq", Importance: domain.ImportanceMedium,
				Keywords: []string{"levering", "verzending"},
			},
		},
		{
			ID:      "onderhoud",
			Content: "Clean the bin with a damp cloth and mild soap. Follow the care instructions on the label.",
			Metadata: domain.Metadata{
				Title: "Cleaning instructions", Type: "faq", Importance: domain.ImportanceLow,
				Keywords: []string{"instructions", "cleaning"},
			},
		},
		{
			ID:      "garantie",
			Content: "Op alle afvalbakken zit 10 jaar garantie.",
			Metadata: domain.Metadata{
				Title: "Garantie", Type: "faq", Importance: domain.ImportanceMedium,
				Keywords: []string{"garantie"}, ProductID: "bin-10",
			},
		},
	}
	for i := range docs {
		docs[i].Embedding = local.Vector(docs[i].Metadata.Title + " " + docs[i].Content)
	}
	return docs
}

type testSetup struct {
	completer domain.Completer
	rewriter  Rewriter
	scorer    rerank.Scorer
	docs      DocumentSource
	cfg       Config
}

func newPipeline(s testSetup) *Pipeline {
	log := zap.NewNop()
	signer := signing.NewSigner("test-secret", time.Minute)
	if s.docs == nil {
		s.docs = productCorpus()
	}
	if s.completer == nil {
		s.completer = generation.NoopCompleter{}
	}
	if s.rewriter == nil {
		s.rewriter = rewrite.New(nil, signer, rewrite.Config{}, log)
	}
	return New(Deps{
		Documents: s.docs,
		Rewriter:  s.rewriter,
		Intent:    intent.NewDetector(nil),
		Retriever: retrieval.New(embedding.NewLocalEmbedder(0), retrieval.Config{
			Fusion: retrieval.FusionBonus, WordBonus: 0.15, DualChannelBonus: 0.2,
		}, log),
		Reranker:  rerank.New(s.scorer, rerank.Config{MaxPairs: 20}, log),
		Generator: generation.New(s.completer, signer, generation.Config{Timeout: time.Second}, log),
		Processor: response.NewProcessor(nil, log),
	}, s.cfg, log)
}

func request(query string) domain.QueryRequest {
	return domain.QueryRequest{Query: query, Options: domain.DefaultQueryOptions()}
}

func sourceIDs(resp domain.Response) []string {
	out := make([]string, len(resp.Sources))
	for i, s := range resp.Sources {
		out[i] = s.ID
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func hasPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
