// Package chi is the HTTP API on top of the pipeline.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	logpkg "github.com/kailas-cloud/shopqa/internal/logger"
	"github.com/kailas-cloud/shopqa/internal/metrics"
	"github.com/kailas-cloud/shopqa/internal/repository/querylog"
	"github.com/kailas-cloud/shopqa/internal/usecase/gateway"
	healthuc "github.com/kailas-cloud/shopqa/internal/usecase/health"
	"github.com/kailas-cloud/shopqa/internal/usecase/response"
)

const (
	maxBodyBytes   = 64 << 10
	maxLoggedQuery = 500
)

// Error codes returned outside the pipeline response shape.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

// ErrorResponse is the body of non-pipeline errors.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Querier answers a pipeline request. Implemented by the pipeline and the answer cache.
type Querier interface {
	Query(ctx context.Context, req domain.QueryRequest) domain.Response
}

type queryLog interface {
	Append(e querylog.Entry) (string, error)
}

// Options configures routing.
type Options struct {
	APIKeys     []string
	RateLimiter *RateLimiter
	Defaults    domain.QueryOptions
}

// Server serves the question answering API.
type Server struct {
	querier  Querier
	gateway  *gateway.Gateway
	health   *healthuc.Service
	queryLog queryLog
	defaults domain.QueryOptions
	logger   *zap.Logger
}

// NewServer creates an HTTP API server. queryLog may be nil.
func NewServer(
	querier Querier, gw *gateway.Gateway, health *healthuc.Service, ql queryLog, logger *zap.Logger,
) *Server {
	return &Server{
		querier:  querier,
		gateway:  gw,
		health:   health,
		queryLog: ql,
		defaults: domain.DefaultQueryOptions(),
		logger:   logger,
	}
}

// Handler builds the chi router with the middleware stack.
func (s *Server) Handler(opts Options) http.Handler {
	if opts.Defaults.TopK > 0 {
		s.defaults = opts.Defaults
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLog(s.logger))
	r.Use(recoverJSON)
	r.Use(BearerAuthMiddleware(opts.APIKeys))
	r.Use(opts.RateLimiter.Middleware())
	r.Use(metrics.Middleware())

	r.Post("/v1/query", s.Query)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Query handles POST /v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logpkg.From(r.Context())

	var body queryRequestDTO
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	gw, err := s.gateway.Process(body.Query)
	if err != nil {
		resp := domain.Response{Error: response.SanitizeError(err), Sources: []domain.Source{}}
		s.record(log, body.Query, gw.Findings, resp, start)
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	req, err := body.toDomain(gw.Query, s.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx, log := logpkg.With(r.Context(), zap.String("product_id", req.ProductID))
	usage := domain.UsageFromContext(ctx)
	if usage == nil {
		ctx, usage = domain.NewContextWithUsage(ctx)
	}
	resp := s.querier.Query(ctx, req)
	if len(gw.Findings) > 0 {
		resp.Warnings = append(resp.Warnings, "suspicious_input")
	}
	s.record(log, gw.Query, gw.Findings, resp, start)

	if usage.EmbeddingTokens > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
	if usage.GenerationTokens > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.GenerationTokens))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) record(log *zap.Logger, query string, findings []gateway.Finding, resp domain.Response, start time.Time) {
	if s.queryLog == nil {
		return
	}
	cached, _ := resp.Metadata["cached"].(bool)
	rules := make([]string, len(findings))
	for i, f := range findings {
		rules[i] = f.Category + ":" + f.Rule
	}
	if _, err := s.queryLog.Append(querylog.Entry{
		Query:     clip(query, maxLoggedQuery),
		Findings:  rules,
		Success:   resp.Success,
		Cached:    cached,
		LatencyMS: time.Since(start).Milliseconds(),
	}); err != nil {
		log.Warn("Failed to append query log", zap.Error(err))
	}
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
