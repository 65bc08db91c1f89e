package chi

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/shopqa/internal/domain"
	logpkg "github.com/kailas-cloud/shopqa/internal/logger"
)

// requestLog opens the request scope: a logger tagged with the request id, a token
// usage accumulator, and an X-Request-ID echo. It then writes one canonical line per request.
func requestLog(base *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := chiMiddleware.GetReqID(r.Context())
			if id != "" {
				w.Header().Set("X-Request-ID", id)
			}

			log := base.With(zap.String("request_id", id))
			ctx, usage := domain.NewContextWithUsage(logpkg.Into(r.Context(), log))
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			level := zapcore.InfoLevel
			if ww.Status() >= http.StatusInternalServerError {
				level = zapcore.WarnLevel
			}
			if ce := log.Check(level, "http_request"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("latency", time.Since(start)),
					zap.String("ip", r.RemoteAddr),
					zap.Int("response_bytes", ww.BytesWritten()),
					zap.Int("embedding_tokens", usage.EmbeddingTokens),
					zap.Int("generation_tokens", usage.GenerationTokens),
				)
			}
		})
	}
}

// recoverJSON turns a handler panic into the API's JSON 500.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel re-panic
				panic(rvr)
			}
			logpkg.From(r.Context()).Error("Handler panic", zap.Any("panic", rvr), zap.Stack("stacktrace"))
			writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		}()
		next.ServeHTTP(w, r)
	})
}
