package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
)

// run is the per-request bookkeeping. It is never shared between requests.
type run struct {
	start    time.Time
	meta     domain.PipelineMetadata
	warnings []string
	logger   *zap.Logger
}

func (r *run) timed(stage string, fn func()) {
	start := time.Now()
	defer func() {
		d := time.Since(start)
		r.meta.StageLatencyMS[stage] += d.Milliseconds()
		metrics.PipelineStageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}()
	fn()
}

// guard runs an optional stage, converting a panic into a fallback.
func (r *run) guard(stage string, fn func()) (ok bool) {
	r.timed(stage, func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Optional stage panicked",
					zap.String("stage", stage), zap.String("panic", fmt.Sprint(rec)))
				r.fallback(stage, "panic")
				ok = false
			}
		}()
		fn()
		ok = true
	})
	return ok
}

func (r *run) technique(name string) {
	for _, t := range r.meta.TechniquesApplied {
		if t == name {
			return
		}
	}
	r.meta.TechniquesApplied = append(r.meta.TechniquesApplied, name)
}

func (r *run) fallback(stage, reason string) {
	entry := stage
	if reason != "" {
		entry = stage + ":" + reason
	}
	r.meta.FallbacksUsed = append(r.meta.FallbacksUsed, entry)
	r.warn(stage + "_fallback")
	metrics.PipelineFallbacksTotal.WithLabelValues(stage).Inc()
	r.logger.Warn("Pipeline stage fell back", zap.String("stage", stage), zap.String("reason", reason))
}

func (r *run) warn(w string) {
	r.warnings = append(r.warnings, w)
}
