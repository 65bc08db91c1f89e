package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every component passed.
	Healthy Status = "ok"
	// Degraded means partial failure. The pipeline still answers through its fallbacks.
	Degraded Status = "degraded"
)

// CheckResult is the outcome of a single component check.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	// CheckEmpty marks an index without documents.
	CheckEmpty CheckResult = "empty"
	// CheckUnconfigured marks a backend running without credentials.
	CheckUnconfigured CheckResult = "unconfigured"
)

// Report aggregates check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service runs component checks in parallel, each under its own timeout.
type Service struct {
	cache    CachePinger
	index    IndexSizer
	backends map[string]BackendChecker
	timeout  time.Duration
}

// New creates a Service. cache may be nil when caching is disabled.
func New(cache CachePinger, index IndexSizer) *Service {
	return &Service{
		cache:    cache,
		index:    index,
		backends: map[string]BackendChecker{},
		timeout:  DefaultCheckTimeout,
	}
}

// WithBackend registers a remote backend check under name.
func (s *Service) WithBackend(name string, b BackendChecker) *Service {
	if b != nil {
		s.backends[name] = b
	}
	return s
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every registered check. Checks must honor ctx cancellation.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.backends)+2)
	if s.index.Len() > 0 {
		checks["index"] = CheckOK
	} else {
		checks["index"] = CheckEmpty
	}

	probes := make(map[string]func(context.Context) error, len(s.backends)+1)
	if s.cache != nil {
		probes["cache"] = s.cache.Ping
	}
	for name, b := range s.backends {
		probes[name] = b.HealthCheck
	}

	// Failures are results, not group errors: every probe returns nil.
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, probe := range probes {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := result(probe(cctx))
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	switch {
	case err == nil:
		return CheckOK
	case errors.Is(err, domain.ErrMissingCredentials):
		return CheckUnconfigured
	default:
		return CheckError
	}
}
