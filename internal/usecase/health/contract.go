package health

import "context"

// CachePinger checks cache backend availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// IndexSizer reports the number of indexed documents.
type IndexSizer interface {
	Len() int
}

// BackendChecker checks a remote backend (generation, embedding).
type BackendChecker interface {
	HealthCheck(ctx context.Context) error
}
