package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank query after sanitization.
	ErrEmptyQuery = errors.New("empty query")
	// ErrQueryTooLong signals a query over the configured length cap.
	ErrQueryTooLong = errors.New("query too long")
	// ErrNoResults signals that retrieval produced no candidates.
	ErrNoResults = errors.New("no relevant documents")
	// ErrBackendUnavailable signals a remote backend failure or timeout.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMissingCredentials signals that a remote backend has no credential configured.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidResponse signals a malformed remote response.
	ErrInvalidResponse = errors.New("invalid backend response")
	// ErrQuotaExceeded signals an exhausted token budget.
	ErrQuotaExceeded = errors.New("token quota exceeded")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrIndexCorrupt signals an unreadable persisted index.
	ErrIndexCorrupt = errors.New("index file corrupt")
	// ErrSignatureMismatch signals a tampered or expired prompt signature.
	ErrSignatureMismatch = errors.New("prompt signature mismatch")
)
