package db

import (
	"context"
	"time"
)

// Store is the cache backend facade. Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore holds cached blobs and counters.
type KVStore interface {
	// Get returns ErrKeyNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetWithTTL stores value. ttl <= 0 stores it without expiry.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr adds delta to a decimal counter and returns the new value. A ttl > 0 is
	// applied only while the key has no expiry, so a bucket never outlives its first write's TTL.
	Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}
