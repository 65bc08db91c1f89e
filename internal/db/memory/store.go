// Package memory is an in-process db.Store with per-key TTL, used when no
// Redis/Valkey cache is configured and in tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/shopqa/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const cleanupInterval = 5 * time.Minute

type entry struct {
	data      []byte
	expiresAt time.Time // zero = no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store keeps values in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string]*entry
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewStore creates a store and starts background cleanup of expired keys.
func NewStore() *Store {
	s := &Store{
		data: make(map[string]*entry),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go s.backgroundCleanup()
	return s
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// WaitForReady always succeeds.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Close stops background cleanup.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || e.expired(s.now()) {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// SetWithTTL stores a copy of value. ttl <= 0 means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := &entry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

// Incr adds delta to a decimal counter, creating it at zero. An existing expiry is kept.
func (s *Store) Incr(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.data[key]
	if !ok || e.expired(now) {
		e = &entry{}
		s.data[key] = e
	}
	var cur int64
	if len(e.data) > 0 {
		n, err := strconv.ParseInt(string(e.data), 10, 64)
		if err != nil {
			return 0, &db.Error{Op: db.OpIncr, Err: err}
		}
		cur = n
	}
	cur += delta
	e.data = []byte(strconv.FormatInt(cur, 10))
	if ttl > 0 && e.expiresAt.IsZero() {
		e.expiresAt = now.Add(ttl)
	}
	return cur, nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, e := range s.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (s *Store) backgroundCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.data {
		if e.expired(now) {
			delete(s.data, key)
		}
	}
}
