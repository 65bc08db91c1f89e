package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/shopqa/internal/db"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	s := NewStore()
	t.Cleanup(s.Close)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStore_SetWithTTL_Expires(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	s.cleanup()
	if s.Len() != 0 {
		t.Errorf("expected cleanup to drop expired key, len=%d", s.Len())
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	val := []byte("abc")
	_ = s.SetWithTTL(ctx, "k", val, 0)
	val[0] = 'z'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value mutated: %q", got)
	}
	got[0] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned slice aliases storage: %q", again)
	}
}

func TestStore_IncrKeepsFirstTTL(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	var last int64
	for i, ttl := range []time.Duration{time.Hour, time.Second, time.Second} {
		n, err := s.Incr(ctx, "c", 5, ttl)
		if err != nil {
			t.Fatalf("incr %d: unexpected error: %v", i, err)
		}
		last = n
	}
	if last != 15 {
		t.Fatalf("expected 15, got %d", last)
	}

	*now = now.Add(time.Minute)
	if _, err := s.Get(ctx, "c"); err != nil {
		t.Fatalf("later writes must not shorten the TTL: %v", err)
	}
	*now = now.Add(time.Hour)
	if _, err := s.Get(ctx, "c"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected counter to expire after first TTL, got %v", err)
	}

	// An expired counter restarts from zero.
	if n, _ := s.Incr(ctx, "c", 2, 0); n != 2 {
		t.Errorf("expected restart at 2, got %d", n)
	}
}

func TestStore_IncrNonNumeric(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_ = s.SetWithTTL(ctx, "k", []byte("text"), 0)

	_, err := s.Incr(ctx, "k", 1, 0)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpIncr {
		t.Fatalf("expected INCRBY db.Error, got %v", err)
	}
}
