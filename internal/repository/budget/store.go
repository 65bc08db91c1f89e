package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/shopqa/internal/db"
	"github.com/kailas-cloud/shopqa/internal/domain"
)

type counters interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Store keeps per-provider token counters, one key per period bucket.
// Keys look like {prefix}budget:{provider}:{period}:{bucket}.
type Store struct {
	kv        counters
	keyPrefix string
	ttl       map[domain.BudgetPeriod]time.Duration
}

// New creates a budget store. Each bucket key expires after its period TTL,
// so old days and months drop out of the store on their own.
func New(kv counters, keyPrefix string, dailyTTL, monthlyTTL time.Duration) *Store {
	return &Store{
		kv:        kv,
		keyPrefix: keyPrefix,
		ttl: map[domain.BudgetPeriod]time.Duration{
			domain.BudgetDaily:   dailyTTL,
			domain.BudgetMonthly: monthlyTTL,
		},
	}
}

// Key returns the counter key for provider's bucket at t.
func (s *Store) Key(provider string, period domain.BudgetPeriod, at time.Time) string {
	return s.keyPrefix + "budget:" + provider + ":" + string(period) + ":" + period.Bucket(at)
}

// Add increments the bucket counter by tokens and returns the new total.
func (s *Store) Add(
	ctx context.Context, provider string, period domain.BudgetPeriod, at time.Time, tokens int64,
) (int64, error) {
	total, err := s.kv.Incr(ctx, s.Key(provider, period, at), tokens, s.ttl[period])
	if err != nil {
		return 0, fmt.Errorf("add %s budget: %w", period, err)
	}
	return total, nil
}

// Used returns the tokens spent in the bucket containing at. Unknown buckets are zero.
func (s *Store) Used(ctx context.Context, provider string, period domain.BudgetPeriod, at time.Time) (int64, error) {
	key := s.Key(provider, period, at)
	raw, err := s.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read %s budget: %w", period, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s budget %q: %w", period, key, err)
	}
	return n, nil
}
