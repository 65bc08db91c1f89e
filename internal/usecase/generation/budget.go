package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
)

// BudgetAction defines behavior when the generation token budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs once per period but lets completions run.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject refuses the completion; the generator falls back.
	BudgetActionReject BudgetAction = "reject"
)

const persistTimeout = 2 * time.Second

// BudgetStore persists token counters per provider and period bucket.
// Add returns the bucket total, which includes spend by other processes.
type BudgetStore interface {
	Add(ctx context.Context, provider string, period domain.BudgetPeriod, at time.Time, tokens int64) (int64, error)
	Used(ctx context.Context, provider string, period domain.BudgetPeriod, at time.Time) (int64, error)
}

// window is one period's counter. bucket names the day or month it counts.
type window struct {
	period domain.BudgetPeriod
	limit  int64
	used   int64
	bucket string
	warned bool
}

func (w *window) roll(now time.Time) {
	if b := w.period.Bucket(now); b != w.bucket {
		w.bucket, w.used, w.warned = b, 0, false
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	switch {
	case w.limit == 0:
		return -1
	case w.used >= w.limit:
		return 0
	}
	return w.limit - w.used
}

// Budget caps LLM token spend per UTC day and month. Zero limits mean unlimited.
// Check reads memory only; Record writes through to the store when one is attached.
type Budget struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	windows  [2]*window
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudget creates a tracker with empty counters.
func NewBudget(provider string, dailyLimit, monthlyLimit int64, action BudgetAction, logger *zap.Logger) *Budget {
	b := &Budget{
		provider: provider,
		action:   action,
		windows: [2]*window{
			{period: domain.BudgetDaily, limit: dailyLimit},
			{period: domain.BudgetMonthly, limit: monthlyLimit},
		},
		now:    time.Now,
		logger: logger.With(zap.String("provider", provider)),
	}
	b.mu.Lock()
	b.rollLocked()
	b.publishLocked()
	b.mu.Unlock()
	return b
}

// WithStore attaches store and adopts the spend it already holds for the current buckets.
// Unreadable counters start at zero.
func (b *Budget) WithStore(ctx context.Context, store BudgetStore) *Budget {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	b.rollLocked()
	for _, w := range b.windows {
		used, err := store.Used(ctx, b.provider, w.period, now)
		if err != nil {
			b.logger.Warn("Failed to load generation budget", zap.String("period", string(w.period)), zap.Error(err))
			continue
		}
		w.used = used
	}
	b.logger.Info("Generation budget loaded",
		zap.Int64("daily_used", b.windows[0].used),
		zap.Int64("monthly_used", b.windows[1].used),
	)
	b.publishLocked()
	return b
}

// Check returns domain.ErrQuotaExceeded when a limit is reached and the action is reject.
func (b *Budget) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollLocked()
	for _, w := range b.windows {
		if !w.exceeded() {
			continue
		}
		if b.action == BudgetActionReject {
			return fmt.Errorf("%s %s generation budget: %w", b.provider, w.period, domain.ErrQuotaExceeded)
		}
		if !w.warned {
			w.warned = true
			b.logger.Warn("Generation token budget exceeded",
				zap.String("period", string(w.period)),
				zap.String("bucket", w.bucket),
				zap.Int64("used", w.used),
				zap.Int64("limit", w.limit),
			)
		}
	}
	return nil
}

// Record adds consumed tokens and, with a store, adopts the shared bucket totals.
func (b *Budget) Record(tokens int64) {
	if tokens <= 0 {
		return
	}

	b.mu.Lock()
	b.rollLocked()
	for _, w := range b.windows {
		w.used += tokens
	}
	b.publishLocked()
	store, now := b.store, b.now()
	b.mu.Unlock()

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	for i, w := range b.windows {
		total, err := store.Add(ctx, b.provider, w.period, now, tokens)
		if err != nil {
			b.logger.Warn("Failed to persist generation budget", zap.String("period", string(w.period)), zap.Error(err))
			continue
		}
		b.adopt(i, w.period.Bucket(now), total)
	}
}

// adopt raises a window to the shared total unless the bucket rolled meanwhile.
func (b *Budget) adopt(i int, bucket string, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w := b.windows[i]; w.bucket == bucket && total > w.used {
		w.used = total
		b.publishLocked()
	}
}

// Used returns tokens consumed in the current bucket of period.
func (b *Budget) Used(period domain.BudgetPeriod) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	if w := b.window(period); w != nil {
		return w.used
	}
	return 0
}

// Remaining returns tokens left in the current bucket of period, -1 when unlimited.
func (b *Budget) Remaining(period domain.BudgetPeriod) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	if w := b.window(period); w != nil {
		return w.remaining()
	}
	return -1
}

func (b *Budget) window(period domain.BudgetPeriod) *window {
	for _, w := range b.windows {
		if w.period == period {
			return w
		}
	}
	return nil
}

func (b *Budget) rollLocked() {
	now := b.now()
	for _, w := range b.windows {
		w.roll(now)
	}
}

func (b *Budget) publishLocked() {
	for _, w := range b.windows {
		metrics.GenerationBudgetTokensRemaining.WithLabelValues(b.provider, string(w.period)).
			Set(float64(w.remaining()))
	}
}
