// Package querycache caches successful pipeline answers keyed by the normalized query.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/db"
	"github.com/kailas-cloud/shopqa/internal/domain"
)

// generateStage is the pipeline's generation stage name as it appears in fallbacks_used.
const generateStage = "generate"

// querier is the pipeline port being decorated.
type querier interface {
	Query(ctx context.Context, req domain.QueryRequest) domain.Response
}

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Cache is a read-through decorator over the pipeline.
// Requests with conversation history bypass the cache since the answer depends on it.
type Cache struct {
	inner      querier
	store      store
	prefix     string
	ttl        time.Duration
	generation atomic.Int64
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates an answer cache.
func New(
	inner querier, s store, keyPrefix string, ttl time.Duration,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *Cache {
	return &Cache{
		inner:      inner,
		store:      s,
		prefix:     keyPrefix + "answer:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Sync adopts the index generation shared through the store. Processes that
// reindexed while this one was down have bumped it, so their answers stay reachable
// and older ones do not.
func (c *Cache) Sync(ctx context.Context) {
	data, err := c.store.Get(ctx, c.generationKey())
	if errors.Is(err, db.ErrKeyNotFound) {
		return
	}
	if err != nil {
		c.logger.Warn("Failed to read answer cache generation", zap.Error(err))
		return
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		c.logger.Warn("Ignoring malformed answer cache generation", zap.ByteString("value", data))
		return
	}
	c.generation.Store(gen)
}

// Invalidate makes every previously cached answer unreachable, for this process
// and for every process that syncs afterwards. Called after the index changes.
func (c *Cache) Invalidate(ctx context.Context) {
	gen, err := c.store.Incr(ctx, c.generationKey(), 1, 0)
	if err != nil {
		c.logger.Warn("Shared cache generation not bumped, invalidating locally", zap.Error(err))
		c.generation.Add(1)
		return
	}
	c.generation.Store(gen)
}

// Generation is the index generation baked into answer keys.
func (c *Cache) Generation() int64 {
	return c.generation.Load()
}

func (c *Cache) generationKey() string {
	return c.prefix + "generation"
}

// Query returns a cached answer or runs the pipeline and stores a successful result.
func (c *Cache) Query(ctx context.Context, req domain.QueryRequest) domain.Response {
	if len(req.History) > 0 {
		c.inc("bypass")
		return c.inner.Query(ctx, req)
	}

	key := c.Key(req)
	if resp, ok := c.get(ctx, key); ok {
		c.inc("hit")
		if resp.Metadata == nil {
			resp.Metadata = map[string]any{}
		}
		resp.Metadata["cached"] = true
		return resp
	}
	c.inc("miss")

	resp := c.inner.Query(ctx, req)
	switch {
	case !resp.Success:
	case generationFellBack(resp.PipelineMetadata.FallbacksUsed):
		c.inc("skip_degraded")
	default:
		c.put(ctx, key, &resp)
	}
	return resp
}

// generationFellBack reports whether the answer is the deterministic fallback
// rather than a model answer. Those are served once and never stored.
func generationFellBack(fallbacks []string) bool {
	for _, f := range fallbacks {
		if f == generateStage || strings.HasPrefix(f, generateStage+":") {
			return true
		}
	}
	return false
}

// Key derives the cache key from the normalized query, product scope and options.
func (c *Cache) Key(req domain.QueryRequest) string {
	o := req.Options
	temperature := "default"
	if o.Temperature != nil {
		temperature = strconv.FormatFloat(*o.Temperature, 'f', 2, 64)
	}
	fingerprint := fmt.Sprintf("%s|%s|%t%t%t%t|%d|%.3f|%d|%s",
		Normalize(req.Query), req.ProductID,
		o.EnableQueryRewriting, o.EnableHierarchicalFilter, o.EnableEmbeddings, o.EnableReranking,
		o.TopK, o.MinScore, o.MaxTokens, temperature,
	)
	h := sha256.Sum256([]byte(fingerprint))
	return fmt.Sprintf("%s%d:%s", c.prefix, c.generation.Load(), hex.EncodeToString(h[:]))
}

// Normalize lowercases, collapses whitespace and trims trailing punctuation.
func Normalize(q string) string {
	q = strings.Join(strings.Fields(strings.ToLower(q)), " ")
	return strings.TrimRight(q, "?!. ")
}

func (c *Cache) get(ctx context.Context, key string) (domain.Response, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached answer", zap.String("key", key), zap.Error(err))
		}
		return domain.Response{}, false
	}
	var resp domain.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Failed to parse cached answer", zap.String("key", key), zap.Error(err))
		return domain.Response{}, false
	}
	return resp, resp.Success
}

func (c *Cache) put(ctx context.Context, key string, resp *domain.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("Failed to encode answer for cache", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache answer", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
