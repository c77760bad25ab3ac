package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/sage/pkg/metrics"
)

// Store is the cache backend. The Redis client wrapper satisfies it; misses
// are reported with redis.Nil.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedProvider decorates a Provider with a vector cache keyed by model and
// text, so repeated runs over an unchanged calendar window don't re-embed.
// Cache failures degrade to the underlying provider, never to an error.
type CachedProvider struct {
	provider Provider
	store    Store
	model    string
	ttl      time.Duration
	logger   ectologger.Logger
}

// NewCachedProvider wraps provider with a cache. model distinguishes vector
// spaces; a non-positive ttl defaults to 24h.
func NewCachedProvider(provider Provider, store Store, model string, ttl time.Duration, logger ectologger.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{
		provider: provider,
		store:    store,
		model:    model,
		ttl:      ttl,
		logger:   logger,
	}
}

// Embed returns the cached vector when present, otherwise embeds and caches.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	cached, err := c.store.Get(ctx, key)
	if err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(cached), &vec); jsonErr == nil && len(vec) > 0 {
			metrics.RecordEmbedCache("hit")
			return vec, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WithContext(ctx).WithError(err).Debug("Embedding cache read failed")
	}
	metrics.RecordEmbedCache("miss")

	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(vec); jsonErr == nil {
		if setErr := c.store.Set(ctx, key, string(data), c.ttl); setErr != nil {
			c.logger.WithContext(ctx).WithError(setErr).Debug("Embedding cache write failed")
		}
	}

	return vec, nil
}

// cacheKey hashes model and text so arbitrary calendar text never appears in
// key space.
func (c *CachedProvider) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return "sage:embed:" + hex.EncodeToString(h[:])
}
