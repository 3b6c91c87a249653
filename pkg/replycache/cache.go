// Package replycache memoizes model replies by the exact conversation history
// that produced them, and collapses concurrent identical misses into one call.
package replycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/orderdesk/internal/logging"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Key serializes history structurally. Two histories share a key exactly when
// they hold the same role/content pairs in the same order.
func Key(history []domain.Message) (string, error) {
	if history == nil {
		history = []domain.Message{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to serialize history: %w", err)
	}
	return string(data), nil
}

// Cache fronts a ports.ReplyCache.
type Cache struct {
	store  ports.ReplyCache
	group  singleflight.Group
	logger *slog.Logger
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger configures a logger for the Cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New wraps store.
func New(store ports.ReplyCache, opts ...Option) *Cache {
	c := &Cache{store: store, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the cached reply for key, or calls generate and stores its
// result. hit reports whether this caller skipped the model: only the caller
// that ran generate sees a miss, callers joining its flight see a hit.
// A failed generation is never stored. A failing backend is treated as a miss.
func (c *Cache) Generate(ctx context.Context, key string, generate func(context.Context) (string, error)) (reply string, hit bool, err error) {
	if reply, ok := c.lookup(ctx, key); ok {
		return reply, true, nil
	}

	leader := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		if reply, ok := c.lookup(ctx, key); ok {
			return cached(reply), nil
		}
		leader = true
		reply, err := generate(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(ctx, key, reply); err != nil {
			c.logger.Warn("Failed to store reply in cache", "err", err)
		}
		return reply, nil
	})
	if err != nil {
		return "", false, err
	}
	if r, ok := v.(cached); ok {
		return string(r), true, nil
	}
	return v.(string), !leader, nil
}

type cached string

func (c *Cache) lookup(ctx context.Context, key string) (string, bool) {
	reply, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Reply cache lookup failed, treating as miss", "err", err)
		return "", false
	}
	return reply, ok
}
