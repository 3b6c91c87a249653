package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Cache implements ports.ReplyCache using Redis.
// Histories grow long, so keys are stored as their SHA-256 digest.
// Entries never expire.
type Cache struct {
	client *backend.Client
	prefix string
}

// CacheOption configures the Cache.
type CacheOption func(*Cache)

// WithCachePrefix sets the key prefix for cached replies.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// NewCache creates a reply cache on an existing client.
func NewCache(client *backend.Client, opts ...CacheOption) *Cache {
	c := &Cache{client: client, prefix: DefaultPrefix + "reply:"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(history string) string {
	sum := sha256.Sum256([]byte(history))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get reply from redis: %w", err)
	}
	return val, true, nil
}

func (c *Cache) Put(ctx context.Context, key, reply string) error {
	if err := c.client.Set(ctx, c.key(key), reply, 0).Err(); err != nil {
		return fmt.Errorf("failed to store reply in redis: %w", err)
	}
	return nil
}
