package memory

import (
	"context"
	"sync"
)

// Cache implements ports.ReplyCache with an unbounded map.
type Cache struct {
	mu      sync.RWMutex
	replies map[string]string
}

// NewCache creates an empty reply cache.
func NewCache() *Cache {
	return &Cache{replies: make(map[string]string)}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reply, ok := c.replies[key]
	return reply, ok, nil
}

func (c *Cache) Put(ctx context.Context, key, reply string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[key] = reply
	return nil
}

// Len reports the number of cached replies.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.replies)
}
