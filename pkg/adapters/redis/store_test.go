package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/orderdesk/pkg/adapters/redis"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisCache_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunReplyCacheContract(t, redis.NewCache(client))
}

func TestRedisCache_HashesKeysAndNeverExpires(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewCache(client, redis.WithCachePrefix("test:reply:"))
	ctx := context.Background()

	history := `[{"role":"system","content":"a very long prompt"}]`
	require.NoError(t, cache.Put(ctx, history, "hello"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Regexp(t, `^test:reply:[0-9a-f]{64}$`, keys[0])
	assert.Equal(t, time.Duration(0), mr.TTL(keys[0]))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	// Create store with 1s TTL
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	userID := "user-ttl"

	// 1. Save
	err := store.Save(ctx, userID, domain.NewSession(userID, "experiment", time.Now()))
	assert.NoError(t, err)

	// 2. Verify List (immediately)
	sessions, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, sessions, userID)

	// 3. Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	// 4. Verify Load (should fail)
	_, err = store.Load(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// 5. Verify List (lazily cleaned up)
	// The index score is computed from time.Now(), so wait for wall time to pass it.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	// Custom Prefix
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	userID := "lily"

	err := store.Save(ctx, userID, domain.NewSession(userID, "experiment", time.Now()))
	assert.NoError(t, err)

	// Key should be "custom:app:lily"
	assert.True(t, mr.Exists("custom:app:lily"), "Expected key with custom prefix to exist")

	// Index should be "custom:app:index"
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, userID)
}
