package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-test-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a session with every field populated
		session := domain.NewSession(userID, "experiment", time.Date(2024, 9, 12, 10, 0, 0, 0, time.UTC))
		session.Append(domain.RoleSystem, "prompt")
		session.Append(domain.RoleAssistant, "hello")
		session.Phase = domain.PhaseOrderMenu
		session.SelectedOrder = "A"
		session.CustomerNumber = "123-456"
		session.Interactions.Record("A", "Track")
		session.TaskFlags.Set(domain.TaskTrackA)

		// 2. Save
		err := store.Save(ctx, userID, session)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.Phase, loaded.Phase)
		assert.Equal(t, session.History, loaded.History)
		assert.Equal(t, "A", loaded.SelectedOrder)
		assert.Equal(t, "123-456", loaded.CustomerNumber)
		assert.Equal(t, []string{"Track"}, loaded.Interactions.For("A"))
		assert.True(t, loaded.TaskFlags.TrackOrderA)
		assert.True(t, session.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Loaded Session Is Isolated", func(t *testing.T) {
		session := domain.NewSession(userID, "experiment", time.Now())
		require.NoError(t, store.Save(ctx, userID, session))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		loaded.Append(domain.RoleUser, "mutated")
		loaded.Phase = domain.PhaseOrderMenu

		again, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, again.History, "mutating a loaded session must not leak into the store")
		assert.Equal(t, domain.PhaseAwaitingIntroAck, again.Phase)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, userID, domain.NewSession(userID, "experiment", time.Now()))
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, userID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 sessions
		id1 := userID + "-1"
		id2 := userID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1, "experiment", time.Now()))
		_ = store.Save(ctx, id2, domain.NewSession(id2, "experiment", time.Now()))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunReplyCacheContract verifies that a ReplyCache implementation behaves as an
// unbounded key/value map.
func RunReplyCacheContract(t *testing.T, cache ReplyCache) {
	ctx := context.Background()
	key := `[{"role":"system","content":"contract-` + time.Now().Format("20060102150405") + `"}]`

	t.Run("Miss", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, "missing-"+key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key, "Your order is on its way. Options: Track, Back to Order Operations"))

		reply, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Your order is on its way. Options: Track, Back to Order Operations", reply)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key, "second"))

		reply, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", reply)
	})

	t.Run("Empty Reply Is Stored", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "empty-"+key, ""))

		reply, ok, err := cache.Get(ctx, "empty-"+key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, reply)
	})
}
