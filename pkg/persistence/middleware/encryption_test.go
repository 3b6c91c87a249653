package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/aretw0/orderdesk/pkg/adapters/memory"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/persistence/middleware"
	"github.com/aretw0/orderdesk/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func newSession() *domain.Session {
	s := domain.NewSession("lily", "experiment", time.Date(2024, 9, 12, 10, 0, 0, 0, time.UTC))
	s.Phase = domain.PhaseOrderMenu
	s.CustomerNumber = "123-456-7890"
	s.SelectedOrder = "A"
	s.Append(domain.RoleUser, "my address is 1 Main St")
	return s
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := middleware.Chain(memory.NewStore(),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
	ports.RunSessionStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	// 1. Save
	require.NoError(t, secure.Save(ctx, "lily", newSession()))

	// 2. The backend only sees the envelope
	stored, err := underlying.Load(ctx, "lily")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sealed)
	assert.Empty(t, stored.History)
	assert.Empty(t, stored.CustomerNumber)
	assert.Equal(t, domain.PhaseOrderMenu, stored.Phase)

	// 3. Load through the middleware restores everything
	loaded, err := secure.Load(ctx, "lily")
	require.NoError(t, err)
	assert.Equal(t, "123-456-7890", loaded.CustomerNumber)
	assert.Equal(t, "my address is 1 Main St", loaded.History[0].Content)
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Save(ctx, "lily", newSession()))

	// 1. New active key, old key as fallback
	newStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := newStore.Load(ctx, "lily")
	require.NoError(t, err)
	assert.Equal(t, "A", loaded.SelectedOrder)

	// 2. Saving re-encrypts with the new key
	require.NoError(t, newStore.Save(ctx, "lily", loaded))
	_, err = oldStore.Load(ctx, "lily")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainSessions(t *testing.T) {
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(context.Background(), "lily", newSession()))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(context.Background(), "lily")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestParseKeys(t *testing.T) {
	a, b := generateKey(t), generateKey(t)

	cfg, err := middleware.ParseKeys(base64.StdEncoding.EncodeToString(a), base64.StdEncoding.EncodeToString(b))
	require.NoError(t, err)
	assert.Equal(t, a, cfg.ActiveKey)
	assert.Equal(t, [][]byte{b}, cfg.FallbackKeys)

	_, err = middleware.ParseKeys(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.ParseKeys("%%%")
	assert.Error(t, err)
}
