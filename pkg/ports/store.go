package ports

import (
	"context"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// SessionStore defines the interface for persisting conversation sessions.
// Sessions survive process restarts when a durable adapter is used.
type SessionStore interface {
	// Save persists the session for a given user ID.
	Save(ctx context.Context, userID string, session *domain.Session) error

	// Load retrieves the session for a given user ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a given user ID.
	Delete(ctx context.Context, userID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
