package ports

import (
	"context"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// ModelCaller sends a conversation to a chat-completion model and returns the reply text.
// Failures should wrap domain.ErrModelCall.
type ModelCaller interface {
	Complete(ctx context.Context, messages []domain.Message, sampling domain.Sampling) (string, error)
}
