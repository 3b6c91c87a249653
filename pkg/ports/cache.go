package ports

import "context"

// ReplyCache maps a serialized conversation history to the model reply it produced.
// Entries are never expired or evicted.
type ReplyCache interface {
	// Get returns the reply stored under key, and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores reply under key, replacing any previous value.
	Put(ctx context.Context, key, reply string) error
}
