package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// ErrConflict is returned by an ObjectStore when the object changed since it was read.
var ErrConflict = errors.New("object changed concurrently")

// ObjectStore is the small slice of an object storage API the sink needs.
// Read returns generation 0 for a missing object. Write must fail with
// ErrConflict unless the stored generation still equals generation.
type ObjectStore interface {
	Read(ctx context.Context, name string) (data []byte, generation int64, err error)
	Write(ctx context.Context, name string, data []byte, generation int64) error
}

// DefaultObjectPrefix is the folder holding the per-user logs.
const DefaultObjectPrefix = "conversation_logs/"

// ObjectSink appends to per-user objects with read-modify-write. Writers in
// the same process are serialized per object, and writers elsewhere are
// detected through generation preconditions and retried.
type ObjectSink struct {
	store     ObjectStore
	prefix    string
	attempts  int
	mu        sync.Mutex
	perObject map[string]*sync.Mutex
}

// NewObjectSink creates a sink on store.
func NewObjectSink(store ObjectStore, prefix string) *ObjectSink {
	if prefix == "" {
		prefix = DefaultObjectPrefix
	}
	return &ObjectSink{
		store:     store,
		prefix:    prefix,
		attempts:  5,
		perObject: make(map[string]*sync.Mutex),
	}
}

// ObjectName returns the object holding userID's log.
func (s *ObjectSink) ObjectName(userID string) string {
	return s.prefix + FileName(userID)
}

func (s *ObjectSink) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.perObject[name]
	if !ok {
		m = &sync.Mutex{}
		s.perObject[name] = m
	}
	return m
}

func (s *ObjectSink) Append(ctx context.Context, rec domain.AuditRecord) error {
	name := s.ObjectName(rec.UserID)
	entry := []byte(Format(stamp(rec)))

	m := s.lock(name)
	m.Lock()
	defer m.Unlock()

	for attempt := 0; attempt < s.attempts; attempt++ {
		current, gen, err := s.store.Read(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		data := make([]byte, 0, len(current)+len(entry))
		data = append(append(data, current...), entry...)

		err = s.store.Write(ctx, name, data, gen)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return fmt.Errorf("failed to append to %s: %w", name, ErrConflict)
}
