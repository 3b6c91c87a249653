package testutils

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// AuditRecorder implements ports.AuditLogger by keeping records in memory.
type AuditRecorder struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	Err     error
}

func (a *AuditRecorder) Append(ctx context.Context, record domain.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.records = append(a.records, record)
	return nil
}

// Records returns a copy of everything appended so far.
func (a *AuditRecorder) Records() []domain.AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.records)
}

// Texts returns the text of every record, in order.
func (a *AuditRecorder) Texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.records))
	for i, r := range a.records {
		out[i] = r.Text
	}
	return out
}
