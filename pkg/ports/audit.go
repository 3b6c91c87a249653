package ports

import (
	"context"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// AuditLogger appends records to the per-user conversation log.
// Implementations must only ever append.
type AuditLogger interface {
	Append(ctx context.Context, record domain.AuditRecord) error
}
