package audit

import (
	"context"
	"errors"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/ports"
)

// Multi fans a record out to every sink. All sinks are attempted.
type Multi []ports.AuditLogger

func (m Multi) Append(ctx context.Context, rec domain.AuditRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
