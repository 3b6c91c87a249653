package runtime

import (
	"context"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/google/uuid"
)

// record appends a conversation entry for s to the audit log.
func (e *Engine) record(ctx context.Context, s *domain.Session, role domain.Role, text string) {
	e.appendAudit(ctx, domain.AuditRecord{
		UserID: s.UserID,
		Group:  s.Group,
		Role:   role,
		Text:   text,
	})
}

// appendAudit stamps and writes rec. Audit failures never fail a turn.
func (e *Engine) appendAudit(ctx context.Context, rec domain.AuditRecord) {
	if e.audit == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.Timestamp = e.now()
	if err := e.audit.Append(ctx, rec); err != nil {
		e.logger.Warn("Failed to write audit record", "user_id", rec.UserID, "role", rec.Role, "err", err)
	}
}

func (e *Engine) event(t domain.EventType, userID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, UserID: userID}
}

func (e *Engine) emitTurn(ctx context.Context, userID string, from, to domain.Phase, cached bool) {
	if e.hooks.OnTurn == nil {
		return
	}
	e.hooks.OnTurn(ctx, &domain.TurnEvent{
		EventBase: e.event(domain.EventTurn, userID),
		From:      from,
		To:        to,
		Cached:    cached,
	})
}
