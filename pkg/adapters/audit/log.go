package audit

import (
	"context"
	"log/slog"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// LogSink writes audit records to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink on logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, rec domain.AuditRecord) error {
	rec = stamp(rec)
	attrs := []any{
		"user_id", rec.UserID,
		"group", rec.Group,
		"role", rec.Role,
		"text", rec.Text,
	}
	if rec.SessionStart {
		attrs = append(attrs, "session_start", true)
	}
	if rec.SessionEnd {
		attrs = append(attrs, "session_end", true)
	}
	s.logger.InfoContext(ctx, "Conversation", attrs...)
	return nil
}
