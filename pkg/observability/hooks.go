package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// Hooks builds lifecycle hooks that log each event and record it in m.
// Either argument may be nil.
func Hooks(m *Metrics, logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_start", "user_id", e.UserID)
			if m != nil {
				m.SessionStarts.Inc()
			}
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn",
				"user_id", e.UserID,
				"from", e.From,
				"to", e.To,
				"cached", e.Cached,
			)
			if m != nil {
				m.Turns.WithLabelValues(string(e.To)).Inc()
			}
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			level := slog.LevelDebug
			outcome := "ok"
			if e.IsError {
				level = slog.LevelWarn
				outcome = "error"
			}
			logger.Log(ctx, level, "model_call",
				"user_id", e.UserID,
				"purpose", e.Purpose,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
			if m != nil {
				m.ModelCalls.WithLabelValues(e.Purpose, outcome).Inc()
				m.ModelLatency.WithLabelValues(e.Purpose).Observe(e.Duration.Seconds())
			}
		},
		OnCacheLookup: func(ctx context.Context, e *domain.CacheEvent) {
			result := "miss"
			if e.Hit {
				result = "hit"
			}
			logger.DebugContext(ctx, "cache_lookup", "user_id", e.UserID, "result", result)
			if m != nil {
				m.CacheLookups.WithLabelValues(result).Inc()
			}
		},
		OnTaskCompleted: func(ctx context.Context, e *domain.TaskEvent) {
			logger.InfoContext(ctx, "task_completed",
				"user_id", e.UserID,
				"task", e.Task,
				"order_id", e.OrderID,
			)
			if m != nil {
				m.Tasks.WithLabelValues(string(e.Task)).Inc()
			}
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_end", "user_id", e.UserID, "elapsed", e.Elapsed)
			if m != nil {
				m.SessionEnds.Inc()
				m.SessionLength.Observe(e.Elapsed.Seconds())
			}
		},
	}
}
