package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventTurn          EventType = "turn"
	EventModelCall     EventType = "model_call"
	EventCacheLookup   EventType = "cache_lookup"
	EventTaskCompleted EventType = "task_completed"
	EventSessionEnd    EventType = "session_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
}

// SessionEvent is emitted when a session starts or ends.
type SessionEvent struct {
	EventBase
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// TurnEvent is emitted after a user message has been handled.
type TurnEvent struct {
	EventBase
	From   Phase `json:"from"`
	To     Phase `json:"to"`
	Cached bool  `json:"cached,omitempty"`
}

// ModelEvent reports a single call to the language model.
type ModelEvent struct {
	EventBase
	Purpose  string        `json:"purpose"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// CacheEvent reports a response cache lookup.
type CacheEvent struct {
	EventBase
	Hit bool `json:"hit"`
}

// TaskEvent is emitted the first time a task flag flips.
type TaskEvent struct {
	EventBase
	Task    Task   `json:"task"`
	OrderID string `json:"order_id"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnSessionStart  func(context.Context, *SessionEvent)
	OnTurn          func(context.Context, *TurnEvent)
	OnModelCall     func(context.Context, *ModelEvent)
	OnCacheLookup   func(context.Context, *CacheEvent)
	OnTaskCompleted func(context.Context, *TaskEvent)
	OnSessionEnd    func(context.Context, *SessionEvent)
}
