package domain

import (
	"fmt"
	"time"
)

// TurnResult is the outcome of handling one user message.
type TurnResult struct {
	Reply           string    `json:"reply"`
	Options         []string  `json:"options"`
	ShowProgressBar bool      `json:"showProgressBar"`
	TasksCompleted  bool      `json:"tasksCompleted"`
	TaskFlags       TaskFlags `json:"taskFlags"`
	Phase           Phase     `json:"phase"`

	// Cached is set when the reply came from the response cache.
	Cached bool `json:"-"`
}

// EndSummary describes a finished session.
type EndSummary struct {
	UserID    string        `json:"userId"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
	Elapsed   time.Duration `json:"elapsed"`
	TaskFlags TaskFlags     `json:"taskFlags"`
}

// NewEndSummary computes the summary for s ending at endedAt.
func NewEndSummary(s *Session, endedAt time.Time) EndSummary {
	elapsed := endedAt.Sub(s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return EndSummary{
		UserID:    s.UserID,
		StartedAt: s.StartedAt,
		EndedAt:   endedAt,
		Elapsed:   elapsed,
		TaskFlags: s.TaskFlags,
	}
}

// Minutes and Seconds split the elapsed time, rounded to the nearest second.
func (e EndSummary) Minutes() int {
	return int(e.Elapsed.Round(time.Second) / time.Minute)
}

func (e EndSummary) Seconds() int {
	return int(e.Elapsed.Round(time.Second) % time.Minute / time.Second)
}

// Message renders the session-completed banner written to the audit log.
func (e EndSummary) Message() string {
	return fmt.Sprintf("\n===== SESSION COMPLETED =====\n"+
		"User proceeded to the questionnaire.\n"+
		"Total time to complete tasks: %d minutes and %d seconds\n"+
		"=============================\n", e.Minutes(), e.Seconds())
}
