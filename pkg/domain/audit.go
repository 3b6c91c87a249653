package domain

import "time"

// AuditRecord is one entry of the append-only conversation log.
type AuditRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Group     string    `json:"group"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`

	// SessionStart and SessionEnd wrap the entry in the session banners.
	SessionStart bool `json:"session_start,omitempty"`
	SessionEnd   bool `json:"session_end,omitempty"`
}
