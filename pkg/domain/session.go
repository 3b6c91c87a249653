package domain

import (
	"slices"
	"strings"
	"time"
)

// DefaultUserID is used when a client does not identify itself.
const DefaultUserID = "default"

// PreviouslySelectedSuffix marks an option label the user already chose for the current order.
const PreviouslySelectedSuffix = " (Previously Selected)"

// TaskFlags records which scripted tasks have been achieved.
// Flags only ever go from false to true.
type TaskFlags struct {
	TrackOrderA  bool `json:"trackOrderACompleted"`
	ModifyOrderB bool `json:"modifyOrderBCompleted"`
	ReturnOrderC bool `json:"returnOrderCCompleted"`
}

// Set marks task as completed. It reports whether the flag changed.
func (f *TaskFlags) Set(task Task) bool {
	var flag *bool
	switch task {
	case TaskTrackA:
		flag = &f.TrackOrderA
	case TaskModifyB:
		flag = &f.ModifyOrderB
	case TaskReturnC:
		flag = &f.ReturnOrderC
	default:
		return false
	}
	if *flag {
		return false
	}
	*flag = true
	return true
}

// All reports whether every task has been completed.
func (f TaskFlags) All() bool {
	return f.TrackOrderA && f.ModifyOrderB && f.ReturnOrderC
}

// Interactions maps an order ID to the option labels chosen while that order was selected.
type Interactions map[string][]string

// Record adds label to the set for orderID. The annotation suffix is stripped
// so that picking an annotated option counts as the original label.
func (i Interactions) Record(orderID, label string) bool {
	label = strings.TrimSpace(strings.TrimSuffix(label, PreviouslySelectedSuffix))
	if orderID == "" || label == "" {
		return false
	}
	if slices.Contains(i[orderID], label) {
		return false
	}
	i[orderID] = append(i[orderID], label)
	return true
}

// For returns the labels recorded for orderID.
func (i Interactions) For(orderID string) []string {
	return i[orderID]
}

// Session is the per-user conversation record.
type Session struct {
	UserID         string       `json:"user_id"`
	Phase          Phase        `json:"phase"`
	History        []Message    `json:"history"`
	SelectedOrder  string       `json:"selected_order,omitempty"`
	CustomerNumber string       `json:"customer_number,omitempty"`
	Interactions   Interactions `json:"interactions"`
	TaskFlags      TaskFlags    `json:"task_flags"`
	Group          string       `json:"group"`
	StartedAt      time.Time    `json:"started_at"`

	// Sealed carries the encrypted session when the store is wrapped by an
	// encrypting middleware. It is empty on sessions handed to the engine.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates an empty session in the first phase.
func NewSession(userID, group string, startedAt time.Time) *Session {
	return &Session{
		UserID:       userID,
		Phase:        PhaseAwaitingIntroAck,
		History:      []Message{},
		Interactions: make(Interactions),
		Group:        group,
		StartedAt:    startedAt,
	}
}

// Append adds a message to the end of the history.
func (s *Session) Append(role Role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = slices.Clone(s.History)
	if out.History == nil {
		out.History = []Message{}
	}
	out.Interactions = make(Interactions, len(s.Interactions))
	for id, labels := range s.Interactions {
		out.Interactions[id] = slices.Clone(labels)
	}
	return &out
}
