package domain

// Phase is the position of a session in the scripted conversation.
// The set is closed: every session is in exactly one of the values below.
type Phase string

const (
	PhaseAwaitingIntroAck       Phase = "awaiting_intro_ack"
	PhaseAwaitingCustomerNumber Phase = "awaiting_customer_number"
	PhaseAwaitingOrderSelection Phase = "awaiting_order_selection"
	PhaseOrderMenu              Phase = "order_menu"
)

// Phases lists every phase in conversation order.
func Phases() []Phase {
	return []Phase{
		PhaseAwaitingIntroAck,
		PhaseAwaitingCustomerNumber,
		PhaseAwaitingOrderSelection,
		PhaseOrderMenu,
	}
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseAwaitingIntroAck, PhaseAwaitingCustomerNumber, PhaseAwaitingOrderSelection, PhaseOrderMenu:
		return true
	}
	return false
}
