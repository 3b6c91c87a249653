package domain

// OrderStatus is the fulfilment state of a catalog order.
type OrderStatus string

const (
	OrderInTransit  OrderStatus = "in_transit"
	OrderProcessing OrderStatus = "processing"
	OrderDelivered  OrderStatus = "delivered"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderInTransit, OrderProcessing, OrderDelivered:
		return true
	}
	return false
}

// Order is a fixed catalog entry the user can manage.
// Dates are kept in ISO form since they are only ever displayed.
type Order struct {
	ID                string      `json:"id" mapstructure:"id"`
	Product           string      `json:"product" mapstructure:"product"`
	Status            OrderStatus `json:"status" mapstructure:"status"`
	EstimatedDelivery string      `json:"estimated_delivery,omitempty" mapstructure:"estimated_delivery"`
	DeliveredOn       string      `json:"delivered_on,omitempty" mapstructure:"delivered_on"`
}

// Label is the option label presented for the order, e.g. "Order A".
func (o Order) Label() string {
	return "Order " + o.ID
}

// Task identifies one of the scripted goals the user must reach.
type Task string

const (
	TaskTrackA  Task = "track_a"
	TaskModifyB Task = "modify_b"
	TaskReturnC Task = "return_c"
)
