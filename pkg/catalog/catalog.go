// Package catalog holds the fixed set of orders a customer can manage and
// resolves free-form user input to one of them.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// Catalog is an immutable, ordered set of orders.
type Catalog struct {
	orders   []domain.Order
	matchers []*regexp.Regexp
}

// New builds a catalog from orders, preserving their order.
// Order IDs must be unique and non-empty.
func New(orders ...domain.Order) (*Catalog, error) {
	c := &Catalog{}
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			return nil, fmt.Errorf("catalog: order without id")
		}
		id := strings.ToLower(o.ID)
		if seen[id] {
			return nil, fmt.Errorf("catalog: duplicate order id %q", o.ID)
		}
		if !o.Status.Valid() {
			return nil, fmt.Errorf("catalog: order %s has unknown status %q", o.ID, o.Status)
		}
		seen[id] = true

		q := regexp.QuoteMeta(id)
		c.orders = append(c.orders, o)
		c.matchers = append(c.matchers, regexp.MustCompile(`\b(order\s*`+q+`|`+q+`)\b`))
	}
	return c, nil
}

// Default returns the three-order catalog used by the scripted scenario.
func Default() *Catalog {
	c, err := New(
		domain.Order{ID: "A", Product: "Product X", Status: domain.OrderInTransit, EstimatedDelivery: "2024-07-25"},
		domain.Order{ID: "B", Product: "Product Y", Status: domain.OrderProcessing, EstimatedDelivery: "2024-07-30"},
		domain.Order{ID: "C", Product: "Product Z", Status: domain.OrderDelivered, DeliveredOn: "2024-07-20"},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Orders returns the catalog entries in declaration order.
func (c *Catalog) Orders() []domain.Order {
	out := make([]domain.Order, len(c.orders))
	copy(out, c.orders)
	return out
}

// Get returns the order with the given ID.
func (c *Catalog) Get(id string) (domain.Order, bool) {
	for _, o := range c.orders {
		if strings.EqualFold(o.ID, id) {
			return o, true
		}
	}
	return domain.Order{}, false
}

// Labels returns the option labels of every order, e.g. "Order A".
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.orders))
	for i, o := range c.orders {
		out[i] = o.Label()
	}
	return out
}

// Match resolves a user message to an order. The message is lowercased and
// trimmed, then matched against each order in catalog order; the first hit wins.
// Both "order a" and a bare "a" standing as its own word select order A.
func (c *Catalog) Match(message string) (domain.Order, bool) {
	msg := strings.ToLower(strings.TrimSpace(message))
	for i, re := range c.matchers {
		if re.MatchString(msg) {
			return c.orders[i], true
		}
	}
	return domain.Order{}, false
}
