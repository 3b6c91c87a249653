// Package detector decides from a model reply whether a scripted task has
// been achieved for the selected order.
package detector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// Rule binds an order to the task it completes. A reply satisfies the rule
// when every phrase group matches somewhere in it, in any order.
type Rule struct {
	OrderID string
	Task    domain.Task
	Message string
	groups  []*regexp.Regexp
	sources []string
}

// NewRule compiles groups case-insensitively.
func NewRule(orderID string, task domain.Task, message string, groups ...string) (Rule, error) {
	if len(groups) == 0 {
		return Rule{}, fmt.Errorf("detector: rule for order %s has no phrase groups", orderID)
	}
	r := Rule{OrderID: orderID, Task: task, Message: message, sources: groups}
	for _, g := range groups {
		re, err := regexp.Compile(`(?i)(?:` + g + `)`)
		if err != nil {
			return Rule{}, fmt.Errorf("detector: order %s: %w", orderID, err)
		}
		r.groups = append(r.groups, re)
	}
	return r, nil
}

// Groups returns the uncompiled phrase groups.
func (r Rule) Groups() []string {
	return append([]string(nil), r.sources...)
}

// Matches reports whether every phrase group occurs in reply.
func (r Rule) Matches(reply string) bool {
	for _, re := range r.groups {
		if !re.MatchString(reply) {
			return false
		}
	}
	return len(r.groups) > 0
}

// Detector holds at most one rule per order.
type Detector struct {
	rules map[string]Rule
	order []string
}

// New creates a detector. A later rule for the same order replaces an earlier one.
func New(rules ...Rule) *Detector {
	d := &Detector{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		id := strings.ToUpper(r.OrderID)
		if _, ok := d.rules[id]; !ok {
			d.order = append(d.order, id)
		}
		d.rules[id] = r
	}
	return d
}

// Default returns the rules of the scripted scenario: tracking order A,
// changing the delivery address of order B and returning order C.
func Default() *Detector {
	return New(
		mustRule("A", domain.TaskTrackA, "Track Order A Completed",
			`in transit|currently in transit`, `expected|estimated|should arrive`),
		mustRule("B", domain.TaskModifyB, "Modify Order B Completed",
			`updated|modified`, `delivery\s*address`),
		mustRule("C", domain.TaskReturnC, "Return Order C Completed",
			`system error`, `return label`, `generating`),
	)
}

func mustRule(orderID string, task domain.Task, message string, groups ...string) Rule {
	r, err := NewRule(orderID, task, message, groups...)
	if err != nil {
		panic(err)
	}
	return r
}

// Detect evaluates the rule of orderID against reply. Orders without a rule never fire.
func (d *Detector) Detect(orderID, reply string) (Rule, bool) {
	r, ok := d.rules[strings.ToUpper(orderID)]
	if !ok || !r.Matches(reply) {
		return Rule{}, false
	}
	return r, true
}

// Rules returns the configured rules in insertion order.
func (d *Detector) Rules() []Rule {
	out := make([]Rule, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.rules[id])
	}
	return out
}
