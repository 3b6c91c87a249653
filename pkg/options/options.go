// Package options turns the "Options:" directive of a model reply into
// button labels, and marks labels the user already picked.
package options

import (
	"regexp"
	"strings"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// Navigation labels offered alongside model-generated options.
const (
	BackToOperations = "Back to Order Operations"
	BackToSelection  = "Back to Order Selection"
)

// Operations are the actions offered once an order has been selected.
var Operations = []string{"Track", "Modify", "Cancel", "Return"}

var (
	directive     = regexp.MustCompile(`(?i)Options:\s*([^\n\r]+)`)
	trailingPunct = regexp.MustCompile(`[,.]$`)
)

// Extract returns the labels listed after the first "Options:" directive in reply.
// Each label is trimmed and loses one trailing comma or period. A reply without
// a directive yields an empty, non-nil slice.
func Extract(reply string) []string {
	m := directive.FindStringSubmatch(reply)
	if m == nil {
		return []string{}
	}
	parts := strings.Split(m[1], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = trailingPunct.ReplaceAllString(strings.TrimSpace(p), "")
		out = append(out, p)
	}
	return out
}

// Annotator appends the "(Previously Selected)" marker to labels the user
// already chose for the selected order.
type Annotator struct {
	exempt map[string]struct{}
}

// NewAnnotator creates an annotator that never marks the given labels.
func NewAnnotator(exempt ...string) *Annotator {
	a := &Annotator{exempt: make(map[string]struct{}, len(exempt))}
	for _, label := range exempt {
		a.exempt[label] = struct{}{}
	}
	return a
}

// DefaultExemptions are the order labels and navigation labels for the given orders.
func DefaultExemptions(orderLabels []string) []string {
	return append(append([]string{}, orderLabels...), BackToOperations, BackToSelection)
}

// Annotate returns a copy of labels where every label found in used, and not
// exempt, carries the suffix exactly once.
func (a *Annotator) Annotate(labels, used []string) []string {
	seen := make(map[string]struct{}, len(used))
	for _, u := range used {
		seen[Normalize(u)] = struct{}{}
	}

	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = label
		if _, ok := a.exempt[label]; ok {
			continue
		}
		if strings.HasSuffix(label, domain.PreviouslySelectedSuffix) {
			continue
		}
		if _, ok := seen[label]; ok {
			out[i] = label + domain.PreviouslySelectedSuffix
		}
	}
	return out
}

// Normalize strips the annotation suffix from a label.
func Normalize(label string) string {
	return strings.TrimSpace(strings.TrimSuffix(label, domain.PreviouslySelectedSuffix))
}
