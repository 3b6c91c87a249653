package audit

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/ports"
)

// Mask replaces redacted text.
const Mask = "***"

// Redactor masks text matching any of its patterns before handing records on.
type Redactor struct {
	next     ports.AuditLogger
	patterns []*regexp.Regexp
}

// NewRedactor wraps next. Patterns are Go regular expressions.
func NewRedactor(next ports.AuditLogger, patterns []string) (*Redactor, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return &Redactor{next: next, patterns: compiled}, nil
}

func (r *Redactor) Append(ctx context.Context, rec domain.AuditRecord) error {
	for _, p := range r.patterns {
		rec.Text = p.ReplaceAllString(rec.Text, Mask)
	}
	return r.next.Append(ctx, rec)
}
