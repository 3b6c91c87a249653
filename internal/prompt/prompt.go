// Package prompt renders the system prompt that scripts the assistant.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// DefaultReferenceDate is the "today" the assistant reasons from. It is fixed
// so that identical conversations render identical prompts.
const DefaultReferenceDate = "12.9.2024"

//go:embed system.tmpl
var defaultTemplate string

// Params feed the template.
type Params struct {
	ReferenceDate string
	Orders        []domain.Order

	// EscalationOrder is the order whose return label always fails.
	EscalationOrder string
}

var funcs = template.FuncMap{
	"statusText": func(s domain.OrderStatus) string {
		return strings.ReplaceAll(string(s), "_", " ")
	},
}

// Render executes the built-in template.
func Render(p Params) (string, error) {
	return RenderText(defaultTemplate, p)
}

// RenderFile executes a template read from path.
func RenderFile(path string, p Params) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	return RenderText(string(data), p)
}

// RenderText executes text as a prompt template.
func RenderText(text string, p Params) (string, error) {
	if p.ReferenceDate == "" {
		p.ReferenceDate = DefaultReferenceDate
	}
	tmpl, err := template.New("system").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}
