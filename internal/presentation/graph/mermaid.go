package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/orderdesk/internal/runtime"
	"github.com/aretw0/orderdesk/pkg/domain"
)

const startID = "start"

// Overlay contains session state to visualize on the graph.
type Overlay struct {
	Current domain.Phase
}

// GenerateMermaid produces a Mermaid flowchart of the conversation phases.
// It applies semantic styling:
// - Entry: ((Circle))
// - Phases waiting for typed input: [/Parallelogram/]
// - The model-backed order menu: [[Subroutine]]
// Arcs that stay in the same phase are dotted.
func GenerateMermaid(edges []runtime.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", startID, startID)

	for _, p := range domain.Phases() {
		opener, closer := "[/", "/]"
		if p == domain.PhaseOrderMenu {
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", p, opener, title(p), closer)
	}

	fmt.Fprintf(&sb, "    %s -- \"first message\" --> %s\n", startID, domain.PhaseAwaitingIntroAck)
	for _, e := range edges {
		label := strings.ReplaceAll(e.Label, "\"", "'")
		if e.From == e.To {
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", e.From, label, e.To)
			continue
		}
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", e.From, label, e.To)
	}

	if overlay != nil && overlay.Current != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text stays readable on light and dark themes
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", overlay.Current)
	}

	return sb.String()
}

// title turns "awaiting_order_selection" into "Awaiting order selection".
func title(p domain.Phase) string {
	s := strings.ReplaceAll(string(p), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
