package graph

import (
	"fmt"
	"strings"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/runtime"
)

// Overlay highlights the nodes one execution visits.
type Overlay struct {
	Visited []runtime.NodeID
}

// GenerateMermaid produces a Mermaid flowchart of the orchestration graph.
// Shapes:
// - Entry: ((Circle))
// - Retrieval: [[Subroutine]]
// - Answering (no outgoing edge): ([Stadium])
// - Default: [Rectangle]
// Edges are labelled with the intents that take them.
func GenerateMermaid(nodes []runtime.NodeID, edges []runtime.Edge, overlay *Overlay) string {
	outgoing := make(map[runtime.NodeID]bool)
	for _, e := range edges {
		outgoing[e.From] = true
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, node := range nodes {
		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case node == runtime.NodeRetrieve:
			opener, closer = "[[", "]]"
		case !outgoing[node]:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node), opener, node, closer)
	}

	for _, e := range edges {
		labels := make([]string, len(e.Intents))
		for i, intent := range e.Intents {
			labels[i] = string(intent)
		}
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n",
			sanitizeMermaidID(e.From), strings.Join(labels, " / "), sanitizeMermaidID(e.To))
	}

	if overlay != nil && len(overlay.Visited) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")

		seen := make(map[string]bool)
		for _, node := range overlay.Visited {
			id := sanitizeMermaidID(node)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", id)
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id runtime.NodeID) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_").Replace(string(id))
}
