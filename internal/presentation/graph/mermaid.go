package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	Watched []string // identifiers with live listeners
	Current string   // identifier of the last write
}

// GenerateMermaid produces a Mermaid flowchart of a context root.
// It applies shapes per kind:
// - Root: ((Circle))
// - Array: [[Subroutine]]
// - Primitive: [/Parallelogram/]
// - Object: [Rectangle]
// Edges are labelled with the property name or index. Overlay styles
// (watched/current) are applied if provided.
func GenerateMermaid(owner string, root *tree.Object, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    root((\"%s\"))\n", escape(owner)))
	if root != nil {
		writeChildren(&sb, "", root)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef watched fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Watched {
			if seen[id] || !present(root, id) {
				continue
			}
			seen[id] = true
			sb.WriteString(fmt.Sprintf("    class %s watched;\n", nodeID(id)))
		}
		if present(root, overlay.Current) {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", nodeID(overlay.Current)))
		}
	}

	return sb.String()
}

func writeChildren(sb *strings.Builder, parent string, v any) {
	from := nodeID(parent)
	switch c := v.(type) {
	case *tree.Object:
		for _, key := range c.Keys() {
			writeNode(sb, from, domain.Join(parent, key), key, c.Slot(key).Raw())
		}
	case *tree.Array:
		for i, item := range c.Values() {
			seg := fmt.Sprint(i)
			writeNode(sb, from, domain.Join(parent, seg), seg, item)
		}
	}
}

func writeNode(sb *strings.Builder, from, id, label string, v any) {
	safeID := nodeID(id)
	switch v.(type) {
	case *tree.Object:
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", safeID, escape(label)))
	case *tree.Array:
		sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", safeID, escape(label)))
	default:
		sb.WriteString(fmt.Sprintf("    %s[/\"%s: %s\"/]\n", safeID, escape(label), escape(fmt.Sprint(v))))
	}
	sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, safeID))
	writeChildren(sb, id, v)
}

// present reports whether id names a node of the graph, nulls included.
func present(root *tree.Object, id string) bool {
	segs, ok := domain.Split(id)
	if !ok || root == nil {
		return false
	}
	last := segs[len(segs)-1]
	switch parent := tree.Walk(root, segs[:len(segs)-1]).(type) {
	case *tree.Object:
		return parent.Has(last)
	case *tree.Array:
		i, ok := tree.Index(last)
		return ok && i < parent.Len()
	}
	return false
}

func nodeID(id string) string {
	if id == "" {
		return "root"
	}
	return "n_" + sanitizeMermaidID(id)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
