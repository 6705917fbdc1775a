package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/comalice/activechart/internal/primitives"
)

// DOTVisualizer renders topologies as Graphviz DOT. Output is
// deterministic: states and edges are sorted.
type DOTVisualizer struct{}

// NewDOTVisualizer returns a DOTVisualizer.
func NewDOTVisualizer() *DOTVisualizer {
	return &DOTVisualizer{}
}

// ExportDOT generates Graphviz DOT source for the topology. current is the
// active leaf path; it and its ancestors are highlighted.
func (v *DOTVisualizer) ExportDOT(config primitives.MachineConfig, current string) string {
	_ = config.Index() // topologies decoded from files list only top-level states
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", config.ID)
	buf.WriteString("  rankdir=LR;\n  compound=true;\n  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n")

	active := activeStates(current)
	for _, root := range config.Roots() {
		renderState(&buf, root, active, "  ")
	}
	if initial, err := config.FindState(config.Initial); err == nil {
		buf.WriteString("  \"__start\" [shape=point];\n")
		fmt.Fprintf(&buf, "  \"__start\" -> %q;\n", initial.ID)
	}
	for _, edge := range collectEdges(config) {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", edge.From, edge.To, edge.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the topology to JSON. Topologies holding function
// references cannot be serialized.
func (v *DOTVisualizer) ExportJSON(config primitives.MachineConfig) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

// activeStates returns the IDs on the active path.
func activeStates(current string) map[string]bool {
	active := make(map[string]bool)
	start := 0
	for i := 0; i <= len(current); i++ {
		if i == len(current) || current[i] == '.' {
			if i > start {
				active[current[start:i]] = true
			}
			start = i + 1
		}
	}
	return active
}

// Edge represents a transition edge.
type Edge struct {
	From  string
	To    string
	Label string
}

// collectEdges collects every transition, sorted. Internal transitions are
// drawn as self loops.
func collectEdges(config primitives.MachineConfig) []Edge {
	var edges []Edge
	for _, state := range config.States {
		for event, transList := range state.On {
			for _, trans := range transList {
				label := event
				if g, ok := trans.Guard.(string); ok {
					label += " [" + g + "]"
				}
				if trans.Internal() {
					edges = append(edges, Edge{From: state.ID, To: state.ID, Label: label + " (internal)"})
					continue
				}
				targetState, err := config.FindState(trans.Target)
				if err == nil {
					edges = append(edges, Edge{From: state.ID, To: targetState.ID, Label: label})
				}
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].Label != edges[j].Label {
			return edges[i].Label < edges[j].Label
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// renderState recursively renders states, compound ones as clusters.
func renderState(buf *bytes.Buffer, state *primitives.StateConfig, active map[string]bool, indent string) {
	if len(state.Children) == 0 {
		style := ""
		if active[state.ID] {
			style = " style=\"rounded,filled\" fillcolor=lightgreen"
		}
		fmt.Fprintf(buf, "%s%q [label=%q%s];\n", indent, state.ID, state.ID, style)
		return
	}

	fmt.Fprintf(buf, "%ssubgraph %q {\n", indent, "cluster_"+state.ID)
	fmt.Fprintf(buf, "%s  label=%q;\n", indent, state.ID+" ("+string(state.Type)+")")
	if active[state.ID] {
		fmt.Fprintf(buf, "%s  style=filled; fillcolor=orange;\n", indent)
	}
	parentStyle := ""
	if active[state.ID] {
		parentStyle = " style=filled fillcolor=orange"
	}
	fmt.Fprintf(buf, "%s  %q [label=%q shape=ellipse%s];\n", indent, state.ID, state.ID, parentStyle)
	for _, child := range state.Children {
		renderState(buf, child, active, indent+"  ")
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}
