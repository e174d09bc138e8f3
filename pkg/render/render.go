// Package render converts the backend-shaped flat node/edge list into a
// positioned, display-ready graph. The flat representation is the
// canonical one; there is no intermediate nested tree.
package render

import (
	"github.com/outflowhq/outflow/pkg/layout"
	"github.com/outflowhq/outflow/pkg/models"
)

// Edge colors by branch.
const (
	ColorYes   = "#16a34a"
	ColorNo    = "#dc2626"
	ColorPlain = "#9ca3af"
)

// Node is a flow node ready to draw: resolved display text, branch
// occupancy, and a definite position.
type Node struct {
	ID           string          `json:"id"`
	Kind         models.NodeKind `json:"kind"`
	Label        string          `json:"label"`
	Subtitle     string          `json:"subtitle"`
	IsCondition  bool            `json:"isCondition"`
	HasYesBranch bool            `json:"hasYesBranch"`
	HasNoBranch  bool            `json:"hasNoBranch"`
	WaitTime     int             `json:"wait_time,omitempty"`
	Duration     int             `json:"duration,omitempty"`
	Position     models.Position `json:"position"`
}

// Edge is a flow edge ready to draw.
type Edge struct {
	ID     string             `json:"id"`
	Source string             `json:"source"`
	Target string             `json:"target"`
	Branch models.BranchLabel `json:"branch,omitempty"`
	Label  string             `json:"label,omitempty"`
	Color  string             `json:"color"`
}

// Graph is the renderable flow. Empty signals the editor's empty state.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Empty bool   `json:"empty"`
}

// FromFlow builds the renderable graph from backend nodes and edges.
//
// The conversion is idempotent: the same input yields the same node IDs,
// edge IDs and connections. Persisted positions are kept as-is; missing
// ones are computed by the layout engine. Edges referencing unknown
// nodes are dropped rather than crashing the editor.
func FromFlow(nodes []*models.FlowNode, edges []*models.FlowEdge) Graph {
	if len(nodes) == 0 {
		return Graph{Nodes: []Node{}, Edges: []Edge{}, Empty: true}
	}

	known := make(map[string]bool, len(nodes))
	layoutNodes := make([]layout.Node, 0, len(nodes))

	for _, node := range nodes {
		known[node.ID] = true
		layoutNodes = append(layoutNodes, layout.Node{
			ID:        node.ID,
			Condition: node.IsCondition(),
			Position:  node.Position,
		})
	}

	hasYes := make(map[string]bool)
	hasNo := make(map[string]bool)
	layoutEdges := make([]layout.Edge, 0, len(edges))
	kept := make([]*models.FlowEdge, 0, len(edges))

	for _, edge := range edges {
		if !known[edge.Source] || !known[edge.Target] {
			continue
		}

		switch edge.Branch {
		case models.BranchYes:
			hasYes[edge.Source] = true
		case models.BranchNo:
			hasNo[edge.Source] = true
		}

		layoutEdges = append(layoutEdges, layout.Edge{
			Source: edge.Source,
			Target: edge.Target,
			Branch: edge.Branch,
		})
		kept = append(kept, edge)
	}

	positions := layout.Compute(layoutNodes, layoutEdges)

	graph := Graph{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, len(kept)),
	}

	for _, node := range nodes {
		graph.Nodes = append(graph.Nodes, Node{
			ID:           node.ID,
			Kind:         node.Kind,
			Label:        models.LabelFor(node.Kind),
			Subtitle:     models.SubtitleFor(node.Kind),
			IsCondition:  node.IsCondition(),
			HasYesBranch: hasYes[node.ID],
			HasNoBranch:  hasNo[node.ID],
			WaitTime:     node.WaitTime,
			Duration:     node.Duration,
			Position:     positions[node.ID],
		})
	}

	for _, edge := range kept {
		graph.Edges = append(graph.Edges, Edge{
			ID:     models.EdgeID(edge.Source, edge.Target),
			Source: edge.Source,
			Target: edge.Target,
			Branch: edge.Branch,
			Label:  string(edge.Branch),
			Color:  edgeColor(edge.Branch),
		})
	}

	return graph
}

func edgeColor(branch models.BranchLabel) string {
	switch branch {
	case models.BranchYes:
		return ColorYes
	case models.BranchNo:
		return ColorNo
	default:
		return ColorPlain
	}
}
