package flow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/outflowhq/outflow/pkg/models"
)

// branchSlots is the slot scan order. It keeps every derived list
// (edges, children, snapshots) deterministic.
var branchSlots = []models.BranchLabel{models.BranchNone, models.BranchYes, models.BranchNo}

// Graph is the arena-backed campaign flow forest. All mutation goes
// through its operation set; the invariants of the forest (single
// parent, branch exclusivity, one child per plain node) are enforced at
// every boundary.
//
// Graph is not safe for concurrent use; the owning editor serializes
// access.
type Graph struct {
	nodes  map[string]*models.FlowNode
	parent map[string]string
	out    map[string]map[models.BranchLabel]string
	order  []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[string]*models.FlowNode),
		parent: make(map[string]string),
		out:    make(map[string]map[models.BranchLabel]string),
	}
}

// Load builds a graph from a backend-shaped flat node/edge list,
// validating every forest invariant. It tolerates nil slices (an empty
// flow) but rejects structurally invalid input.
func Load(nodes []*models.FlowNode, edges []*models.FlowEdge) (*Graph, error) {
	g := New()

	for _, node := range nodes {
		if node == nil || node.ID == "" {
			return nil, reject("Load", "", fmt.Errorf("node without id"))
		}

		if _, exists := g.nodes[node.ID]; exists {
			return nil, reject("Load", node.ID, fmt.Errorf("duplicate node id"))
		}

		copied := *node
		g.nodes[node.ID] = &copied
		g.order = append(g.order, node.ID)
	}

	for _, edge := range edges {
		if edge == nil {
			return nil, reject("Load", "", fmt.Errorf("edge without endpoints"))
		}

		if err := g.link(edge.Source, edge.Target, edge.Branch); err != nil {
			return nil, err
		}
	}

	if err := g.checkRooted(); err != nil {
		return nil, err
	}

	return g, nil
}

// link wires an edge into the arena, enforcing edge invariants.
func (g *Graph) link(source, target string, branch models.BranchLabel) error {
	sourceNode, ok := g.nodes[source]
	if !ok {
		return reject("Load", source, ErrNodeNotFound)
	}

	if _, ok := g.nodes[target]; !ok {
		return reject("Load", target, ErrNodeNotFound)
	}

	if source == target {
		return reject("Load", source, fmt.Errorf("self-loop"))
	}

	if _, taken := g.parent[target]; taken {
		return reject("Load", target, fmt.Errorf("node has more than one incoming edge"))
	}

	if sourceNode.IsCondition() {
		if branch == models.BranchNone {
			return reject("Load", source, ErrBranchRequired)
		}
	} else if branch != models.BranchNone {
		return reject("Load", source, ErrNotCondition)
	}

	slots := g.out[source]
	if slots == nil {
		slots = make(map[models.BranchLabel]string)
		g.out[source] = slots
	}

	if _, taken := slots[branch]; taken {
		if branch == models.BranchNone {
			return reject("Load", source, ErrChildOccupied)
		}

		return reject("Load", source, ErrBranchOccupied)
	}

	slots[branch] = target
	g.parent[target] = source

	return nil
}

// checkRooted verifies every node is reachable from a root, which rules
// out parent cycles that the single-parent check alone cannot see.
func (g *Graph) checkRooted() error {
	seen := make(map[string]bool, len(g.nodes))

	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}

		seen[id] = true
		for _, slot := range branchSlots {
			if child, ok := g.out[id][slot]; ok {
				walk(child)
			}
		}
	}

	for _, id := range g.order {
		if _, hasParent := g.parent[id]; !hasParent {
			walk(id)
		}
	}

	if len(seen) != len(g.nodes) {
		return reject("Load", "", fmt.Errorf("flow contains a cycle"))
	}

	return nil
}

// Len returns the number of nodes in the flow.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *models.FlowNode {
	return g.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*models.FlowNode {
	nodes := make([]*models.FlowNode, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}

	return nodes
}

// Edges derives the edge list from the arena. Derivation is idempotent:
// the same graph always yields the same IDs in the same order.
func (g *Graph) Edges() []*models.FlowEdge {
	edges := make([]*models.FlowEdge, 0, len(g.parent))

	for _, id := range g.order {
		for _, slot := range branchSlots {
			if child, ok := g.out[id][slot]; ok {
				edges = append(edges, &models.FlowEdge{
					ID:     models.EdgeID(id, child),
					Source: id,
					Target: child,
					Branch: slot,
				})
			}
		}
	}

	return edges
}

// Roots returns the IDs of nodes with no incoming edge, in insertion order.
func (g *Graph) Roots() []string {
	var roots []string

	for _, id := range g.order {
		if _, hasParent := g.parent[id]; !hasParent {
			roots = append(roots, id)
		}
	}

	return roots
}

// ParentOf returns the parent of a node, if it has one.
func (g *Graph) ParentOf(id string) (string, bool) {
	parent, ok := g.parent[id]

	return parent, ok
}

// HasYesBranch reports whether a node has a yes-labeled outgoing edge.
func (g *Graph) HasYesBranch(id string) bool {
	_, ok := g.out[id][models.BranchYes]

	return ok
}

// HasNoBranch reports whether a node has a no-labeled outgoing edge.
func (g *Graph) HasNoBranch(id string) bool {
	_, ok := g.out[id][models.BranchNo]

	return ok
}

// Children returns a node's child IDs in slot order.
func (g *Graph) Children(id string) []string {
	var children []string

	for _, slot := range branchSlots {
		if child, ok := g.out[id][slot]; ok {
			children = append(children, child)
		}
	}

	return children
}

// AddRoot creates the first node of an empty flow. Adding a second
// disconnected root is rejected.
func (g *Graph) AddRoot(kind models.NodeKind) (*models.FlowNode, error) {
	if len(g.nodes) > 0 {
		return nil, reject("AddRoot", "", ErrRootExists)
	}

	node := models.NewFlowNode(uuid.New().String(), kind)
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)

	return node, nil
}

// AddChild creates a node and the edge parent -> node. For condition
// parents the branch must be yes or no and the slot free; plain parents
// take exactly one unlabeled child.
func (g *Graph) AddChild(parentID string, kind models.NodeKind, branch models.BranchLabel) (*models.FlowNode, error) {
	parent, ok := g.nodes[parentID]
	if !ok {
		return nil, reject("AddChild", parentID, ErrNodeNotFound)
	}

	if parent.IsCondition() {
		if branch == models.BranchNone {
			return nil, reject("AddChild", parentID, ErrBranchRequired)
		}

		if _, taken := g.out[parentID][branch]; taken {
			return nil, reject("AddChild", parentID, ErrBranchOccupied)
		}
	} else {
		if branch != models.BranchNone {
			return nil, reject("AddChild", parentID, ErrNotCondition)
		}

		if _, taken := g.out[parentID][models.BranchNone]; taken {
			return nil, reject("AddChild", parentID, ErrChildOccupied)
		}
	}

	node := models.NewFlowNode(uuid.New().String(), kind)
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)

	slots := g.out[parentID]
	if slots == nil {
		slots = make(map[models.BranchLabel]string)
		g.out[parentID] = slots
	}

	slots[branch] = node.ID
	g.parent[node.ID] = parentID

	return node, nil
}

// Replace swaps a node's kind in place, preserving its ID, position and
// incident edges, and resetting its timing for the new kind. A node with
// children cannot change condition-ness, and a condition node with
// branch children cannot be replaced at all; its branch edges would lose
// their meaning.
func (g *Graph) Replace(id string, newKind models.NodeKind) error {
	node, ok := g.nodes[id]
	if !ok {
		return reject("Replace", id, ErrNodeNotFound)
	}

	hasChildren := len(g.out[id]) > 0

	if node.IsCondition() && hasChildren {
		return reject("Replace", id, ErrReplaceBranched)
	}

	if !node.IsCondition() && models.IsCondition(newKind) && hasChildren {
		return reject("Replace", id, ErrReplaceBranched)
	}

	node.Kind = newKind
	node.Label = models.LabelFor(newKind)
	node.Subtitle = models.SubtitleFor(newKind)
	node.ResetTiming()

	return nil
}

// Delete removes a node. Condition nodes take their entire reachable
// subtree with them in one atomic mutation; plain nodes must be leaves.
// It returns the IDs of every removed node in walk order.
func (g *Graph) Delete(id string) ([]string, error) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, reject("Delete", id, ErrNodeNotFound)
	}

	if !node.IsCondition() && len(g.out[id]) > 0 {
		return nil, reject("Delete", id, ErrHasChildren)
	}

	removed := g.subtree(id)
	for _, victim := range removed {
		g.unlink(victim)
	}

	return removed, nil
}

// subtree collects a node and all its descendants in preorder.
func (g *Graph) subtree(id string) []string {
	collected := []string{id}

	for _, slot := range branchSlots {
		if child, ok := g.out[id][slot]; ok {
			collected = append(collected, g.subtree(child)...)
		}
	}

	return collected
}

// unlink removes a single node and every edge touching it.
func (g *Graph) unlink(id string) {
	if parent, ok := g.parent[id]; ok {
		for slot, child := range g.out[parent] {
			if child == id {
				delete(g.out[parent], slot)
			}
		}

		delete(g.parent, id)
	}

	delete(g.out, id)
	delete(g.nodes, id)

	for i, ordered := range g.order {
		if ordered == id {
			g.order = append(g.order[:i], g.order[i+1:]...)

			break
		}
	}
}

// SetTiming updates a wait node's wait time (minutes) or an action
// node's duration (days). Values are floored at one day and wait times
// snapped down to whole days; condition nodes carry no timing.
func (g *Graph) SetTiming(id string, value int) error {
	node, ok := g.nodes[id]
	if !ok {
		return reject("SetTiming", id, ErrNodeNotFound)
	}

	if node.IsCondition() {
		return reject("SetTiming", id, ErrNoTiming)
	}

	if node.Kind == models.KindWait {
		node.WaitTime = value
	} else {
		node.Duration = value
	}

	node.NormalizeTiming()

	return nil
}

// Reposition sets a node's canvas position. Edges are untouched.
func (g *Graph) Reposition(id string, pos models.Position) error {
	node, ok := g.nodes[id]
	if !ok {
		return reject("Reposition", id, ErrNodeNotFound)
	}

	position := pos
	node.Position = &position

	return nil
}

// Flow snapshots the graph into a backend-shaped campaign flow. Nodes
// are deep copies; mutating the graph afterwards does not change the
// returned flow.
func (g *Graph) Flow(campaignID string) *models.CampaignFlow {
	nodes := make([]*models.FlowNode, 0, len(g.order))

	for _, id := range g.order {
		copied := *g.nodes[id]
		if g.nodes[id].Position != nil {
			position := *g.nodes[id].Position
			copied.Position = &position
		}

		nodes = append(nodes, &copied)
	}

	return &models.CampaignFlow{
		CampaignID: campaignID,
		Nodes:      nodes,
		Edges:      g.Edges(),
	}
}

// Snapshot serializes the graph deterministically for change detection.
// Two graphs with the same nodes, edges and positions produce the same
// bytes.
func (g *Graph) Snapshot() []byte {
	payload := struct {
		Nodes []*models.FlowNode `json:"nodes"`
		Edges []*models.FlowEdge `json:"edges"`
	}{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Model types marshal without error; keep the signature simple.
		return nil
	}

	return data
}
