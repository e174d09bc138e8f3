// Package layout assigns canvas coordinates to flow nodes that lack one.
// Placement is deterministic for a given tree shape and input order, and
// guarantees no two node bounding boxes overlap within the margin.
package layout

import (
	"math"

	"github.com/outflowhq/outflow/pkg/models"
)

// Node bounding box and spacing, in canvas pixels.
const (
	NodeWidth  = 200.0
	NodeHeight = 80.0
	Margin     = 20.0

	rootSpacing   = 240.0
	branchOffsetX = 260.0
	branchOffsetY = 140.0

	baseVerticalSpacing = 120.0
	maxVerticalSpacing  = 240.0

	// Collision resolution: a bounded outward spiral, then a large
	// deterministic offset so placement always terminates.
	spiralStep     = 60.0
	spiralAttempts = 32
	fallbackOffset = 1200.0
)

// Node is a layout-facing view of a flow node. Position is kept as-is
// when present and computed when nil.
type Node struct {
	ID        string
	Condition bool
	Position  *models.Position
}

// Edge is a layout-facing view of a flow edge.
type Edge struct {
	Source string
	Target string
	Branch models.BranchLabel
}

type engine struct {
	next    map[string]string
	yes     map[string]string
	no      map[string]string
	pinned  map[string]*models.Position
	spacing float64

	placed    []models.Position
	positions map[string]models.Position
}

// Compute returns a position for every node. Nodes with a persisted
// position keep it and act as obstacles for the rest.
func Compute(nodes []Node, edges []Edge) map[string]models.Position {
	e := &engine{
		next:      make(map[string]string),
		yes:       make(map[string]string),
		no:        make(map[string]string),
		pinned:    make(map[string]*models.Position),
		spacing:   verticalSpacing(len(nodes)),
		positions: make(map[string]models.Position, len(nodes)),
	}

	hasParent := make(map[string]bool)

	for _, node := range nodes {
		e.pinned[node.ID] = node.Position
	}

	for _, edge := range edges {
		switch edge.Branch {
		case models.BranchYes:
			e.yes[edge.Source] = edge.Target
		case models.BranchNo:
			e.no[edge.Source] = edge.Target
		default:
			e.next[edge.Source] = edge.Target
		}

		hasParent[edge.Target] = true
	}

	var roots []string

	for _, node := range nodes {
		if !hasParent[node.ID] {
			roots = append(roots, node.ID)
		}
	}

	// Roots sit in one horizontal row, centered as a group.
	startX := -rootSpacing * float64(len(roots)-1) / 2
	for i, root := range roots {
		e.placeSubtree(root, startX+float64(i)*rootSpacing, 0)
	}

	return e.positions
}

// verticalSpacing grows with node count so dense flows spread out.
func verticalSpacing(count int) float64 {
	spacing := baseVerticalSpacing + 2*float64(count)
	if spacing > maxVerticalSpacing {
		spacing = maxVerticalSpacing
	}

	return spacing
}

// placeSubtree positions a node and everything below it, returning the
// maximum Y the subtree reached so callers can stack past it.
func (e *engine) placeSubtree(id string, x, y float64) float64 {
	pos := e.place(id, x, y)
	maxY := pos.Y

	if yesChild, ok := e.yes[id]; ok {
		if branchY := e.placeSubtree(yesChild, pos.X-branchOffsetX, pos.Y+branchOffsetY); branchY > maxY {
			maxY = branchY
		}
	}

	if noChild, ok := e.no[id]; ok {
		if branchY := e.placeSubtree(noChild, pos.X+branchOffsetX, pos.Y+branchOffsetY); branchY > maxY {
			maxY = branchY
		}
	}

	if child, ok := e.next[id]; ok {
		if chainY := e.placeSubtree(child, pos.X, pos.Y+e.spacing); chainY > maxY {
			maxY = chainY
		}
	}

	return maxY
}

// place pins or computes one node's position, resolving collisions.
func (e *engine) place(id string, x, y float64) models.Position {
	var pos models.Position

	if pinned := e.pinned[id]; pinned != nil {
		pos = *pinned
	} else {
		pos = e.resolve(models.Position{X: x, Y: y})
	}

	e.placed = append(e.placed, pos)
	e.positions[id] = pos

	return pos
}

// resolve returns the candidate position, or the nearest free slot on a
// bounded outward spiral, or a large deterministic offset when the
// spiral budget runs out.
func (e *engine) resolve(candidate models.Position) models.Position {
	if !e.collides(candidate) {
		return candidate
	}

	for attempt := 1; attempt <= spiralAttempts; attempt++ {
		radius := spiralStep * float64((attempt+7)/8)
		angle := float64(attempt%8) * math.Pi / 4

		probe := models.Position{
			X: candidate.X + radius*math.Cos(angle),
			Y: candidate.Y + radius*math.Sin(angle),
		}

		if !e.collides(probe) {
			return probe
		}
	}

	// March right from a large offset until a slot is free. The placed
	// set is finite, so this terminates.
	probe := models.Position{
		X: candidate.X + fallbackOffset + float64(len(e.placed))*(NodeWidth+2*Margin),
		Y: candidate.Y,
	}

	for e.collides(probe) {
		probe.X += NodeWidth + 2*Margin
	}

	return probe
}

func (e *engine) collides(candidate models.Position) bool {
	for _, other := range e.placed {
		if Overlaps(candidate, other) {
			return true
		}
	}

	return false
}

// Overlaps reports whether two node boxes are closer than the margin.
func Overlaps(a, b models.Position) bool {
	return math.Abs(a.X-b.X) < NodeWidth+Margin && math.Abs(a.Y-b.Y) < NodeHeight+Margin
}
