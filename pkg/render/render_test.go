package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outflowhq/outflow/pkg/flow"
	"github.com/outflowhq/outflow/pkg/models"
)

func TestFromFlow_Empty(t *testing.T) {
	graph := FromFlow(nil, nil)

	assert.True(t, graph.Empty)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
}

func TestFromFlow_ConditionBranches(t *testing.T) {
	g := flow.New()
	cond, _ := g.AddRoot(models.KindHasEmail)
	yes, _ := g.AddChild(cond.ID, models.KindSendEmail, models.BranchYes)
	no, _ := g.AddChild(cond.ID, models.KindInvite, models.BranchNo)

	f := g.Flow("c1")
	graph := FromFlow(f.Nodes, f.Edges)

	require.False(t, graph.Empty)
	require.Len(t, graph.Nodes, 3)
	require.Len(t, graph.Edges, 2)

	byID := make(map[string]Node)
	for _, node := range graph.Nodes {
		byID[node.ID] = node
	}

	root := byID[cond.ID]
	assert.True(t, root.IsCondition)
	assert.True(t, root.HasYesBranch)
	assert.True(t, root.HasNoBranch)
	assert.Equal(t, "Has Email?", root.Label)

	assert.False(t, byID[yes.ID].HasYesBranch)
	assert.False(t, byID[no.ID].IsCondition)

	byTarget := make(map[string]Edge)
	for _, edge := range graph.Edges {
		byTarget[edge.Target] = edge
	}

	assert.Equal(t, ColorYes, byTarget[yes.ID].Color)
	assert.Equal(t, "yes", byTarget[yes.ID].Label)
	assert.Equal(t, ColorNo, byTarget[no.ID].Color)
}

func TestFromFlow_PlainEdgeColor(t *testing.T) {
	g := flow.New()
	root, _ := g.AddRoot(models.KindInvite)
	_, _ = g.AddChild(root.ID, models.KindWait, models.BranchNone)

	f := g.Flow("c1")
	graph := FromFlow(f.Nodes, f.Edges)

	require.Len(t, graph.Edges, 1)
	assert.Equal(t, ColorPlain, graph.Edges[0].Color)
	assert.Empty(t, graph.Edges[0].Label)
}

func TestFromFlow_DropsDanglingEdges(t *testing.T) {
	nodes := []*models.FlowNode{models.NewFlowNode("a", models.KindSendEmail)}
	edges := []*models.FlowEdge{
		{ID: "a-ghost", Source: "a", Target: "ghost"},
		{ID: "ghost-a", Source: "ghost", Target: "a"},
	}

	graph := FromFlow(nodes, edges)

	assert.Len(t, graph.Nodes, 1)
	assert.Empty(t, graph.Edges)
}

func TestFromFlow_Idempotent(t *testing.T) {
	g := flow.New()
	cond, _ := g.AddRoot(models.KindEmailOpened)
	yes, _ := g.AddChild(cond.ID, models.KindSendEmail, models.BranchYes)
	_, _ = g.AddChild(yes.ID, models.KindWait, models.BranchNone)

	f := g.Flow("c1")

	first := FromFlow(f.Nodes, f.Edges)
	second := FromFlow(f.Nodes, f.Edges)

	assert.Equal(t, first, second)
}

func TestFromFlow_KeepsPersistedPositions(t *testing.T) {
	node := models.NewFlowNode("a", models.KindSendEmail)
	node.Position = &models.Position{X: 123, Y: 456}

	graph := FromFlow([]*models.FlowNode{node}, nil)

	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, models.Position{X: 123, Y: 456}, graph.Nodes[0].Position)
}

func TestFromFlow_UnknownKindFallsBack(t *testing.T) {
	node := models.NewFlowNode("a", models.NodeKind("future_kind"))

	graph := FromFlow([]*models.FlowNode{node}, nil)

	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "future_kind", graph.Nodes[0].Label)
	assert.False(t, graph.Nodes[0].IsCondition)
}
