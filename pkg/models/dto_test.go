package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDTO_RoundTrip(t *testing.T) {
	node := NewFlowNode("n1", KindWait)
	node.Position = &Position{X: 100, Y: 200}
	node.WaitTime = 2880
	node.Content = "hello"

	dto := node.ToDTO()

	assert.Equal(t, NodeTypeAction, dto.Type)
	assert.Equal(t, "wait", dto.Data.ActionKey)
	assert.Equal(t, "wait", dto.Data.IconType)
	require.NotNil(t, dto.Data.WaitTime)
	assert.Equal(t, 2880, *dto.Data.WaitTime)

	back := NodeFromDTO(dto)
	assert.Equal(t, node, back)
}

func TestNodeDTO_ConditionType(t *testing.T) {
	node := NewFlowNode("n1", KindHasEmail)

	dto := node.ToDTO()

	assert.Equal(t, NodeTypeCondition, dto.Type)
	assert.True(t, dto.Data.IsCondition)
	assert.Nil(t, dto.Data.WaitTime)
	assert.Nil(t, dto.Data.Duration)
}

func TestNodeFromDTO_IconTypeFallback(t *testing.T) {
	// Older payloads carried the kind only in iconType.
	node := NodeFromDTO(NodeDTO{
		ID:   "n1",
		Type: NodeTypeAction,
		Data: NodeDataDTO{IconType: "send_email"},
	})

	assert.Equal(t, KindSendEmail, node.Kind)
	assert.Equal(t, "Send Email", node.Label)
	assert.Equal(t, "Send an email to the lead", node.Subtitle)
}

func TestEdgeFromDTO(t *testing.T) {
	tests := []struct {
		name string
		dto  EdgeDTO
		want BranchLabel
	}{
		{
			name: "branch from label",
			dto:  EdgeDTO{Source: "a", Target: "b", Label: "yes"},
			want: BranchYes,
		},
		{
			name: "branch falls back to source handle",
			dto:  EdgeDTO{Source: "a", Target: "b", SourceHandle: "no"},
			want: BranchNo,
		},
		{
			name: "plain edge",
			dto:  EdgeDTO{Source: "a", Target: "b"},
			want: BranchNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge := EdgeFromDTO(tt.dto)

			assert.Equal(t, tt.want, edge.Branch)
			// The ID is re-derived, never trusted from the wire.
			assert.Equal(t, "a-b", edge.ID)
		})
	}
}

func TestFlowFromDTOs(t *testing.T) {
	flow := FlowFromDTOs("c1",
		[]NodeDTO{
			NewFlowNode("a", KindHasEmail).ToDTO(),
			NewFlowNode("b", KindSendEmail).ToDTO(),
		},
		[]EdgeDTO{{Source: "a", Target: "b", Label: "yes"}},
	)

	assert.Equal(t, "c1", flow.CampaignID)
	require.Len(t, flow.Nodes, 2)
	require.Len(t, flow.Edges, 1)
	assert.Equal(t, BranchYes, flow.Edges[0].Branch)
}
