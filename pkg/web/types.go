// Package web provides HTTP request and response types for the campaign flow API.
package web

import "github.com/outflowhq/outflow/pkg/models"

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SaveFlowRequest represents the request body for a full-graph save.
type SaveFlowRequest struct {
	CampaignID string           `json:"campaign_id" validate:"required"`
	Nodes      []models.NodeDTO `json:"nodes"`
	Edges      []models.EdgeDTO `json:"edges"`
}

// UpdateNodeRequest represents the request body for a partial node
// update. All fields are optional; position coordinates travel as a
// pair.
type UpdateNodeRequest struct {
	PositionX *float64 `json:"position_x,omitempty"`
	PositionY *float64 `json:"position_y,omitempty"`
	WaitTime  *int     `json:"wait_time,omitempty"`
	Content   *string  `json:"content,omitempty"`
}

// ReplaceNodeRequest represents the request body for swapping a node's
// kind in place. ActionKey selects the new kind.
type ReplaceNodeRequest struct {
	ActionKey string `json:"action_key" validate:"required"`
	IconType  string `json:"iconType,omitempty"`
	Label     string `json:"label,omitempty"`
	Subtitle  string `json:"subtitle,omitempty"`
	WaitTime  *int   `json:"wait_time,omitempty"`
}

// FlowResponse is the wire shape of a campaign flow.
type FlowResponse struct {
	CampaignID string           `json:"campaign_id"`
	Nodes      []models.NodeDTO `json:"nodes"`
	Edges      []models.EdgeDTO `json:"edges"`
}

// DeleteNodeResponse mirrors the delete contract: refusals travel as a
// 200 with Status false, not as an HTTP error.
type DeleteNodeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// NewFlowResponse converts a stored flow into its wire shape.
func NewFlowResponse(flow *models.CampaignFlow) FlowResponse {
	nodes, edges := models.FlowToDTOs(flow)

	return FlowResponse{
		CampaignID: flow.CampaignID,
		Nodes:      nodes,
		Edges:      edges,
	}
}
