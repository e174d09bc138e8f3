// Package web provides HTTP handlers and REST API endpoints for campaign flow management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/outflowhq/outflow/pkg/models"
	"github.com/outflowhq/outflow/pkg/services"
)

type APIHandlers struct {
	flowService *services.Flow
	validator   *validator.Validate
}

func NewAPIHandlers(flowService *services.Flow, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		flowService: flowService,
		validator:   validator,
	}
}

// RegisterRoutes wires the campaign flow endpoints onto the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	campaigns := app.Group("/campaigns")
	campaigns.Get("/get-flow/:campaignId", h.GetFlow)
	campaigns.Post("/save-flow", h.SaveFlow)
	campaigns.Put("/update_node/:nodeId", h.UpdateNode)
	campaigns.Delete("/delete_node/:nodeId", h.DeleteNode)
	campaigns.Put("/replace_node/:nodeId", h.ReplaceNode)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Outflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Outflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetFlow returns the stored flow for a campaign. Unknown campaigns
// yield an empty flow so new campaigns start with a blank canvas.
func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	campaignID := c.Params("campaignId")

	flow, err := h.flowService.GetFlow(c.Context(), campaignID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(NewFlowResponse(flow))
}

// SaveFlow replaces the complete flow for a campaign.
func (h *APIHandlers) SaveFlow(c fiber.Ctx) error {
	var req SaveFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	flow, err := h.flowService.SaveFlow(c.Context(), services.SaveFlowRequest{
		CampaignID: req.CampaignID,
		Nodes:      req.Nodes,
		Edges:      req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(NewFlowResponse(flow))
}

// UpdateNode applies a partial update to a single node.
func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	nodeID := c.Params("nodeId")

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	node, err := h.flowService.UpdateNode(c.Context(), nodeID, services.UpdateNodeRequest{
		PositionX: req.PositionX,
		PositionY: req.PositionY,
		WaitTime:  req.WaitTime,
		Content:   req.Content,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node.ToDTO())
}

// DeleteNode removes a node. A node that still has following steps is
// refused with a 200 response carrying Status false, matching the
// delete contract.
func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	nodeID := c.Params("nodeId")

	result, err := h.flowService.DeleteNode(c.Context(), nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DeleteNodeResponse{
		Status:  result.Status,
		Message: result.Message,
	})
}

// ReplaceNode swaps a node's kind while keeping its position and edges.
func (h *APIHandlers) ReplaceNode(c fiber.Ctx) error {
	nodeID := c.Params("nodeId")

	var req ReplaceNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	node, err := h.flowService.ReplaceNode(c.Context(), nodeID, services.ReplaceNodeRequest{
		Kind:     models.NodeKind(req.ActionKey),
		Label:    req.Label,
		Subtitle: req.Subtitle,
		WaitTime: req.WaitTime,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node.ToDTO())
}
