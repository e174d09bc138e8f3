package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	dgraph "github.com/dominikbraun/graph"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/outflowhq/outflow/pkg/eventbus"
	"github.com/outflowhq/outflow/pkg/events"
	"github.com/outflowhq/outflow/pkg/flow"
	"github.com/outflowhq/outflow/pkg/log"
	"github.com/outflowhq/outflow/pkg/models"
	"github.com/outflowhq/outflow/pkg/persistence"
)

// tempIDPrefix marks client-minted placeholder IDs that must be replaced
// with server IDs on save.
const tempIDPrefix = "tmp-"

// Flow implements campaign flow operations on top of the persistence and
// event bus layers.
type Flow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewFlow creates a new flow service.
func NewFlow(persistence persistence.Persistence, publisher eventbus.EventPublisher) *Flow {
	return &Flow{
		persistence: persistence,
		publisher:   publisher,
		validator:   validator.New(),
		logger:      log.WithModule("flow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// GetFlow retrieves the flow for a campaign. A campaign without a saved
// flow yields an empty flow rather than an error, so a fresh campaign
// renders as an empty canvas.
func (f *Flow) GetFlow(ctx context.Context, campaignID string) (*models.CampaignFlow, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, ErrEmptyCampaignID
	}

	existing, err := f.persistence.FlowRepository().GetByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flow: %w", err)
	}

	if existing == nil {
		return &models.CampaignFlow{
			CampaignID: campaignID,
			Nodes:      []*models.FlowNode{},
			Edges:      []*models.FlowEdge{},
		}, nil
	}

	return existing, nil
}

// SaveFlowRequest carries a full-graph save.
type SaveFlowRequest struct {
	CampaignID string           `json:"campaign_id" validate:"required"`
	Nodes      []models.NodeDTO `json:"nodes"`
	Edges      []models.EdgeDTO `json:"edges"`
}

// SaveFlow validates and persists the complete flow for a campaign,
// replacing whatever was stored before. Placeholder node IDs minted by
// the editor are swapped for server-issued UUIDs, with edges remapped
// to match.
func (f *Flow) SaveFlow(ctx context.Context, req SaveFlowRequest) (*models.CampaignFlow, error) {
	if err := f.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	campaignFlow := models.FlowFromDTOs(req.CampaignID, req.Nodes, req.Edges)

	// Timing arrives client-controlled; clamp it to the kind's rules
	// before anything is persisted.
	for _, node := range campaignFlow.Nodes {
		node.NormalizeTiming()
	}

	if err := f.assignNodeIDs(campaignFlow); err != nil {
		return nil, err
	}

	if err := f.validateFlow(campaignFlow); err != nil {
		return nil, err
	}

	existing, err := f.persistence.FlowRepository().GetByCampaignID(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flow: %w", err)
	}

	if existing != nil {
		campaignFlow.CreatedAt = existing.CreatedAt
	}

	if err := f.persistence.FlowRepository().Save(ctx, campaignFlow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	f.publish(ctx, req.CampaignID, events.FlowSaved{
		BaseEvent: events.NewBase(req.CampaignID, events.FlowSavedEvent),
		NodeCount: len(campaignFlow.Nodes),
		EdgeCount: len(campaignFlow.Edges),
	})

	return campaignFlow, nil
}

// assignNodeIDs replaces empty and placeholder node IDs with UUIDv7s and
// remaps edges onto the new IDs.
func (f *Flow) assignNodeIDs(campaignFlow *models.CampaignFlow) error {
	remapped := make(map[string]string)

	for _, node := range campaignFlow.Nodes {
		if node.ID != "" && !strings.HasPrefix(node.ID, tempIDPrefix) {
			continue
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate node ID: %w", err)
		}

		if node.ID != "" {
			remapped[node.ID] = id.String()
		}

		node.ID = id.String()
	}

	if len(remapped) == 0 {
		return nil
	}

	for _, edge := range campaignFlow.Edges {
		if id, ok := remapped[edge.Source]; ok {
			edge.Source = id
		}

		if id, ok := remapped[edge.Target]; ok {
			edge.Target = id
		}

		edge.ID = models.EdgeID(edge.Source, edge.Target)
	}

	return nil
}

// validateFlow checks node kinds, acyclicity, and the forest shape
// rules before a save is accepted.
func (f *Flow) validateFlow(campaignFlow *models.CampaignFlow) error {
	known := models.Kinds()
	for _, node := range campaignFlow.Nodes {
		if !slices.Contains(known, node.Kind) {
			return NewValidationError(
				"validateFlow",
				"UNKNOWN_NODE_KIND",
				fmt.Sprintf("unknown node kind %q on node %s", node.Kind, node.ID),
				ErrUnknownNodeKind,
			)
		}
	}

	g := dgraph.New(dgraph.StringHash, dgraph.Directed(), dgraph.PreventCycles())

	for _, node := range campaignFlow.Nodes {
		if err := g.AddVertex(node.ID); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return fmt.Errorf("failed to build validation graph: %w", err)
		}
	}

	for _, edge := range campaignFlow.Edges {
		err := g.AddEdge(edge.Source, edge.Target)
		if errors.Is(err, dgraph.ErrEdgeCreatesCycle) {
			return NewValidationError(
				"validateFlow",
				"CYCLIC_FLOW",
				fmt.Sprintf("edge %s -> %s creates a cycle", edge.Source, edge.Target),
				ErrCyclicFlow,
			)
		}

		if err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
			return fmt.Errorf("failed to build validation graph: %w", err)
		}
	}

	if _, err := flow.Load(campaignFlow.Nodes, campaignFlow.Edges); err != nil {
		return err
	}

	return nil
}

// UpdateNodeRequest carries a partial node update. Position coordinates
// must be provided together.
type UpdateNodeRequest struct {
	PositionX *float64 `json:"position_x"`
	PositionY *float64 `json:"position_y"`
	WaitTime  *int     `json:"wait_time"`
	Content   *string  `json:"content"`
}

// UpdateNode applies an incremental update to a single node and persists
// the owning flow.
func (f *Flow) UpdateNode(ctx context.Context, nodeID string, req UpdateNodeRequest) (*models.FlowNode, error) {
	if req.PositionX == nil && req.PositionY == nil && req.WaitTime == nil && req.Content == nil {
		return nil, ErrNoFieldsToUpdate
	}

	if (req.PositionX == nil) != (req.PositionY == nil) {
		return nil, NewValidationError(
			"UpdateNode",
			"PARTIAL_POSITION",
			"position_x and position_y must be provided together",
			ErrInvalidRequest,
		)
	}

	campaignFlow, g, err := f.loadByNodeID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	moved := false

	if req.PositionX != nil {
		if err := g.Reposition(nodeID, models.Position{X: *req.PositionX, Y: *req.PositionY}); err != nil {
			return nil, err
		}

		moved = true
	}

	if req.WaitTime != nil {
		if err := g.SetTiming(nodeID, *req.WaitTime); err != nil {
			return nil, err
		}
	}

	if req.Content != nil {
		g.Node(nodeID).Content = *req.Content
	}

	if err := f.saveGraph(ctx, campaignFlow, g); err != nil {
		return nil, err
	}

	if moved {
		f.publish(ctx, campaignFlow.CampaignID, events.NodeMoved{
			BaseEvent: events.NewBase(campaignFlow.CampaignID, events.NodeMovedEvent),
			NodeID:    nodeID,
			X:         *req.PositionX,
			Y:         *req.PositionY,
		})
	}

	node := *g.Node(nodeID)

	return &node, nil
}

// DeleteNode removes a node from its flow. Condition nodes cascade to
// their whole subtree; other nodes may only be deleted when they have
// no following steps, in which case the refusal is reported in the
// result rather than as an error.
func (f *Flow) DeleteNode(ctx context.Context, nodeID string) (*models.DeleteResult, error) {
	campaignFlow, g, err := f.loadByNodeID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	removed, err := g.Delete(nodeID)
	if errors.Is(err, flow.ErrHasChildren) {
		return &models.DeleteResult{
			Status:  false,
			Message: "Cannot delete a step that has following steps. Delete the following steps first.",
		}, nil
	}

	if err != nil {
		return nil, err
	}

	if err := f.saveGraph(ctx, campaignFlow, g); err != nil {
		return nil, err
	}

	f.publish(ctx, campaignFlow.CampaignID, events.NodeDeleted{
		BaseEvent: events.NewBase(campaignFlow.CampaignID, events.NodeDeletedEvent),
		NodeID:    nodeID,
		Removed:   removed,
	})

	return &models.DeleteResult{
		Status:  true,
		Message: fmt.Sprintf("Deleted %d node(s).", len(removed)),
	}, nil
}

// ReplaceNodeRequest carries an in-place kind swap for a node.
type ReplaceNodeRequest struct {
	Kind     models.NodeKind `json:"kind" validate:"required"`
	Label    string          `json:"label"`
	Subtitle string          `json:"subtitle"`
	WaitTime *int            `json:"wait_time"`
}

// ReplaceNode swaps a node's kind while keeping its identity, position,
// and edges. Timing is reset and may be re-seeded in the same call.
func (f *Flow) ReplaceNode(ctx context.Context, nodeID string, req ReplaceNodeRequest) (*models.FlowNode, error) {
	if err := f.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if !slices.Contains(models.Kinds(), req.Kind) {
		return nil, NewValidationError(
			"ReplaceNode",
			"UNKNOWN_NODE_KIND",
			fmt.Sprintf("unknown node kind %q", req.Kind),
			ErrUnknownNodeKind,
		)
	}

	campaignFlow, g, err := f.loadByNodeID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	oldKind := g.Node(nodeID).Kind

	if err := g.Replace(nodeID, req.Kind); err != nil {
		return nil, err
	}

	node := g.Node(nodeID)
	if req.Label != "" {
		node.Label = req.Label
	}

	if req.Subtitle != "" {
		node.Subtitle = req.Subtitle
	}

	if req.WaitTime != nil {
		if err := g.SetTiming(nodeID, *req.WaitTime); err != nil {
			return nil, err
		}
	}

	if err := f.saveGraph(ctx, campaignFlow, g); err != nil {
		return nil, err
	}

	f.publish(ctx, campaignFlow.CampaignID, events.NodeReplaced{
		BaseEvent: events.NewBase(campaignFlow.CampaignID, events.NodeReplacedEvent),
		NodeID:    nodeID,
		OldKind:   oldKind,
		NewKind:   req.Kind,
	})

	result := *g.Node(nodeID)

	return &result, nil
}

// loadByNodeID resolves the flow owning a node and loads it into a
// mutable graph.
func (f *Flow) loadByNodeID(ctx context.Context, nodeID string) (*models.CampaignFlow, *flow.Graph, error) {
	campaignFlow, err := f.persistence.FlowRepository().GetByNodeID(ctx, nodeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch flow: %w", err)
	}

	if campaignFlow == nil {
		return nil, nil, ErrNodeNotFound
	}

	g, err := flow.Load(campaignFlow.Nodes, campaignFlow.Edges)
	if err != nil {
		return nil, nil, fmt.Errorf("stored flow is invalid: %w", err)
	}

	return campaignFlow, g, nil
}

// saveGraph persists the mutated graph back under its campaign,
// preserving the original creation time.
func (f *Flow) saveGraph(ctx context.Context, original *models.CampaignFlow, g *flow.Graph) error {
	updated := g.Flow(original.CampaignID)
	updated.CreatedAt = original.CreatedAt

	if err := f.persistence.FlowRepository().Save(ctx, updated); err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}

	return nil
}

// publish sends an event on the bus. Publish failures are logged, not
// surfaced, so persistence remains the source of truth.
func (f *Flow) publish(ctx context.Context, campaignID string, event eventbus.Event) {
	if f.publisher == nil {
		return
	}

	if err := f.publisher.Publish(ctx, campaignID, event); err != nil {
		f.logger.WarnContext(ctx, "Failed to publish flow event",
			"event_type", event.GetType(),
			"error", err)
	}
}
