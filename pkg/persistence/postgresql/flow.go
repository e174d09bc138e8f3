package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outflowhq/outflow/pkg/models"
	"github.com/outflowhq/outflow/pkg/persistence"
)

// FlowRepository handles campaign flow database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

// GetByCampaignID retrieves a campaign's flow, or nil when absent.
func (r *FlowRepository) GetByCampaignID(ctx context.Context, campaignID string) (*models.CampaignFlow, error) {
	query := `
		SELECT campaign_id, created_at, updated_at
		FROM campaign_flows
		WHERE campaign_id = $1
	`

	flow := &models.CampaignFlow{}

	err := r.db.QueryRowContext(ctx, query, campaignID).
		Scan(&flow.CampaignID, &flow.CreatedAt, &flow.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewFlowError("GetByCampaignID", campaignID, err)
	}

	err = r.loadNodesAndEdges(ctx, flow)
	if err != nil {
		return nil, persistence.NewFlowError("GetByCampaignID", campaignID, err)
	}

	return flow, nil
}

// GetByNodeID resolves the campaign owning the node, then loads its flow.
func (r *FlowRepository) GetByNodeID(ctx context.Context, nodeID string) (*models.CampaignFlow, error) {
	var campaignID string

	err := r.db.QueryRowContext(ctx,
		"SELECT campaign_id FROM flow_nodes WHERE id = $1", nodeID).
		Scan(&campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewNodeError("GetByNodeID", nodeID, err)
	}

	return r.GetByCampaignID(ctx, campaignID)
}

// Save replaces the stored flow in one transaction: upsert the envelope,
// delete the old rows, insert the new node and edge sets.
func (r *FlowRepository) Save(ctx context.Context, flow *models.CampaignFlow) error {
	if err := r.save(ctx, flow); err != nil {
		return persistence.NewFlowError("Save", flow.CampaignID, err)
	}

	return nil
}

func (r *FlowRepository) save(ctx context.Context, flow *models.CampaignFlow) error {
	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	envelopeQuery := `
		INSERT INTO campaign_flows (campaign_id, created_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (campaign_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`

	_, err = tx.ExecContext(ctx, envelopeQuery, flow.CampaignID, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flow envelope: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM flow_edges WHERE campaign_id = $1", flow.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to delete existing edges: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM flow_nodes WHERE campaign_id = $1", flow.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	err = r.saveNodes(ctx, tx, flow)
	if err != nil {
		return err
	}

	err = r.saveEdges(ctx, tx, flow)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a campaign's flow, cascading to nodes and edges.
func (r *FlowRepository) Delete(ctx context.Context, campaignID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM campaign_flows WHERE campaign_id = $1", campaignID)
	if err != nil {
		return persistence.NewFlowError("Delete", campaignID, err)
	}

	return nil
}

func (r *FlowRepository) loadNodesAndEdges(ctx context.Context, flow *models.CampaignFlow) error {
	nodesQuery := `
		SELECT id, kind, label, subtitle, content, position_x, position_y, wait_time, duration
		FROM flow_nodes
		WHERE campaign_id = $1
		ORDER BY sort_order
	`

	rows, err := r.db.QueryContext(ctx, nodesQuery, flow.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to query flow nodes: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var nodes []*models.FlowNode

	for rows.Next() {
		var (
			node models.FlowNode
			posX sql.NullFloat64
			posY sql.NullFloat64
		)

		err := rows.Scan(
			&node.ID,
			&node.Kind,
			&node.Label,
			&node.Subtitle,
			&node.Content,
			&posX,
			&posY,
			&node.WaitTime,
			&node.Duration,
		)
		if err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}

		if posX.Valid && posY.Valid {
			node.Position = &models.Position{X: posX.Float64, Y: posY.Float64}
		}

		nodes = append(nodes, &node)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating nodes: %w", err)
	}

	flow.Nodes = nodes

	edgesQuery := `
		SELECT id, source_id, target_id, branch
		FROM flow_edges
		WHERE campaign_id = $1
		ORDER BY sort_order
	`

	rows, err = r.db.QueryContext(ctx, edgesQuery, flow.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to query flow edges: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var edges []*models.FlowEdge

	for rows.Next() {
		var edge models.FlowEdge

		err := rows.Scan(&edge.ID, &edge.Source, &edge.Target, &edge.Branch)
		if err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}

		edges = append(edges, &edge)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating edges: %w", err)
	}

	flow.Edges = edges

	return nil
}

func (r *FlowRepository) saveNodes(ctx context.Context, tx *sql.Tx, flow *models.CampaignFlow) error {
	query := `
		INSERT INTO flow_nodes (id, campaign_id, kind, label, subtitle, content, position_x, position_y, wait_time, duration, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for i, node := range flow.Nodes {
		var posX, posY sql.NullFloat64

		if node.Position != nil {
			posX = sql.NullFloat64{Float64: node.Position.X, Valid: true}
			posY = sql.NullFloat64{Float64: node.Position.Y, Valid: true}
		}

		_, err := tx.ExecContext(ctx, query,
			node.ID,
			flow.CampaignID,
			node.Kind,
			node.Label,
			node.Subtitle,
			node.Content,
			posX,
			posY,
			node.WaitTime,
			node.Duration,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to save node: %w", err)
		}
	}

	return nil
}

func (r *FlowRepository) saveEdges(ctx context.Context, tx *sql.Tx, flow *models.CampaignFlow) error {
	query := `
		INSERT INTO flow_edges (id, campaign_id, source_id, target_id, branch, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i, edge := range flow.Edges {
		_, err := tx.ExecContext(ctx, query,
			edge.ID,
			flow.CampaignID,
			edge.Source,
			edge.Target,
			edge.Branch,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to save edge: %w", err)
		}
	}

	return nil
}
