// Package persistence provides the storage abstraction for campaign flows.
package persistence

import (
	"context"

	"github.com/outflowhq/outflow/pkg/models"
)

// FlowRepository stores one authoritative flow per campaign.
type FlowRepository interface {
	// GetByCampaignID returns the flow for a campaign, or nil when the
	// campaign has no flow yet.
	GetByCampaignID(ctx context.Context, campaignID string) (*models.CampaignFlow, error)

	// GetByNodeID returns the flow containing the given node. The node
	// endpoints of the API are keyed by node ID alone.
	GetByNodeID(ctx context.Context, nodeID string) (*models.CampaignFlow, error)

	// Save replaces the stored flow for the campaign as a single unit.
	Save(ctx context.Context, flow *models.CampaignFlow) error

	// Delete removes a campaign's flow. Deleting a missing flow is not
	// an error.
	Delete(ctx context.Context, campaignID string) error
}

type Persistence interface {
	FlowRepository() FlowRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
