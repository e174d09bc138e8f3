// Package rediscache decorates a flow repository with a Redis read
// cache. The editor polls get-flow after every save, so campaign flow
// reads dominate writes by a wide margin.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/outflowhq/outflow/pkg/models"
	"github.com/outflowhq/outflow/pkg/persistence"
)

const (
	keyPrefix = "outflow:flow:"
	cacheTTL  = 5 * time.Minute
)

// Persistence wraps an inner persistence layer with a Redis cache on the
// flow repository.
type Persistence struct {
	inner    persistence.Persistence
	client   *redis.Client
	flowRepo *FlowRepository
}

// NewPersistence connects to Redis and wraps the inner layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, inner persistence.Persistence, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Persistence{
		inner:  inner,
		client: client,
		flowRepo: &FlowRepository{
			inner:  inner.FlowRepository(),
			client: client,
			logger: logger,
		},
	}, nil
}

func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("redis is unhealthy: %w", err)
	}

	return p.inner.HealthCheck(ctx)
}

func (p *Persistence) Close(ctx context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return p.inner.Close(ctx)
}

// FlowRepository caches GetByCampaignID reads and invalidates on writes.
// Cache failures degrade to the inner repository; they are logged, never
// surfaced.
type FlowRepository struct {
	inner  persistence.FlowRepository
	client *redis.Client
	logger *slog.Logger
}

func (fr *FlowRepository) GetByCampaignID(ctx context.Context, campaignID string) (*models.CampaignFlow, error) {
	cached, err := fr.client.Get(ctx, keyPrefix+campaignID).Bytes()
	if err == nil {
		var flow models.CampaignFlow

		if err := json.Unmarshal(cached, &flow); err == nil {
			return &flow, nil
		}

		fr.logger.WarnContext(ctx, "discarding corrupt cache entry", "campaign_id", campaignID)
	} else if err != redis.Nil {
		fr.logger.WarnContext(ctx, "flow cache read failed", "campaign_id", campaignID, "error", err)
	}

	flow, err := fr.inner.GetByCampaignID(ctx, campaignID)
	if err != nil || flow == nil {
		return flow, err
	}

	fr.store(ctx, flow)

	return flow, nil
}

// GetByNodeID always hits the inner repository; node-to-campaign
// resolution is not cached.
func (fr *FlowRepository) GetByNodeID(ctx context.Context, nodeID string) (*models.CampaignFlow, error) {
	return fr.inner.GetByNodeID(ctx, nodeID)
}

func (fr *FlowRepository) Save(ctx context.Context, flow *models.CampaignFlow) error {
	err := fr.inner.Save(ctx, flow)
	if err != nil {
		return err
	}

	fr.store(ctx, flow)

	return nil
}

func (fr *FlowRepository) Delete(ctx context.Context, campaignID string) error {
	err := fr.inner.Delete(ctx, campaignID)
	if err != nil {
		return err
	}

	err = fr.client.Del(ctx, keyPrefix+campaignID).Err()
	if err != nil {
		fr.logger.WarnContext(ctx, "flow cache invalidation failed", "campaign_id", campaignID, "error", err)
	}

	return nil
}

func (fr *FlowRepository) store(ctx context.Context, flow *models.CampaignFlow) {
	data, err := json.Marshal(flow)
	if err != nil {
		return
	}

	err = fr.client.Set(ctx, keyPrefix+flow.CampaignID, data, cacheTTL).Err()
	if err != nil {
		fr.logger.WarnContext(ctx, "flow cache write failed", "campaign_id", flow.CampaignID, "error", err)
	}
}
