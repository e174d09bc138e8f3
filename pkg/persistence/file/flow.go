package file

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/outflowhq/outflow/pkg/models"
	"github.com/outflowhq/outflow/pkg/persistence"
)

// FlowRepository stores one JSON document per campaign under
// <root>/flows.
type FlowRepository struct {
	root string
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

// GetByCampaignID retrieves a campaign's flow, or nil when absent.
func (fr *FlowRepository) GetByCampaignID(_ context.Context, campaignID string) (*models.CampaignFlow, error) {
	filePath := filepath.Clean(path.Join(fr.root, "flows", campaignID+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewFlowError("GetByCampaignID", campaignID, err)
	}

	var flow models.CampaignFlow

	err = json.Unmarshal(body, &flow)
	if err != nil {
		return nil, persistence.NewFlowError("GetByCampaignID", campaignID, err)
	}

	return &flow, nil
}

// GetByNodeID scans stored flows for the one containing the node, or nil.
func (fr *FlowRepository) GetByNodeID(ctx context.Context, nodeID string) (*models.CampaignFlow, error) {
	root := os.DirFS(path.Join(fr.root, "flows"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewNodeError("GetByNodeID", nodeID, err)
	}

	for _, file := range jsonFiles {
		campaignID := file[:len(file)-5] // strip .json

		flow, err := fr.GetByCampaignID(ctx, campaignID)
		if err != nil {
			return nil, err
		}

		if flow == nil {
			continue
		}

		for _, node := range flow.Nodes {
			if node.ID == nodeID {
				return flow, nil
			}
		}
	}

	return nil, nil
}

// Save writes a flow as a full replace of the stored document.
func (fr *FlowRepository) Save(_ context.Context, flow *models.CampaignFlow) error {
	dir := path.Join(fr.root, "flows")

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return persistence.NewFlowError("Save", flow.CampaignID, err)
	}

	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return persistence.NewFlowError("Save", flow.CampaignID, err)
	}

	err = os.WriteFile(path.Join(dir, flow.CampaignID+".json"), data, 0600)
	if err != nil {
		return persistence.NewFlowError("Save", flow.CampaignID, err)
	}

	return nil
}

// Delete removes a campaign's flow. Missing flows are not an error.
func (fr *FlowRepository) Delete(_ context.Context, campaignID string) error {
	err := os.Remove(path.Join(fr.root, "flows", campaignID+".json"))

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewFlowError("Delete", campaignID, err)
	}

	return nil
}
