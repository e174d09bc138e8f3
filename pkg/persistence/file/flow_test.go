package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outflowhq/outflow/pkg/models"
	"github.com/outflowhq/outflow/pkg/persistence"
)

func testFlow(campaignID string) *models.CampaignFlow {
	cond := models.NewFlowNode("cond-1", models.KindHasEmail)
	email := models.NewFlowNode("email-1", models.KindSendEmail)
	email.Position = &models.Position{X: 10, Y: 20}

	return &models.CampaignFlow{
		CampaignID: campaignID,
		Nodes:      []*models.FlowNode{cond, email},
		Edges: []*models.FlowEdge{
			{
				ID:     models.EdgeID("cond-1", "email-1"),
				Source: "cond-1",
				Target: "email-1",
				Branch: models.BranchYes,
			},
		},
	}
}

func TestFlowRepository_SaveAndGet(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.FlowRepository()

	require.NoError(t, repo.Save(t.Context(), testFlow("c1")))

	fetched, err := repo.GetByCampaignID(t.Context(), "c1")
	require.NoError(t, err)
	require.NotNil(t, fetched)

	assert.Equal(t, "c1", fetched.CampaignID)
	require.Len(t, fetched.Nodes, 2)
	assert.Equal(t, models.KindHasEmail, fetched.Nodes[0].Kind)
	assert.Equal(t, &models.Position{X: 10, Y: 20}, fetched.Nodes[1].Position)
	require.Len(t, fetched.Edges, 1)
	assert.Equal(t, models.BranchYes, fetched.Edges[0].Branch)

	assert.False(t, fetched.CreatedAt.IsZero())
	assert.False(t, fetched.UpdatedAt.IsZero())
}

func TestFlowRepository_GetMissing(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.FlowRepository()

	fetched, err := repo.GetByCampaignID(t.Context(), "nope")
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestFlowRepository_GetByNodeID(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.FlowRepository()

	require.NoError(t, repo.Save(t.Context(), testFlow("c1")))

	other := testFlow("c2")
	other.Nodes = []*models.FlowNode{models.NewFlowNode("task-1", models.KindCreateTask)}
	other.Edges = nil
	require.NoError(t, repo.Save(t.Context(), other))

	found, err := repo.GetByNodeID(t.Context(), "email-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c1", found.CampaignID)

	found, err = repo.GetByNodeID(t.Context(), "task-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c2", found.CampaignID)

	found, err = repo.GetByNodeID(t.Context(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFlowRepository_CorruptDocument(t *testing.T) {
	root := t.TempDir()
	repo := NewPersistence(root).FlowRepository()

	dir := filepath.Join(root, "flows")
	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c1.json"), []byte("{not json"), 0600))

	_, err := repo.GetByCampaignID(t.Context(), "c1")
	require.Error(t, err)

	var flowErr *persistence.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, "GetByCampaignID", flowErr.Op)
	assert.Equal(t, "c1", flowErr.CampaignID)
}

func TestFlowRepository_SavePreservesCreatedAt(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.FlowRepository()

	flow := testFlow("c1")
	require.NoError(t, repo.Save(t.Context(), flow))

	created := flow.CreatedAt
	require.NoError(t, repo.Save(t.Context(), flow))

	fetched, err := repo.GetByCampaignID(t.Context(), "c1")
	require.NoError(t, err)
	assert.Equal(t, created, fetched.CreatedAt)
}

func TestFlowRepository_Delete(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.FlowRepository()

	require.NoError(t, repo.Save(t.Context(), testFlow("c1")))
	require.NoError(t, repo.Delete(t.Context(), "c1"))

	fetched, err := repo.GetByCampaignID(t.Context(), "c1")
	require.NoError(t, err)
	assert.Nil(t, fetched)

	// Deleting a missing flow is not an error.
	require.NoError(t, repo.Delete(t.Context(), "c1"))
}

func TestPersistence_HealthCheck(t *testing.T) {
	store := NewPersistence(t.TempDir())

	require.NoError(t, store.HealthCheck(t.Context()))
	require.NoError(t, store.Close(t.Context()))

	missing := NewPersistence("/nonexistent/outflow-test")
	require.Error(t, missing.HealthCheck(t.Context()))
}
