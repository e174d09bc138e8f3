package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outflowhq/outflow/pkg/client"
	"github.com/outflowhq/outflow/pkg/flow"
	"github.com/outflowhq/outflow/pkg/models"
)

// mockClient implements Client against an in-memory flow, with hooks to
// script failures and interleave edits mid-save.
type mockClient struct {
	mu sync.Mutex

	stored *models.CampaignFlow

	saveCalls     int
	positionCalls int
	deleteCalls   int

	saveErr      error
	positionErr  error
	deleteResult *models.DeleteResult
	deleteErr    error
	onSave       func()
}

func newMockClient() *mockClient {
	return &mockClient{
		stored: &models.CampaignFlow{CampaignID: "c1"},
	}
}

func (m *mockClient) GetFlow(_ context.Context, campaignID string) (*models.CampaignFlow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stored == nil {
		return &models.CampaignFlow{CampaignID: campaignID}, nil
	}

	return m.stored, nil
}

func (m *mockClient) SaveFlow(_ context.Context, f *models.CampaignFlow) (*models.CampaignFlow, error) {
	m.mu.Lock()
	m.saveCalls++
	hook := m.onSave
	m.mu.Unlock()

	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, m.saveErr
	}

	m.stored = f

	return f, nil
}

func (m *mockClient) UpdateNodePosition(_ context.Context, _ string, _ models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.positionCalls++

	return m.positionErr
}

func (m *mockClient) DeleteNode(_ context.Context, nodeID string) (*models.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCalls++

	if m.deleteErr != nil {
		return nil, m.deleteErr
	}

	if m.deleteResult != nil {
		return m.deleteResult, nil
	}

	return &models.DeleteResult{Status: true, Message: "deleted"}, nil
}

func (m *mockClient) ReplaceNode(_ context.Context, nodeID string, req client.ReplaceNodeRequest) (*models.FlowNode, error) {
	return models.NewFlowNode(nodeID, models.NodeKind(req.ActionKey)), nil
}

func newTestEditor(t *testing.T, api Client) *Editor {
	t.Helper()

	// Autosave off so tests drive saves explicitly.
	e := New(api, "c1", WithAutosaveDelay(0))
	t.Cleanup(e.Close)

	return e
}

func TestEditor_AddRootNode(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)

	// The new node got a layout position immediately.
	require.NotNil(t, root.Position)
	assert.True(t, e.Status().HasUnsavedChanges)

	_, err = e.AddRootNode(models.KindWait)
	require.ErrorIs(t, err, flow.ErrRootExists)
}

func TestEditor_SelectorFlow(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	e.BeginAddRoot()
	assert.Equal(t, flow.SelectorAwaitingChoice, e.Selector().State)

	root, err := e.ChooseKind(t.Context(), models.KindHasEmail)
	require.NoError(t, err)
	assert.Equal(t, flow.SelectorIdle, e.Selector().State)

	e.BeginAddChild(root.ID, models.BranchYes)
	child, err := e.ChooseKind(t.Context(), models.KindSendEmail)
	require.NoError(t, err)
	require.NotNil(t, child)

	f := e.Flow()
	require.Len(t, f.Nodes, 2)
	require.Len(t, f.Edges, 1)
	assert.Equal(t, models.BranchYes, f.Edges[0].Branch)

	e.ClearSelection()
	_, err = e.ChooseKind(t.Context(), models.KindWait)
	require.ErrorIs(t, err, ErrNoSelection)
}

func TestEditor_SaveNow_SkipsWhenClean(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	// Nothing changed since construction: no network call.
	require.NoError(t, e.SaveNow(t.Context()))
	assert.Equal(t, 0, api.saveCalls)

	_, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)

	require.NoError(t, e.SaveNow(t.Context()))
	assert.Equal(t, 1, api.saveCalls)
	assert.False(t, e.Status().HasUnsavedChanges)
	assert.False(t, e.Status().LastSavedAt.IsZero())

	// Saving again without edits is a no-op.
	require.NoError(t, e.SaveNow(t.Context()))
	assert.Equal(t, 1, api.saveCalls)
}

func TestEditor_SaveNow_Error(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	_, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)

	api.saveErr = errors.New("backend down")

	err = e.SaveNow(t.Context())
	require.Error(t, err)

	status := e.Status()
	assert.True(t, status.HasUnsavedChanges)
	assert.Contains(t, status.ErrorMessage, "backend down")

	// Recovery: clear the failure and save again.
	api.saveErr = nil
	require.NoError(t, e.SaveNow(t.Context()))
	assert.False(t, e.Status().HasUnsavedChanges)
}

func TestEditor_SaveNow_EditDuringSaveTriggersResave(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)

	// Mutate the canvas while the first save is in flight. The stale
	// server copy must be dropped and a second save issued.
	once := sync.Once{}
	api.onSave = func() {
		once.Do(func() {
			require.NoError(t, e.SetTiming(root.ID, 7))
		})
	}

	require.NoError(t, e.SaveNow(t.Context()))

	assert.Equal(t, 2, api.saveCalls)
	assert.False(t, e.Status().HasUnsavedChanges)

	// The edit made mid-save survived, locally and on the server.
	assert.Equal(t, 7, e.Flow().Nodes[0].Duration)
	assert.Equal(t, 7, api.stored.Nodes[0].Duration)
}

func TestEditor_SaveNow_ReentrantCallCollapses(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)

	once := sync.Once{}
	api.onSave = func() {
		once.Do(func() {
			require.NoError(t, e.SetTiming(root.ID, 3))

			// A save requested while one is in flight returns at once
			// without firing a second concurrent request.
			require.NoError(t, e.SaveNow(context.Background()))
			assert.Equal(t, 1, api.saveCalls)
		})
	}

	require.NoError(t, e.SaveNow(t.Context()))

	// The in-flight call carried the collapsed request as its trailing
	// save.
	assert.Equal(t, 2, api.saveCalls)
	assert.False(t, e.Status().HasUnsavedChanges)
	assert.Equal(t, 3, e.Flow().Nodes[0].Duration)
}

func TestEditor_Refresh(t *testing.T) {
	api := newMockClient()

	g := flow.New()
	cond, _ := g.AddRoot(models.KindHasEmail)
	_, _ = g.AddChild(cond.ID, models.KindSendEmail, models.BranchYes)
	api.stored = g.Flow("c1")

	e := newTestEditor(t, api)
	require.NoError(t, e.Refresh(t.Context()))

	f := e.Flow()
	assert.Len(t, f.Nodes, 2)
	assert.False(t, e.Status().HasUnsavedChanges)

	// Every node has a position after refresh.
	for _, node := range f.Nodes {
		assert.NotNil(t, node.Position)
	}
}

func TestEditor_Refresh_MalformedFlowFallsBackToEmpty(t *testing.T) {
	api := newMockClient()
	api.stored = &models.CampaignFlow{
		CampaignID: "c1",
		Nodes: []*models.FlowNode{
			models.NewFlowNode("a", models.KindSendEmail),
		},
		Edges: []*models.FlowEdge{
			{ID: "a-ghost", Source: "a", Target: "ghost"},
		},
	}

	e := newTestEditor(t, api)
	require.NoError(t, e.Refresh(t.Context()))

	assert.Empty(t, e.Flow().Nodes)
}

func TestEditor_Reposition_IncrementalSave(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)
	require.NoError(t, e.SaveNow(t.Context()))

	// A solo move takes the cheap path: one position PUT, no full save.
	require.NoError(t, e.Reposition(t.Context(), root.ID, models.Position{X: 50, Y: 60}))
	assert.Equal(t, 1, api.positionCalls)
	assert.Equal(t, 1, api.saveCalls)
	assert.False(t, e.Status().HasUnsavedChanges)
}

func TestEditor_Reposition_FoldedIntoFullSaveWhenDirty(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)

	// Unsaved structural change pending: the move must not race ahead
	// of it with a position PUT the server can't apply.
	require.NoError(t, e.Reposition(t.Context(), root.ID, models.Position{X: 50, Y: 60}))
	assert.Equal(t, 0, api.positionCalls)
	assert.True(t, e.Status().HasUnsavedChanges)

	require.NoError(t, e.SaveNow(t.Context()))
	assert.Equal(t, 1, api.saveCalls)
}

func TestEditor_DeleteFlow(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)
	require.NoError(t, e.SaveNow(t.Context()))

	require.ErrorIs(t, e.RequestDelete("missing"), flow.ErrNodeNotFound)

	require.NoError(t, e.RequestDelete(root.ID))

	pending, ok := e.PendingDelete()
	require.True(t, ok)
	assert.Equal(t, root.ID, pending)

	e.CancelDelete()
	_, err = e.ConfirmDelete(t.Context())
	require.ErrorIs(t, err, ErrNoPendingDelete)
	assert.Equal(t, 0, api.deleteCalls)

	require.NoError(t, e.RequestDelete(root.ID))

	result, err := e.ConfirmDelete(t.Context())
	require.NoError(t, err)
	assert.True(t, result.Status)
	assert.Empty(t, e.Flow().Nodes)
	assert.False(t, e.Status().HasUnsavedChanges)
}

func TestEditor_DeleteRefusalLeavesCanvasUntouched(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindInvite)
	require.NoError(t, err)
	_, err = e.AddChild(root.ID, models.KindWait, models.BranchNone)
	require.NoError(t, err)
	require.NoError(t, e.SaveNow(t.Context()))

	api.deleteResult = &models.DeleteResult{
		Status:  false,
		Message: "Cannot delete a step that has following steps.",
	}

	require.NoError(t, e.RequestDelete(root.ID))

	result, err := e.ConfirmDelete(t.Context())
	require.NoError(t, err)

	assert.False(t, result.Status)
	assert.Len(t, e.Flow().Nodes, 2)
	assert.Equal(t, result.Message, e.Status().ErrorMessage)
}

func TestEditor_ReplaceNode(t *testing.T) {
	api := newMockClient()
	e := newTestEditor(t, api)

	root, err := e.AddRootNode(models.KindSendEmail)
	require.NoError(t, err)
	require.NoError(t, e.SaveNow(t.Context()))

	e.BeginReplace(root.ID)

	replaced, err := e.ChooseKind(t.Context(), models.KindLinkedInMessage)
	require.NoError(t, err)

	assert.Equal(t, root.ID, replaced.ID)
	assert.Equal(t, models.KindLinkedInMessage, replaced.Kind)
	assert.Equal(t, flow.SelectorIdle, e.Selector().State)
	assert.False(t, e.Status().HasUnsavedChanges)
}

func TestEditor_Close(t *testing.T) {
	api := newMockClient()
	e := New(api, "c1")

	e.Close()

	err := e.SaveNow(t.Context())
	require.ErrorIs(t, err, ErrClosed)
}
