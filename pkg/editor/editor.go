// Package editor implements the client-side campaign flow editor: an
// in-memory working copy of the flow graph, the node selector state
// machine, and the save/refresh synchronization loop against the
// backend API.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/outflowhq/outflow/pkg/client"
	"github.com/outflowhq/outflow/pkg/flow"
	"github.com/outflowhq/outflow/pkg/layout"
	"github.com/outflowhq/outflow/pkg/log"
	"github.com/outflowhq/outflow/pkg/models"
	"github.com/outflowhq/outflow/pkg/render"
)

// DefaultAutosaveDelay is how long the editor sits idle after a change
// before saving on its own.
const DefaultAutosaveDelay = 5 * time.Second

var (
	// ErrNoSelection is returned when ChooseKind is called while the
	// selector is idle.
	ErrNoSelection = errors.New("no node selection in progress")

	// ErrNoPendingDelete is returned when ConfirmDelete is called
	// without a prior RequestDelete.
	ErrNoPendingDelete = errors.New("no delete pending confirmation")

	// ErrClosed is returned from operations on a closed editor.
	ErrClosed = errors.New("editor is closed")
)

// Client is the slice of the backend API the editor needs.
type Client interface {
	GetFlow(ctx context.Context, campaignID string) (*models.CampaignFlow, error)
	SaveFlow(ctx context.Context, flow *models.CampaignFlow) (*models.CampaignFlow, error)
	UpdateNodePosition(ctx context.Context, nodeID string, pos models.Position) error
	DeleteNode(ctx context.Context, nodeID string) (*models.DeleteResult, error)
	ReplaceNode(ctx context.Context, nodeID string, req client.ReplaceNodeRequest) (*models.FlowNode, error)
}

// Status is a snapshot of the editor's synchronization state, suitable
// for driving a toolbar indicator.
type Status struct {
	IsSaving          bool
	HasUnsavedChanges bool
	LastSavedAt       time.Time
	ErrorMessage      string
}

// Editor holds the working copy of one campaign's flow.
type Editor struct {
	mu sync.Mutex

	campaignID string
	api        Client
	graph      *flow.Graph
	selector   flow.Selector
	logger     *slog.Logger

	// gen counts local mutations; savedGen is the generation the last
	// successful save captured. lastSaved is the canonical snapshot of
	// the graph as the server last accepted it.
	gen       uint64
	savedGen  uint64
	lastSaved []byte

	saving bool
	status Status

	pendingDelete string

	autosaveDelay time.Duration
	autosaveTimer *time.Timer
	closed        bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithAutosaveDelay overrides the idle delay before an automatic save.
func WithAutosaveDelay(delay time.Duration) Option {
	return func(e *Editor) {
		e.autosaveDelay = delay
	}
}

// New creates an editor for a campaign with an empty working copy.
// Call Refresh to load the stored flow.
func New(api Client, campaignID string, opts ...Option) *Editor {
	e := &Editor{
		campaignID:    campaignID,
		api:           api,
		graph:         flow.New(),
		selector:      flow.IdleSelector(),
		logger:        log.WithModule("editor").With("campaign_id", campaignID),
		autosaveDelay: DefaultAutosaveDelay,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.lastSaved = e.graph.Snapshot()

	return e
}

// Close stops the autosave timer. It does not flush unsaved changes.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.stopAutosaveLocked()
}

// Status returns the current synchronization state.
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

// Selector returns the current node selector state.
func (e *Editor) Selector() flow.Selector {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.selector
}

// Flow returns a deep copy of the working graph.
func (e *Editor) Flow() *models.CampaignFlow {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.graph.Flow(e.campaignID)
}

// Render returns the presentation view of the working graph.
func (e *Editor) Render() render.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.graph.Flow(e.campaignID)

	return render.FromFlow(f.Nodes, f.Edges)
}

// BeginAddRoot opens the node picker for the first node of an empty
// canvas.
func (e *Editor) BeginAddRoot() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selector = flow.RootSelector()
}

// BeginAddChild opens the node picker to attach a child under parentID
// on the given branch.
func (e *Editor) BeginAddChild(parentID string, branch models.BranchLabel) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selector = flow.ChildSelector(parentID, branch)
}

// BeginReplace opens the node picker to swap the kind of an existing
// node.
func (e *Editor) BeginReplace(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selector = flow.ReplaceSelector(nodeID)
}

// ClearSelection closes the node picker without acting.
func (e *Editor) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selector = flow.IdleSelector()
}

// ChooseKind resolves the open selector with the picked kind: it adds
// a root, adds a child, or replaces a node depending on how the
// selection was opened.
func (e *Editor) ChooseKind(ctx context.Context, kind models.NodeKind) (*models.FlowNode, error) {
	e.mu.Lock()
	sel := e.selector
	e.mu.Unlock()

	switch sel.State {
	case flow.SelectorAwaitingChoice:
		if sel.TargetID == "" {
			return e.AddRootNode(kind)
		}

		return e.AddChild(sel.TargetID, kind, sel.Branch)
	case flow.SelectorReplacing:
		return e.ReplaceNode(ctx, sel.TargetID, kind)
	default:
		return nil, ErrNoSelection
	}
}

// AddRootNode places the first node on an empty canvas.
func (e *Editor) AddRootNode(kind models.NodeKind) (*models.FlowNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, err := e.graph.AddRoot(kind)
	if err != nil {
		return nil, err
	}

	e.applyLayoutLocked()
	e.selector = flow.IdleSelector()
	e.markDirtyLocked()

	copied := *e.graph.Node(node.ID)

	return &copied, nil
}

// AddChild attaches a new node under a parent. Condition parents take a
// yes or no branch; other parents take a single unlabeled child.
func (e *Editor) AddChild(parentID string, kind models.NodeKind, branch models.BranchLabel) (*models.FlowNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, err := e.graph.AddChild(parentID, kind, branch)
	if err != nil {
		return nil, err
	}

	e.applyLayoutLocked()
	e.selector = flow.IdleSelector()
	e.markDirtyLocked()

	copied := *e.graph.Node(node.ID)

	return &copied, nil
}

// SetTiming sets a node's wait or duration value, normalized by the
// node's kind.
func (e *Editor) SetTiming(nodeID string, value int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.graph.SetTiming(nodeID, value); err != nil {
		return err
	}

	e.markDirtyLocked()

	return nil
}

// SetContent updates a node's free-form content.
func (e *Editor) SetContent(nodeID, content string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.graph.Node(nodeID)
	if node == nil {
		return flow.ErrNodeNotFound
	}

	node.Content = content
	e.markDirtyLocked()

	return nil
}

// applyLayoutLocked recomputes positions for any node that does not
// have one yet, keeping placed nodes where the user left them.
func (e *Editor) applyLayoutLocked() {
	nodes := e.graph.Nodes()
	edges := e.graph.Edges()

	layoutNodes := make([]layout.Node, 0, len(nodes))
	for _, node := range nodes {
		layoutNodes = append(layoutNodes, layout.Node{
			ID:        node.ID,
			Condition: node.IsCondition(),
			Position:  node.Position,
		})
	}

	layoutEdges := make([]layout.Edge, 0, len(edges))
	for _, edge := range edges {
		layoutEdges = append(layoutEdges, layout.Edge{
			Source: edge.Source,
			Target: edge.Target,
			Branch: edge.Branch,
		})
	}

	positions := layout.Compute(layoutNodes, layoutEdges)

	for _, node := range nodes {
		if node.Position != nil {
			continue
		}

		if pos, ok := positions[node.ID]; ok {
			_ = e.graph.Reposition(node.ID, pos)
		}
	}
}

// markDirtyLocked records a local mutation and arms the autosave timer.
func (e *Editor) markDirtyLocked() {
	e.gen++
	e.status.HasUnsavedChanges = true
	e.status.ErrorMessage = ""
	e.scheduleAutosaveLocked()
}
