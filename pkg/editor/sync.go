package editor

import (
	"bytes"
	"context"
	"time"

	"github.com/outflowhq/outflow/pkg/client"
	"github.com/outflowhq/outflow/pkg/flow"
	"github.com/outflowhq/outflow/pkg/models"
)

// Refresh replaces the working copy with the flow stored on the
// server. A malformed stored flow is logged and treated as empty so
// the editor always comes up usable.
func (e *Editor) Refresh(ctx context.Context) error {
	fetched, err := e.api.GetFlow(ctx, e.campaignID)
	if err != nil {
		e.mu.Lock()
		e.status.ErrorMessage = err.Error()
		e.mu.Unlock()

		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := flow.Load(fetched.Nodes, fetched.Edges)
	if err != nil {
		e.logger.WarnContext(ctx, "Stored flow is invalid, starting from an empty canvas", "error", err)

		g = flow.New()
	}

	e.graph = g
	e.applyLayoutLocked()
	e.lastSaved = e.graph.Snapshot()
	e.savedGen = e.gen
	e.status.HasUnsavedChanges = false
	e.status.ErrorMessage = ""

	return nil
}

// SaveNow pushes the working copy to the server. Saves are
// single-flight: a call made while one is in flight returns
// immediately, and the in-flight call notices the newer generation
// and saves again. After a successful save the server's copy is
// adopted, picking up server-issued node IDs, unless the user edited
// during the round trip, in which case the server copy is dropped and
// the save runs again.
func (e *Editor) SaveNow(ctx context.Context) error {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()

		return ErrClosed
	}

	if e.saving {
		e.mu.Unlock()

		return nil
	}

	for {
		snapshot := e.graph.Snapshot()
		if bytes.Equal(snapshot, e.lastSaved) {
			e.status.HasUnsavedChanges = false
			e.mu.Unlock()

			return nil
		}

		e.saving = true
		e.status.IsSaving = true
		genAtSave := e.gen
		payload := e.graph.Flow(e.campaignID)
		e.mu.Unlock()

		saved, err := e.api.SaveFlow(ctx, payload)

		e.mu.Lock()
		e.saving = false
		e.status.IsSaving = false

		if err != nil {
			e.status.ErrorMessage = err.Error()
			e.mu.Unlock()

			return err
		}

		e.status.LastSavedAt = time.Now()
		e.status.ErrorMessage = ""

		if e.gen != genAtSave {
			// Edited during the round trip: the server copy is stale
			// against the canvas, so drop it and save again.
			continue
		}

		if g, lerr := flow.Load(saved.Nodes, saved.Edges); lerr == nil {
			e.graph = g
		} else {
			e.logger.WarnContext(ctx, "Saved flow came back invalid, keeping local copy", "error", lerr)
		}

		e.lastSaved = e.graph.Snapshot()
		e.savedGen = e.gen
		e.status.HasUnsavedChanges = false
		e.mu.Unlock()

		return nil
	}
}

// Reposition moves a node on the canvas. When the move is the only
// unsaved change it is pushed as an incremental position update
// instead of a full-graph save.
func (e *Editor) Reposition(ctx context.Context, nodeID string, pos models.Position) error {
	e.mu.Lock()

	if err := e.graph.Reposition(nodeID, pos); err != nil {
		e.mu.Unlock()

		return err
	}

	e.gen++
	genAtCall := e.gen
	e.status.HasUnsavedChanges = true
	incremental := e.savedGen == genAtCall-1 && !e.saving
	e.mu.Unlock()

	if !incremental {
		e.mu.Lock()
		e.scheduleAutosaveLocked()
		e.mu.Unlock()

		return nil
	}

	err := e.api.UpdateNodePosition(ctx, nodeID, pos)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		// The move stays local; the next full save carries it.
		e.status.ErrorMessage = err.Error()
		e.scheduleAutosaveLocked()

		return err
	}

	if e.gen == genAtCall {
		e.lastSaved = e.graph.Snapshot()
		e.savedGen = e.gen
		e.status.HasUnsavedChanges = false
		e.status.LastSavedAt = time.Now()
		e.status.ErrorMessage = ""
	}

	return nil
}

// RequestDelete marks a node for deletion pending user confirmation.
func (e *Editor) RequestDelete(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.graph.Node(nodeID) == nil {
		return flow.ErrNodeNotFound
	}

	e.pendingDelete = nodeID

	return nil
}

// PendingDelete returns the node awaiting delete confirmation, if any.
func (e *Editor) PendingDelete() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pendingDelete, e.pendingDelete != ""
}

// CancelDelete drops the pending delete without acting.
func (e *Editor) CancelDelete() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pendingDelete = ""
}

// ConfirmDelete executes the pending delete against the server first,
// then mirrors it locally. A server refusal (a node with following
// steps) leaves the canvas untouched and surfaces the server's message.
func (e *Editor) ConfirmDelete(ctx context.Context) (*models.DeleteResult, error) {
	e.mu.Lock()
	nodeID := e.pendingDelete
	e.pendingDelete = ""
	e.mu.Unlock()

	if nodeID == "" {
		return nil, ErrNoPendingDelete
	}

	// Flush local changes so the server judges the same graph the user
	// is looking at.
	if err := e.SaveNow(ctx); err != nil {
		return nil, err
	}

	result, err := e.api.DeleteNode(ctx, nodeID)
	if err != nil {
		e.mu.Lock()
		e.status.ErrorMessage = err.Error()
		e.mu.Unlock()

		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !result.Status {
		e.status.ErrorMessage = result.Message

		return result, nil
	}

	if _, derr := e.graph.Delete(nodeID); derr != nil {
		// Local copy disagrees with the server; note it and let the
		// next Refresh reconcile.
		e.logger.WarnContext(ctx, "Local delete failed after server delete", "node_id", nodeID, "error", derr)

		return result, nil
	}

	e.lastSaved = e.graph.Snapshot()
	e.savedGen = e.gen
	e.status.HasUnsavedChanges = false
	e.status.LastSavedAt = time.Now()
	e.status.ErrorMessage = ""

	return result, nil
}

// ReplaceNode swaps a node's kind, server first. Local changes are
// flushed beforehand so the node exists on the server under the same
// ID the canvas shows.
func (e *Editor) ReplaceNode(ctx context.Context, nodeID string, kind models.NodeKind) (*models.FlowNode, error) {
	if err := e.SaveNow(ctx); err != nil {
		return nil, err
	}

	replaced, err := e.api.ReplaceNode(ctx, nodeID, client.ReplaceNodeRequest{
		ActionKey: string(kind),
	})
	if err != nil {
		e.mu.Lock()
		e.status.ErrorMessage = err.Error()
		e.mu.Unlock()

		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if rerr := e.graph.Replace(nodeID, kind); rerr != nil {
		e.logger.WarnContext(ctx, "Local replace failed after server replace", "node_id", nodeID, "error", rerr)

		return replaced, nil
	}

	local := e.graph.Node(nodeID)
	local.Label = replaced.Label
	local.Subtitle = replaced.Subtitle
	local.Content = replaced.Content
	local.WaitTime = replaced.WaitTime
	local.Duration = replaced.Duration

	e.selector = flow.IdleSelector()
	e.lastSaved = e.graph.Snapshot()
	e.savedGen = e.gen
	e.status.HasUnsavedChanges = false
	e.status.LastSavedAt = time.Now()
	e.status.ErrorMessage = ""

	copied := *local

	return &copied, nil
}

// scheduleAutosaveLocked arms (or re-arms) the idle autosave timer.
func (e *Editor) scheduleAutosaveLocked() {
	if e.closed || e.autosaveDelay <= 0 {
		return
	}

	if e.autosaveTimer != nil {
		e.autosaveTimer.Stop()
	}

	e.autosaveTimer = time.AfterFunc(e.autosaveDelay, func() {
		if err := e.SaveNow(context.Background()); err != nil {
			e.logger.Warn("Autosave failed", "error", err)
		}
	})
}

func (e *Editor) stopAutosaveLocked() {
	if e.autosaveTimer != nil {
		e.autosaveTimer.Stop()
		e.autosaveTimer = nil
	}
}
