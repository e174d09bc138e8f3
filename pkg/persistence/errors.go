package persistence

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound indicates no stored flow contains the given node.
// Missing campaign flows are not an error: repositories return nil and
// callers render an empty canvas.
var ErrNodeNotFound = errors.New("node not found")

// FlowError wraps flow storage errors with operation context.
type FlowError struct {
	Op         string
	CampaignID string
	NodeID     string
	Err        error
}

func (e *FlowError) Error() string {
	target := "campaign " + e.CampaignID
	if e.NodeID != "" {
		target = "node " + e.NodeID
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, target, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a flow error for campaign-keyed operations.
func NewFlowError(op, campaignID string, err error) *FlowError {
	return &FlowError{Op: op, CampaignID: campaignID, Err: err}
}

// NewNodeError creates a flow error for node-keyed operations.
func NewNodeError(op, nodeID string, err error) *FlowError {
	return &FlowError{Op: op, NodeID: nodeID, Err: err}
}

// IsNodeNotFound checks if an error indicates a missing node.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}
