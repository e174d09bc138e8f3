// Package flow implements the in-memory campaign flow graph and its
// mutation operations. The graph is arena-style storage: a flat map from
// node ID to node plus parent and child references by ID, so every
// mutation is an O(1) lookup and the forest invariant is checked at the
// operation boundary rather than by walking a nested tree.
package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrRootExists is returned when a root node is added to a non-empty
	// flow. All nodes must be connected except the first.
	ErrRootExists = errors.New("all nodes must be connected except the first")

	// ErrNodeNotFound is returned when an operation references an
	// unknown node ID.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNotCondition is returned when a yes/no branch is requested on a
	// node that is not a condition.
	ErrNotCondition = errors.New("node is not a condition")

	// ErrBranchOccupied is returned when the requested yes/no branch of
	// a condition node already has a child.
	ErrBranchOccupied = errors.New("branch already has a step")

	// ErrChildOccupied is returned when a plain node already has its one
	// allowed child.
	ErrChildOccupied = errors.New("node already has a next step")

	// ErrBranchRequired is returned when a child is added to a condition
	// node without saying which branch it goes on.
	ErrBranchRequired = errors.New("condition nodes require a yes or no branch")

	// ErrHasChildren is returned when deleting a non-condition node that
	// still has descendants.
	ErrHasChildren = errors.New("node has children")

	// ErrNoTiming is returned when timing is set on a condition node.
	ErrNoTiming = errors.New("condition nodes have no timing")

	// ErrReplaceBranched is returned when replacing a condition node
	// that already has branch children, or turning a chained action node
	// into a condition. Branch edges would become semantically invalid.
	ErrReplaceBranched = errors.New("cannot replace a node that already has steps below it")
)

// ValidationError wraps a graph invariant violation with the node it
// concerns. It is a rejection caught before any network call.
type ValidationError struct {
	Op     string
	NodeID string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a graph invariant rejection.
func IsValidation(err error) bool {
	var target *ValidationError

	return errors.As(err, &target)
}

func reject(op, nodeID string, err error) error {
	return &ValidationError{Op: op, NodeID: nodeID, Err: err}
}
