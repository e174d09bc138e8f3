package flow

import "github.com/outflowhq/outflow/pkg/models"

// SelectorState says what the node-kind selector drawer is currently
// for. It replaces scattered "is the drawer open" flags with one tagged
// value the editor passes around explicitly.
type SelectorState int

const (
	// SelectorIdle means the drawer is closed.
	SelectorIdle SelectorState = iota

	// SelectorAwaitingChoice means the drawer is open to pick the kind
	// of a new node: a root when TargetID is empty, otherwise a child of
	// TargetID on Branch.
	SelectorAwaitingChoice

	// SelectorReplacing means the drawer is open to pick the replacement
	// kind for TargetID.
	SelectorReplacing
)

// Selector is the drawer's full state. Only the fields meaningful for
// State are set.
type Selector struct {
	State    SelectorState
	TargetID string
	Branch   models.BranchLabel
}

// IdleSelector returns the closed-drawer state.
func IdleSelector() Selector {
	return Selector{State: SelectorIdle}
}

// RootSelector opens the drawer to choose the first node of the flow.
func RootSelector() Selector {
	return Selector{State: SelectorAwaitingChoice}
}

// ChildSelector opens the drawer to choose a child of target on branch.
func ChildSelector(targetID string, branch models.BranchLabel) Selector {
	return Selector{State: SelectorAwaitingChoice, TargetID: targetID, Branch: branch}
}

// ReplaceSelector opens the drawer to choose a replacement kind for target.
func ReplaceSelector(targetID string) Selector {
	return Selector{State: SelectorReplacing, TargetID: targetID}
}
