package models

import "time"

// Timing bounds. WaitTime is stored in minutes and is always a whole
// number of days; Duration is stored in days.
const (
	MinutesPerDay   = 1440
	MinWaitMinutes  = MinutesPerDay
	MinDurationDays = 1
)

// Position is a node's canvas coordinate. It is authoritative for render
// when present; the layout engine fills it in when absent.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BranchLabel tags an edge leaving a condition node.
type BranchLabel string

const (
	BranchNone BranchLabel = ""
	BranchYes  BranchLabel = "yes"
	BranchNo   BranchLabel = "no"
)

// FlowNode is one step in a campaign flow.
//
// Exactly one of WaitTime and Duration is meaningful: WaitTime (minutes,
// a positive multiple of MinutesPerDay) for wait nodes, Duration (days,
// >= 1) for other action nodes. Condition nodes carry neither.
type FlowNode struct {
	ID       string    `json:"id"       validate:"required"`
	Kind     NodeKind  `json:"kind"     validate:"required"`
	Label    string    `json:"label"`
	Subtitle string    `json:"subtitle"`
	Content  string    `json:"content,omitempty"`
	Position *Position `json:"position,omitempty"`
	WaitTime int       `json:"wait_time,omitempty"`
	Duration int       `json:"duration,omitempty"`
}

// IsCondition reports whether the node branches the flow.
func (n *FlowNode) IsCondition() bool {
	return IsCondition(n.Kind)
}

// FlowEdge is a directed connection between two flow nodes. The ID is
// derived from the endpoints so re-deriving the edge set is idempotent.
type FlowEdge struct {
	ID     string      `json:"id"`
	Source string      `json:"source" validate:"required"`
	Target string      `json:"target" validate:"required"`
	Branch BranchLabel `json:"label,omitempty"`
}

// EdgeID derives the deterministic edge identifier for a source/target pair.
func EdgeID(source, target string) string {
	return source + "-" + target
}

// NewFlowNode builds a node of the given kind with catalog display text
// and default timing for its kind.
func NewFlowNode(id string, kind NodeKind) *FlowNode {
	node := &FlowNode{
		ID:       id,
		Kind:     kind,
		Label:    LabelFor(kind),
		Subtitle: SubtitleFor(kind),
	}

	node.ResetTiming()

	return node
}

// ResetTiming restores the timing fields to the defaults for the node's
// kind: wait nodes get one day of wait time, other actions a one day
// duration, conditions neither.
func (n *FlowNode) ResetTiming() {
	n.WaitTime = 0
	n.Duration = 0

	switch {
	case n.Kind == KindWait:
		n.WaitTime = MinWaitMinutes
	case !n.IsCondition():
		n.Duration = MinDurationDays
	}
}

// NormalizeTiming clamps the timing fields to the rules for the node's
// kind: wait times snap down to whole days with a one day floor, action
// durations floor at one day, conditions carry neither.
func (n *FlowNode) NormalizeTiming() {
	switch {
	case n.Kind == KindWait:
		n.WaitTime -= n.WaitTime % MinutesPerDay
		if n.WaitTime < MinWaitMinutes {
			n.WaitTime = MinWaitMinutes
		}

		n.Duration = 0
	case !n.IsCondition():
		if n.Duration < MinDurationDays {
			n.Duration = MinDurationDays
		}

		n.WaitTime = 0
	default:
		n.WaitTime = 0
		n.Duration = 0
	}
}

// CampaignFlow is the backend-authoritative flow for one campaign.
type CampaignFlow struct {
	CampaignID string      `json:"campaign_id" validate:"required"`
	Nodes      []*FlowNode `json:"nodes"`
	Edges      []*FlowEdge `json:"edges"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// DeleteResult is the backend's answer to a node delete request.
// Status false is a refusal with a human-readable reason, not an error.
type DeleteResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}
