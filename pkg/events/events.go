// Package events defines event types for campaign flow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/outflowhq/outflow/pkg/models"
)

type EventType string

const Topic = "outflow.flow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowSavedEvent    EventType = "flow.saved"
	NodeMovedEvent    EventType = "flow.node.moved"
	NodeDeletedEvent  EventType = "flow.node.deleted"
	NodeReplacedEvent EventType = "flow.node.replaced"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	CampaignID string         `json:"campaign_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBase stamps a fresh event envelope for a campaign.
func NewBase(campaignID string, eventType EventType) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		CampaignID: campaignID,
	}
}

// FlowSaved is published after a full-graph save is persisted.
type FlowSaved struct {
	BaseEvent

	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

func (f FlowSaved) GetType() EventType {
	return FlowSavedEvent
}

// NodeMoved is published after an incremental position update.
type NodeMoved struct {
	BaseEvent

	NodeID string  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (n NodeMoved) GetType() EventType {
	return NodeMovedEvent
}

// NodeDeleted is published after a node delete, with the IDs of every
// node removed by the cascade.
type NodeDeleted struct {
	BaseEvent

	NodeID  string   `json:"node_id"`
	Removed []string `json:"removed"`
}

func (n NodeDeleted) GetType() EventType {
	return NodeDeletedEvent
}

// NodeReplaced is published after a node's kind is swapped in place.
type NodeReplaced struct {
	BaseEvent

	NodeID  string          `json:"node_id"`
	OldKind models.NodeKind `json:"old_kind"`
	NewKind models.NodeKind `json:"new_kind"`
}

func (n NodeReplaced) GetType() EventType {
	return NodeReplacedEvent
}
