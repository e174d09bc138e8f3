package models

// Wire representation of a campaign flow, as exchanged with the editor
// frontend over the campaigns API.

// NodeDTO is the wire shape of a flow node.
type NodeDTO struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Position *Position   `json:"position,omitempty"`
	Data     NodeDataDTO `json:"data"`
}

// NodeDataDTO carries the display and timing payload of a node.
type NodeDataDTO struct {
	Label       string `json:"label"`
	IconType    string `json:"iconType"`
	ActionKey   string `json:"action_key"`
	Subtitle    string `json:"subtitle"`
	Content     string `json:"content,omitempty"`
	IsCondition bool   `json:"isCondition"`
	WaitTime    *int   `json:"wait_time,omitempty"`
	Duration    *int   `json:"duration,omitempty"`
}

// EdgeDTO is the wire shape of a flow edge.
type EdgeDTO struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Label        string `json:"label,omitempty"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// Node type discriminators on the wire.
const (
	NodeTypeAction    = "action"
	NodeTypeCondition = "condition"
)

// ToDTO converts a node to its wire shape.
func (n *FlowNode) ToDTO() NodeDTO {
	nodeType := NodeTypeAction
	if n.IsCondition() {
		nodeType = NodeTypeCondition
	}

	data := NodeDataDTO{
		Label:       n.Label,
		IconType:    string(n.Kind),
		ActionKey:   string(n.Kind),
		Subtitle:    n.Subtitle,
		Content:     n.Content,
		IsCondition: n.IsCondition(),
	}

	if n.WaitTime > 0 {
		waitTime := n.WaitTime
		data.WaitTime = &waitTime
	}

	if n.Duration > 0 {
		duration := n.Duration
		data.Duration = &duration
	}

	return NodeDTO{
		ID:       n.ID,
		Type:     nodeType,
		Position: n.Position,
		Data:     data,
	}
}

// NodeFromDTO converts a wire node back to the domain model. The kind is
// taken from action_key, falling back to iconType for older payloads.
func NodeFromDTO(dto NodeDTO) *FlowNode {
	kind := NodeKind(dto.Data.ActionKey)
	if kind == "" {
		kind = NodeKind(dto.Data.IconType)
	}

	node := &FlowNode{
		ID:       dto.ID,
		Kind:     kind,
		Label:    dto.Data.Label,
		Subtitle: dto.Data.Subtitle,
		Content:  dto.Data.Content,
		Position: dto.Position,
	}

	if node.Label == "" {
		node.Label = LabelFor(kind)
	}

	if node.Subtitle == "" {
		node.Subtitle = SubtitleFor(kind)
	}

	if dto.Data.WaitTime != nil {
		node.WaitTime = *dto.Data.WaitTime
	}

	if dto.Data.Duration != nil {
		node.Duration = *dto.Data.Duration
	}

	return node
}

// ToDTO converts an edge to its wire shape. The branch label doubles as
// the source handle so the canvas knows which port the edge leaves from.
func (e *FlowEdge) ToDTO() EdgeDTO {
	return EdgeDTO{
		ID:           e.ID,
		Source:       e.Source,
		Target:       e.Target,
		Label:        string(e.Branch),
		SourceHandle: string(e.Branch),
	}
}

// EdgeFromDTO converts a wire edge back to the domain model, re-deriving
// the deterministic edge ID.
func EdgeFromDTO(dto EdgeDTO) *FlowEdge {
	branch := BranchLabel(dto.Label)
	if branch == BranchNone {
		branch = BranchLabel(dto.SourceHandle)
	}

	return &FlowEdge{
		ID:     EdgeID(dto.Source, dto.Target),
		Source: dto.Source,
		Target: dto.Target,
		Branch: branch,
	}
}

// FlowToDTOs converts a campaign flow to wire node and edge lists.
func FlowToDTOs(flow *CampaignFlow) ([]NodeDTO, []EdgeDTO) {
	nodes := make([]NodeDTO, 0, len(flow.Nodes))
	for _, node := range flow.Nodes {
		nodes = append(nodes, node.ToDTO())
	}

	edges := make([]EdgeDTO, 0, len(flow.Edges))
	for _, edge := range flow.Edges {
		edges = append(edges, edge.ToDTO())
	}

	return nodes, edges
}

// FlowFromDTOs builds a campaign flow from wire node and edge lists.
func FlowFromDTOs(campaignID string, nodes []NodeDTO, edges []EdgeDTO) *CampaignFlow {
	flow := &CampaignFlow{
		CampaignID: campaignID,
		Nodes:      make([]*FlowNode, 0, len(nodes)),
		Edges:      make([]*FlowEdge, 0, len(edges)),
	}

	for _, dto := range nodes {
		flow.Nodes = append(flow.Nodes, NodeFromDTO(dto))
	}

	for _, dto := range edges {
		flow.Edges = append(flow.Edges, EdgeFromDTO(dto))
	}

	return flow
}
