package domain

import "strings"

// NodeKind identifies the BPMN element type of a process node.
// The set is closed: unknown element names map to NodeKindUnknown.
type NodeKind string

// Task-like node kinds.
const (
	NodeKindTask             NodeKind = "task"
	NodeKindUserTask         NodeKind = "userTask"
	NodeKindServiceTask      NodeKind = "serviceTask"
	NodeKindScriptTask       NodeKind = "scriptTask"
	NodeKindManualTask       NodeKind = "manualTask"
	NodeKindReceiveTask      NodeKind = "receiveTask"
	NodeKindSendTask         NodeKind = "sendTask"
	NodeKindBusinessRuleTask NodeKind = "businessRuleTask"
	NodeKindCallActivity     NodeKind = "callActivity"
	NodeKindSubProcess       NodeKind = "subProcess"
)

// Event-like node kinds.
const (
	NodeKindStartEvent             NodeKind = "startEvent"
	NodeKindEndEvent               NodeKind = "endEvent"
	NodeKindIntermediateCatchEvent NodeKind = "intermediateCatchEvent"
	NodeKindIntermediateThrowEvent NodeKind = "intermediateThrowEvent"
	NodeKindBoundaryEvent          NodeKind = "boundaryEvent"
)

// Gateway-like node kinds.
const (
	NodeKindExclusiveGateway  NodeKind = "exclusiveGateway"
	NodeKindParallelGateway   NodeKind = "parallelGateway"
	NodeKindInclusiveGateway  NodeKind = "inclusiveGateway"
	NodeKindEventBasedGateway NodeKind = "eventBasedGateway"
)

// NodeKindUnknown is used for element names outside the supported set.
const NodeKindUnknown NodeKind = "unknown"

// NodeCategory groups node kinds into the three families the engine reasons about.
type NodeCategory int

// Node categories.
const (
	CategoryUnknown NodeCategory = iota
	CategoryTask
	CategoryGateway
	CategoryEvent
)

// String returns the category name.
func (c NodeCategory) String() string {
	switch c {
	case CategoryTask:
		return "task"
	case CategoryGateway:
		return "gateway"
	case CategoryEvent:
		return "event"
	default:
		return "unknown"
	}
}

// ParseNodeKind maps a BPMN element name to a NodeKind.
func ParseNodeKind(s string) NodeKind {
	k := NodeKind(s)
	if k.Category() == CategoryUnknown {
		return NodeKindUnknown
	}
	return k
}

// Category returns the family of the node kind.
func (k NodeKind) Category() NodeCategory {
	switch k {
	case NodeKindTask, NodeKindUserTask, NodeKindServiceTask, NodeKindScriptTask,
		NodeKindManualTask, NodeKindReceiveTask, NodeKindSendTask,
		NodeKindBusinessRuleTask, NodeKindCallActivity, NodeKindSubProcess:
		return CategoryTask
	case NodeKindStartEvent, NodeKindEndEvent, NodeKindIntermediateCatchEvent,
		NodeKindIntermediateThrowEvent, NodeKindBoundaryEvent:
		return CategoryEvent
	case NodeKindExclusiveGateway, NodeKindParallelGateway,
		NodeKindInclusiveGateway, NodeKindEventBasedGateway:
		return CategoryGateway
	default:
		return CategoryUnknown
	}
}

// IsGateway reports whether the kind is a gateway.
func (k NodeKind) IsGateway() bool {
	return k.Category() == CategoryGateway
}

// String returns the BPMN element name.
func (k NodeKind) String() string {
	return string(k)
}

// GatewayLabel returns the human-readable label of a gateway kind.
// Non-gateway kinds return an empty string.
func (k NodeKind) GatewayLabel() string {
	switch k {
	case NodeKindExclusiveGateway:
		return "decision"
	case NodeKindParallelGateway:
		return "parallel execution"
	case NodeKindInclusiveGateway:
		return "optional branch"
	case NodeKindEventBasedGateway:
		return "event-based branch"
	default:
		if k.IsGateway() {
			return "gateway"
		}
		return ""
	}
}

// TypeHint returns a short description of what a node of this kind does,
// used when rendering task lists. Unknown kinds return an empty string.
func (k NodeKind) TypeHint() string {
	switch k {
	case NodeKindUserTask:
		return "manual task"
	case NodeKindServiceTask:
		return "automated"
	case NodeKindTask:
		return "task"
	case NodeKindCallActivity:
		return "subprocess"
	case NodeKindStartEvent:
		return "start"
	case NodeKindEndEvent:
		return "end"
	case NodeKindExclusiveGateway:
		return "decision"
	case NodeKindParallelGateway:
		return "parallel"
	case NodeKindInclusiveGateway:
		return "optional"
	case NodeKindIntermediateCatchEvent:
		return "waits"
	case NodeKindIntermediateThrowEvent:
		return "sends"
	case NodeKindBoundaryEvent:
		return "event"
	default:
		return ""
	}
}

// Definition is an imported BPMN definitions document. It contains one or
// more processes and is the scope used for role-based whitelist lookups.
type Definition struct {
	// ID is the definitions element id.
	ID string `json:"id" yaml:"id"`

	// Name is the display name (defaults to the file name on import).
	Name string `json:"name" yaml:"name"`

	// Filename is the source file the definition was loaded from.
	Filename string `json:"filename" yaml:"filename"`

	// Processes lists the processes contained in this definition.
	Processes []ProcessRef `json:"processes" yaml:"processes"`
}

// ProcessRef identifies a process within a definition.
type ProcessRef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Lane groups process nodes by responsible role or department.
type Lane struct {
	// ID is the lane element id.
	ID string `json:"id" yaml:"id"`

	// Name is the lane label, usually the role name.
	Name string `json:"name" yaml:"name"`

	// ProcessID is the process the lane belongs to.
	ProcessID string `json:"process_id" yaml:"process_id"`

	// NodeIDs lists the nodes directly contained in the lane.
	NodeIDs []string `json:"node_ids" yaml:"node_ids"`
}

// Branch is an outgoing path of a gateway.
type Branch struct {
	// TargetID is the id of the node the branch leads to.
	TargetID string `json:"target_id" yaml:"target_id"`

	// TargetName is the display name of the target node.
	TargetName string `json:"target_name" yaml:"target_name"`

	// TargetKind is the kind of the target node.
	TargetKind NodeKind `json:"target_type" yaml:"target_type"`

	// Condition is the raw condition expression, if any.
	Condition string `json:"condition,omitempty" yaml:"condition"`

	// ConditionName is the label of the sequence flow, if any.
	ConditionName string `json:"condition_name,omitempty" yaml:"condition_name"`
}

// Describe renders the branch for a prompt hint.
// The condition name wins over the raw expression, which wins over a bare arrow.
func (b Branch) Describe() string {
	target := b.TargetName
	if target == "" {
		target = b.TargetID
	}
	switch {
	case b.ConditionName != "":
		return "If '" + b.ConditionName + "': → " + target
	case b.Condition != "":
		return "If " + b.Condition + ": → " + target
	default:
		return "→ " + target
	}
}

// Node is a flow node of a process.
type Node struct {
	// ID is unique within the process.
	ID string `json:"id" yaml:"id"`

	// Name is the display label. May be empty.
	Name string `json:"name" yaml:"name"`

	// Kind is the BPMN element type.
	Kind NodeKind `json:"type" yaml:"type"`

	// Description is optional documentation attached to the node.
	Description string `json:"description,omitempty" yaml:"description"`

	// LaneID is the lane containing the node, empty if none.
	LaneID string `json:"lane_id,omitempty" yaml:"lane_id"`

	// LaneName is the name of the containing lane, empty if none.
	LaneName string `json:"lane_name,omitempty" yaml:"lane_name"`

	// Branches holds the outgoing paths. Only populated for gateways.
	Branches []Branch `json:"branches,omitempty" yaml:"branches"`
}

// DisplayName returns the name, falling back to the id.
func (n Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// IsGateway reports whether the node is a gateway.
func (n Node) IsGateway() bool {
	return n.Kind.IsGateway()
}

// Describe renders the node for a hint. Gateways include their type label and
// every branch; other nodes render as their display name.
func (n Node) Describe() string {
	if !n.IsGateway() {
		return n.DisplayName()
	}
	head := n.Kind.GatewayLabel() + " '" + n.DisplayName() + "'"
	if len(n.Branches) == 0 {
		return head
	}
	descs := make([]string, len(n.Branches))
	for i, b := range n.Branches {
		descs[i] = b.Describe()
	}
	return head + ": " + strings.Join(descs, "; ")
}

// Flow is a directed sequence flow between two nodes.
type Flow struct {
	// ID is the sequence flow element id.
	ID string `json:"id" yaml:"id"`

	// SourceID is the node the flow starts at.
	SourceID string `json:"source" yaml:"source"`

	// TargetID is the node the flow ends at.
	TargetID string `json:"target" yaml:"target"`

	// Name is the flow label. For gateway outputs this is the condition name.
	Name string `json:"name,omitempty" yaml:"name"`

	// Condition is the condition expression, if any.
	Condition string `json:"condition,omitempty" yaml:"condition"`
}

// ProcessImport is one process with its elements, as written by an importer.
type ProcessImport struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Nodes []Node `yaml:"nodes"`
	Flows []Flow `yaml:"flows"`
	Lanes []Lane `yaml:"lanes"`
}
