package domain

import "encoding/json"

// GatingMode selects how much process context accompanies a query.
type GatingMode string

// Gating modes.
const (
	// GatingModeNone adds no process context. This is the baseline.
	GatingModeNone GatingMode = "none"

	// GatingModeProcessContext adds a full, unfiltered process overview.
	// It is only used when explicitly forced.
	GatingModeProcessContext GatingMode = "process"

	// GatingModeEnabled adds the local, role-filtered neighbourhood of the
	// user's current step.
	GatingModeEnabled GatingMode = "gating"
)

// IsValid returns true if the mode is recognised.
func (m GatingMode) IsValid() bool {
	switch m {
	case GatingModeNone, GatingModeProcessContext, GatingModeEnabled:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m GatingMode) String() string {
	return string(m)
}

// Gating neighbourhood limits.
const (
	// MaxPredecessors caps the previous steps reported for a position.
	MaxPredecessors = 3

	// MaxSuccessors caps the next steps reported for a position.
	MaxSuccessors = 5

	// MaxHintTasks caps the task names listed in a hint.
	MaxHintTasks = 10

	// MaxOverviewUnassigned caps the lane-less steps listed in an overview hint.
	MaxOverviewUnassigned = 10

	// DefaultGatingDepth is the hop radius of a local view.
	DefaultGatingDepth = 2
)

// LocalView is the neighbourhood of one node as returned by a graph store.
type LocalView struct {
	// Current is the node the user is at.
	Current Node `json:"current"`

	// Predecessors are the nodes reaching Current within the depth, nearest first.
	Predecessors []Node `json:"predecessors"`

	// Successors are the nodes reachable from Current within the depth, nearest
	// first. Gateways carry their branches.
	Successors []Node `json:"successors"`
}

// LabelSet holds the display names resolved for permitted lanes and nodes.
type LabelSet struct {
	Lanes []Lane `json:"lanes"`
	Tasks []Node `json:"tasks"`
}

// LaneNames returns the non-empty lane names in order.
func (l LabelSet) LaneNames() []string {
	out := make([]string, 0, len(l.Lanes))
	for _, ln := range l.Lanes {
		if ln.Name != "" {
			out = append(out, ln.Name)
		}
	}
	return out
}

// TaskNames returns the non-empty task names in order.
func (l LabelSet) TaskNames() []string {
	out := make([]string, 0, len(l.Tasks))
	for _, n := range l.Tasks {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	return out
}

// LaneTasks is a lane together with the nodes it contains.
type LaneTasks struct {
	Lane  Lane   `json:"lane"`
	Nodes []Node `json:"nodes"`
}

// FlowLabel is a sequence flow rendered with node names.
type FlowLabel struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
}

// ProcessOverview is the full inventory of a process.
type ProcessOverview struct {
	// ProcessName is the display name of the process.
	ProcessName string `json:"process_name"`

	// LanesWithTasks lists every lane with its nodes.
	LanesWithTasks []LaneTasks `json:"lanes_with_tasks"`

	// NodesWithoutLane lists nodes assigned to no lane.
	NodesWithoutLane []Node `json:"nodes_without_lane"`

	// Gateways lists every gateway with its branches.
	Gateways []Node `json:"gateways"`

	// Flows lists every sequence flow.
	Flows []FlowLabel `json:"flows"`
}

// NumSteps counts every node in lanes plus those without a lane.
func (o *ProcessOverview) NumSteps() int {
	n := len(o.NodesWithoutLane)
	for _, l := range o.LanesWithTasks {
		n += len(l.Nodes)
	}
	return n
}

// LocalPosition is the role-filtered neighbourhood of the current step.
type LocalPosition struct {
	// Current is nil when the node could not be resolved.
	Current *Node `json:"current,omitempty"`

	// Predecessors holds at most MaxPredecessors non-gateway nodes.
	Predecessors []Node `json:"predecessors"`

	// Successors holds at most MaxSuccessors nodes. Gateway branches are
	// pruned to permitted targets.
	Successors []Node `json:"successors"`

	// AllowedLanes are the lane ids permitted for the roles.
	AllowedLanes []string `json:"allowed_lanes"`

	// AllowedNodes are the node ids permitted for the roles.
	AllowedNodes []string `json:"allowed_nodes"`
}

// NumGateways counts gateway successors.
func (p *LocalPosition) NumGateways() int {
	n := 0
	for _, s := range p.Successors {
		if s.IsGateway() {
			n++
		}
	}
	return n
}

// GatingMetadata holds the counters reported with a gating context.
// Which counters apply depends on ContextType.
type GatingMetadata struct {
	ContextType string

	NumLanes     int
	NumDecisions int
	NumSteps     int

	NumAllowedLanes int
	NumAllowedNodes int
	NumSuccessors   int
	NumGateways     int
	CurrentNode     string
	CurrentLane     string
}

// Map returns the counters relevant to the context type.
func (m GatingMetadata) Map() map[string]any {
	out := map[string]any{"context_type": m.ContextType}
	switch m.ContextType {
	case "overview":
		out["num_lanes"] = m.NumLanes
		out["num_decisions"] = m.NumDecisions
		out["num_steps"] = m.NumSteps
	case "gating":
		out["num_allowed_lanes"] = m.NumAllowedLanes
		out["num_allowed_nodes"] = m.NumAllowedNodes
		out["num_successors"] = m.NumSuccessors
		out["num_gateways"] = m.NumGateways
		out["current_node"] = nilIfEmpty(m.CurrentNode)
		out["current_lane"] = nilIfEmpty(m.CurrentLane)
	}
	return out
}

// MarshalJSON encodes the metadata as its Map.
func (m GatingMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GatingContext is the per-request process context. It is built fresh for
// every request and not modified afterwards.
type GatingContext struct {
	// Mode is the resolved gating mode.
	Mode GatingMode `json:"mode"`

	// ProcessName is the display name used in the hint.
	ProcessName string `json:"process_name,omitempty"`

	// ProcessID is the process the context was built for.
	ProcessID string `json:"process_id,omitempty"`

	// Roles are the principal roles the context was filtered by.
	Roles []string `json:"roles"`

	// Overview is set in GatingModeProcessContext.
	Overview *ProcessOverview `json:"overview,omitempty"`

	// Position is set in GatingModeEnabled.
	Position *LocalPosition `json:"position,omitempty"`

	// Hint is the natural-language context for the generator. Empty in
	// GatingModeNone.
	Hint string `json:"hint"`

	// Metadata holds the counters for this context.
	Metadata GatingMetadata `json:"metadata"`
}

// GatingRequest carries the inputs of one gating computation.
type GatingRequest struct {
	ProcessName         string   `json:"process_name,omitempty"`
	ProcessID           string   `json:"process_id,omitempty"`
	DefinitionID        string   `json:"definition_id,omitempty"`
	CurrentNodeID       string   `json:"current_node_id,omitempty"`
	Roles               []string `json:"roles,omitempty"`
	ForceProcessContext bool     `json:"force_process_context,omitempty"`
}

// PositionDetail is the client-facing summary of a gating position.
type PositionDetail struct {
	Current     string            `json:"current,omitempty"`
	CurrentLane string            `json:"current_lane,omitempty"`
	Successors  []SuccessorDetail `json:"successors"`
}

// SuccessorDetail describes one permitted next step.
type SuccessorDetail struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Kind        NodeKind `json:"type"`
	Description string   `json:"description"`
}

// Detail summarises the position for clients. Returns nil without a position.
func (c *GatingContext) Detail() *PositionDetail {
	if c == nil || c.Position == nil {
		return nil
	}
	d := &PositionDetail{Successors: make([]SuccessorDetail, 0, len(c.Position.Successors))}
	if cur := c.Position.Current; cur != nil {
		d.Current = cur.DisplayName()
		d.CurrentLane = cur.LaneName
	}
	for _, s := range c.Position.Successors {
		d.Successors = append(d.Successors, SuccessorDetail{
			ID:          s.ID,
			Name:        s.DisplayName(),
			Kind:        s.Kind,
			Description: s.Describe(),
		})
	}
	return d
}
