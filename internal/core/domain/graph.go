package domain

// ProcessGraph is an in-memory adjacency view over one process.
// Nodes live in a slice and edges refer to them by index, so cycles in the
// process never create reference loops.
type ProcessGraph struct {
	// ProcessID identifies the process.
	ProcessID string

	// Name is the process display name.
	Name string

	nodes []Node
	idx   map[string]int
	out   [][]edge
	in    [][]edge
	flows []Flow
	lanes []Lane
}

type edge struct {
	to   int
	flow int
}

// Reach is a node found by a bounded traversal together with its hop distance.
type Reach struct {
	NodeID string
	Hops   int
}

// NewProcessGraph builds a graph from nodes, flows and lanes.
// Flows that refer to unknown nodes are ignored. Lane membership overrides
// the LaneID/LaneName fields of the supplied nodes.
func NewProcessGraph(processID, name string, nodes []Node, flows []Flow, lanes []Lane) *ProcessGraph {
	g := &ProcessGraph{
		ProcessID: processID,
		Name:      name,
		nodes:     make([]Node, len(nodes)),
		idx:       make(map[string]int, len(nodes)),
		out:       make([][]edge, len(nodes)),
		in:        make([][]edge, len(nodes)),
		lanes:     lanes,
	}
	copy(g.nodes, nodes)
	for i, n := range g.nodes {
		g.idx[n.ID] = i
		g.nodes[i].Branches = nil
	}

	for _, l := range lanes {
		for _, nid := range l.NodeIDs {
			if i, ok := g.idx[nid]; ok {
				g.nodes[i].LaneID = l.ID
				g.nodes[i].LaneName = l.Name
			}
		}
	}

	for _, f := range flows {
		from, ok1 := g.idx[f.SourceID]
		to, ok2 := g.idx[f.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		fi := len(g.flows)
		g.flows = append(g.flows, f)
		g.out[from] = append(g.out[from], edge{to: to, flow: fi})
		g.in[to] = append(g.in[to], edge{to: from, flow: fi})

		if g.nodes[from].IsGateway() {
			target := g.nodes[to]
			g.nodes[from].Branches = append(g.nodes[from].Branches, Branch{
				TargetID:      target.ID,
				TargetName:    target.DisplayName(),
				TargetKind:    target.Kind,
				Condition:     f.Condition,
				ConditionName: f.Name,
			})
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *ProcessGraph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given id.
func (g *ProcessGraph) Node(id string) (Node, bool) {
	i, ok := g.idx[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns every node in insertion order.
func (g *ProcessGraph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Lanes returns the lanes of the process.
func (g *ProcessGraph) Lanes() []Lane {
	return g.lanes
}

// Successors walks outgoing flows breadth-first up to maxDepth hops.
// Each node is reported once, at its shortest distance. The start node is
// never included, even when a cycle leads back to it.
func (g *ProcessGraph) Successors(id string, maxDepth int) []Reach {
	return g.walk(id, maxDepth, g.out)
}

// Predecessors walks incoming flows breadth-first up to maxDepth hops.
func (g *ProcessGraph) Predecessors(id string, maxDepth int) []Reach {
	return g.walk(id, maxDepth, g.in)
}

func (g *ProcessGraph) walk(id string, maxDepth int, adj [][]edge) []Reach {
	start, ok := g.idx[id]
	if !ok || maxDepth < 1 {
		return nil
	}

	visited := make([]bool, len(g.nodes))
	visited[start] = true
	frontier := []int{start}
	var result []Reach

	for hops := 1; hops <= maxDepth && len(frontier) > 0; hops++ {
		var next []int
		for _, cur := range frontier {
			for _, e := range adj[cur] {
				if visited[e.to] {
					continue
				}
				visited[e.to] = true
				next = append(next, e.to)
				result = append(result, Reach{NodeID: g.nodes[e.to].ID, Hops: hops})
			}
		}
		frontier = next
	}
	return result
}

// Flows returns every flow whose endpoints are known nodes.
func (g *ProcessGraph) Flows() []Flow {
	out := make([]Flow, len(g.flows))
	copy(out, g.flows)
	return out
}

// Gateways returns every gateway node with its branches.
func (g *ProcessGraph) Gateways() []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.IsGateway() {
			out = append(out, n)
		}
	}
	return out
}

// LocalView returns the node with its neighbourhood up to maxDepth hops in
// both directions, nearest first.
func (g *ProcessGraph) LocalView(id string, maxDepth int) (*LocalView, bool) {
	cur, ok := g.Node(id)
	if !ok {
		return nil, false
	}
	return &LocalView{
		Current:      cur,
		Predecessors: g.resolve(g.Predecessors(id, maxDepth)),
		Successors:   g.resolve(g.Successors(id, maxDepth)),
	}, true
}

func (g *ProcessGraph) resolve(reach []Reach) []Node {
	out := make([]Node, 0, len(reach))
	for _, r := range reach {
		out = append(out, g.nodes[g.idx[r.NodeID]])
	}
	return out
}

// Labels resolves lane and node ids to their records, in process order.
// Unknown ids are skipped.
func (g *ProcessGraph) Labels(laneIDs, nodeIDs []string) *LabelSet {
	lanes := toSet(laneIDs)
	nodes := toSet(nodeIDs)
	ls := &LabelSet{Lanes: []Lane{}, Tasks: []Node{}}
	for _, l := range g.lanes {
		if _, ok := lanes[l.ID]; ok {
			ls.Lanes = append(ls.Lanes, l)
		}
	}
	for _, n := range g.nodes {
		if _, ok := nodes[n.ID]; ok {
			ls.Tasks = append(ls.Tasks, n)
		}
	}
	return ls
}

// Overview returns the full inventory of the process.
func (g *ProcessGraph) Overview() *ProcessOverview {
	o := &ProcessOverview{
		ProcessName:      g.Name,
		LanesWithTasks:   make([]LaneTasks, 0, len(g.lanes)),
		NodesWithoutLane: []Node{},
		Gateways:         []Node{},
		Flows:            make([]FlowLabel, 0, len(g.flows)),
	}
	for _, l := range g.lanes {
		lt := LaneTasks{Lane: l, Nodes: []Node{}}
		for _, nid := range l.NodeIDs {
			if i, ok := g.idx[nid]; ok {
				lt.Nodes = append(lt.Nodes, g.nodes[i])
			}
		}
		o.LanesWithTasks = append(o.LanesWithTasks, lt)
	}
	for _, n := range g.nodes {
		if n.LaneID == "" {
			o.NodesWithoutLane = append(o.NodesWithoutLane, n)
		}
		if n.IsGateway() {
			o.Gateways = append(o.Gateways, n)
		}
	}
	for _, f := range g.flows {
		from, _ := g.Node(f.SourceID)
		to, _ := g.Node(f.TargetID)
		cond := f.Name
		if cond == "" {
			cond = f.Condition
		}
		o.Flows = append(o.Flows, FlowLabel{From: from.DisplayName(), To: to.DisplayName(), Condition: cond})
	}
	return o
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
