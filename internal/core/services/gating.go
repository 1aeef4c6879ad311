package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Ensure GatingService implements the interface.
var _ driving.GatingService = (*GatingService)(nil)

// Gating metadata context types.
const (
	contextTypeNone     = "none"
	contextTypeOverview = "overview"
	contextTypeGating   = "gating"
)

// GatingService builds the process context of a request. Lookups that fail
// are logged and leave their part of the context empty; Build never fails.
type GatingService struct {
	graphs     driven.ProcessGraphStore
	whitelists driving.WhitelistService
	metrics    driven.MetricsRecorder
	maxDepth   int
}

// NewGatingService creates a gating context builder.
func NewGatingService(
	graphs driven.ProcessGraphStore, whitelists driving.WhitelistService, settings domain.GatingSettings,
) *GatingService {
	depth := settings.MaxDepth
	if depth < 1 {
		depth = domain.DefaultGatingDepth
	}
	return &GatingService{
		graphs:     graphs,
		whitelists: whitelists,
		metrics:    nopMetrics{},
		maxDepth:   depth,
	}
}

// SetMetrics sets the metrics recorder.
func (s *GatingService) SetMetrics(m driven.MetricsRecorder) {
	s.metrics = metricsOrNop(m)
}

// Build computes the gating context for a request.
func (s *GatingService) Build(ctx context.Context, req domain.GatingRequest) *domain.GatingContext {
	mode := ResolveGatingMode(req.CurrentNodeID, req.ForceProcessContext)

	gc := &domain.GatingContext{
		Mode:        mode,
		ProcessName: req.ProcessName,
		ProcessID:   req.ProcessID,
		Roles:       cleanRoles(req.Roles),
		Metadata:    domain.GatingMetadata{ContextType: contextTypeNone},
	}
	if mode == domain.GatingModeNone {
		return gc
	}

	s.resolveProcess(ctx, gc)

	if mode == domain.GatingModeProcessContext {
		s.buildOverview(ctx, gc)
		return gc
	}
	s.buildPosition(ctx, gc, req)
	return gc
}

// resolveProcess fills in whichever of process id and name is missing.
func (s *GatingService) resolveProcess(ctx context.Context, gc *domain.GatingContext) {
	if gc.ProcessID != "" && gc.ProcessName != "" {
		return
	}
	defs, err := s.graphs.Definitions(ctx)
	if err != nil {
		logger.Info("Gating: definitions lookup failed: %v", err)
		s.metrics.GatingDegraded("definitions")
		return
	}
	for _, d := range defs {
		for _, p := range d.Processes {
			switch {
			case gc.ProcessID != "" && p.ID == gc.ProcessID:
				gc.ProcessName = p.Name
				return
			case gc.ProcessID == "" && gc.ProcessName != "" && p.Name == gc.ProcessName:
				gc.ProcessID = p.ID
				return
			}
		}
	}
}

func (s *GatingService) buildOverview(ctx context.Context, gc *domain.GatingContext) {
	ov := &domain.ProcessOverview{
		ProcessName:      gc.ProcessName,
		LanesWithTasks:   []domain.LaneTasks{},
		NodesWithoutLane: []domain.Node{},
		Gateways:         []domain.Node{},
		Flows:            []domain.FlowLabel{},
	}

	if gc.ProcessID != "" {
		got, err := s.graphs.Overview(ctx, gc.ProcessID)
		if err != nil {
			logger.Info("Gating: process overview failed: %v", err)
			s.metrics.GatingDegraded("overview")
		} else {
			ov = got
			if ov.ProcessName == "" {
				ov.ProcessName = gc.ProcessName
			}
		}
	}

	gc.Overview = ov
	gc.Hint = overviewHint(gc)
	gc.Metadata = domain.GatingMetadata{
		ContextType:  contextTypeOverview,
		NumLanes:     len(ov.LanesWithTasks),
		NumDecisions: len(ov.Gateways),
		NumSteps:     ov.NumSteps(),
	}
}

func (s *GatingService) buildPosition(ctx context.Context, gc *domain.GatingContext, req domain.GatingRequest) {
	pos := &domain.LocalPosition{
		Predecessors: []domain.Node{},
		Successors:   []domain.Node{},
		AllowedLanes: []string{},
		AllowedNodes: []string{},
	}

	definitionID := req.DefinitionID
	if definitionID == "" && (gc.ProcessID != "" || gc.ProcessName != "") {
		var (
			id  string
			err error
		)
		if gc.ProcessID != "" {
			id, err = s.graphs.DefinitionForProcess(ctx, gc.ProcessID)
		} else {
			// The name may be a definition name rather than a process name.
			id, err = s.graphs.DefinitionByProcessName(ctx, gc.ProcessName)
		}
		if err != nil {
			logger.Info("Gating: definition lookup failed: %v", err)
		} else {
			definitionID = id
		}
	}

	if definitionID != "" && len(gc.Roles) > 0 {
		grant, err := s.whitelists.AllowedForPrincipal(ctx, definitionID, gc.Roles)
		if err != nil {
			logger.Info("Gating: whitelist lookup failed: %v", err)
			s.metrics.GatingDegraded("whitelist")
		} else {
			pos.AllowedLanes = grant.LaneIDs
			pos.AllowedNodes = grant.NodeIDs
			logger.Debug("Gating: %d lanes, %d nodes for %v", len(pos.AllowedLanes), len(pos.AllowedNodes), gc.Roles)
		}
	}

	if gc.ProcessID != "" {
		view, err := s.graphs.LocalView(ctx, gc.ProcessID, req.CurrentNodeID, s.maxDepth)
		if err != nil {
			logger.Info("Gating: local view failed: %v", err)
			s.metrics.GatingDegraded("local_view")
		} else {
			cur := view.Current
			pos.Current = &cur
			pos.Predecessors = predecessors(view.Predecessors)
			pos.Successors = filterSuccessors(view.Successors, pos.AllowedLanes, pos.AllowedNodes)
		}
	}

	var labels *domain.LabelSet
	if gc.ProcessID != "" && (len(pos.AllowedLanes) > 0 || len(pos.AllowedNodes) > 0) {
		ls, err := s.graphs.LaneAndTaskLabels(ctx, gc.ProcessID, pos.AllowedLanes, pos.AllowedNodes)
		if err != nil {
			logger.Info("Gating: lane and task labels failed: %v", err)
			s.metrics.GatingDegraded("labels")
		} else {
			labels = ls
		}
	}

	gc.Position = pos
	gc.Hint = gatingHint(gc, labels)

	md := domain.GatingMetadata{
		ContextType:     contextTypeGating,
		NumAllowedLanes: len(pos.AllowedLanes),
		NumAllowedNodes: len(pos.AllowedNodes),
		NumSuccessors:   len(pos.Successors),
		NumGateways:     pos.NumGateways(),
	}
	if pos.Current != nil {
		md.CurrentNode = pos.Current.DisplayName()
		md.CurrentLane = pos.Current.LaneName
	}
	gc.Metadata = md
}

// predecessors keeps the nearest previous steps, dropping gateways.
func predecessors(raw []domain.Node) []domain.Node {
	if len(raw) > domain.MaxPredecessors {
		raw = raw[:domain.MaxPredecessors]
	}
	out := make([]domain.Node, 0, len(raw))
	for _, n := range raw {
		if !n.IsGateway() {
			out = append(out, n)
		}
	}
	return out
}

// filterSuccessors restricts next steps to the permitted lanes and nodes.
// Gateways are always kept with their branches pruned to permitted targets.
// An empty node set disables node-level pruning.
func filterSuccessors(raw []domain.Node, lanes, nodes []string) []domain.Node {
	out := make([]domain.Node, 0, len(raw))
	if len(lanes) == 0 && len(nodes) == 0 {
		out = append(out, raw...)
	} else {
		laneSet := toSet(lanes)
		nodeSet := toSet(nodes)
		for _, n := range raw {
			if n.IsGateway() {
				out = append(out, pruneBranches(n, nodeSet))
				continue
			}
			if nodeSet[n.ID] || laneSet[n.LaneID] || len(nodeSet) == 0 {
				out = append(out, n)
			}
		}
	}
	if len(out) > domain.MaxSuccessors {
		out = out[:domain.MaxSuccessors]
	}
	return out
}

func pruneBranches(gw domain.Node, nodes map[string]bool) domain.Node {
	if len(nodes) == 0 || len(gw.Branches) == 0 {
		return gw
	}
	kept := make([]domain.Branch, 0, len(gw.Branches))
	for _, b := range gw.Branches {
		if nodes[b.TargetID] {
			kept = append(kept, b)
		}
	}
	gw.Branches = kept
	return gw
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func cleanRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
