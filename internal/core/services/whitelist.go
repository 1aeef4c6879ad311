package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Ensure WhitelistService implements the interface.
var _ driving.WhitelistService = (*WhitelistService)(nil)

// WhitelistService computes role permissions over process graphs.
type WhitelistService struct {
	store  driven.WhitelistStore
	graphs driven.ProcessGraphStore
	locks  *keyedMutex
}

// NewWhitelistService creates a new whitelist service.
func NewWhitelistService(store driven.WhitelistStore, graphs driven.ProcessGraphStore) *WhitelistService {
	return &WhitelistService{
		store:  store,
		graphs: graphs,
		locks:  newKeyedMutex(),
	}
}

// Upsert validates and stores a whitelist. Writes to the same id are
// serialized; writes to different ids proceed in parallel.
func (s *WhitelistService) Upsert(ctx context.Context, wl domain.Whitelist) error {
	if err := wl.Validate(); err != nil {
		return err
	}
	wl = wl.Normalized()

	unlock := s.locks.Lock(wl.ID)
	defer unlock()

	if err := s.store.Upsert(ctx, wl); err != nil {
		return fmt.Errorf("upsert whitelist %s: %w", wl.ID, err)
	}
	logger.Debug("Whitelist %s: %d nodes, %d lanes, %d principals",
		wl.ID, len(wl.AllowNodes), len(wl.AllowLanes), len(wl.Principals))
	return nil
}

// Get retrieves a whitelist by id.
func (s *WhitelistService) Get(ctx context.Context, id string) (*domain.Whitelist, error) {
	return s.store.Get(ctx, id)
}

// ListForDefinition returns every whitelist for the processes of a definition.
func (s *WhitelistService) ListForDefinition(ctx context.Context, definitionID string) ([]domain.Whitelist, error) {
	return s.store.ListForDefinition(ctx, definitionID)
}

// WhitelistsForPrincipal returns the ids of whitelists bound to a role.
func (s *WhitelistService) WhitelistsForPrincipal(ctx context.Context, role string) ([]string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return []string{}, nil
	}
	ids, err := s.store.IDsForPrincipal(ctx, role)
	if err != nil {
		return []string{}, fmt.Errorf("whitelists for %s: %w", role, err)
	}
	return ids, nil
}

// AllowedNodesUnion unions what the whitelists permit inside a process.
// Unknown whitelist ids contribute nothing. The call only reads.
func (s *WhitelistService) AllowedNodesUnion(
	ctx context.Context, ids []string, processID string,
) (domain.AllowedSet, error) {
	set := domain.NewAllowedSet()
	for _, id := range ids {
		grant, err := s.store.AllowedNodes(ctx, id, processID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Whitelist %s not found, skipping", id)
			continue
		}
		if err != nil {
			return domain.NewAllowedSet(), fmt.Errorf("allowed nodes for %s: %w", id, err)
		}
		for _, n := range grant.Direct {
			set.NodeIDs[n] = struct{}{}
		}
		for _, n := range grant.ViaLanes {
			set.NodeIDs[n] = struct{}{}
		}
		for _, l := range grant.Lanes {
			set.LaneIDs[l] = struct{}{}
		}
		for _, t := range grant.Types {
			set.Types[t] = struct{}{}
		}
	}
	return set, nil
}

// NextAllowed returns the permitted nodes reachable from the current node
// within maxDepth hops, nearest first then by name. With nothing permitted
// the graph is never queried.
func (s *WhitelistService) NextAllowed(
	ctx context.Context, processID, currentNodeID string, ids []string, maxDepth int,
) ([]domain.ReachableNode, error) {
	out := []domain.ReachableNode{}

	set, err := s.AllowedNodesUnion(ctx, ids, processID)
	if err != nil {
		return out, err
	}
	if len(set.NodeIDs) == 0 {
		return out, nil
	}
	if maxDepth < 1 {
		maxDepth = 1
	}

	reach, err := s.graphs.Paths(ctx, processID, currentNodeID, maxDepth)
	if err != nil {
		return out, fmt.Errorf("paths from %s: %w", currentNodeID, err)
	}

	hops := make(map[string]int, len(reach))
	permitted := make([]string, 0, len(reach))
	for _, r := range reach {
		if set.HasNode(r.NodeID) {
			hops[r.NodeID] = r.Hops
			permitted = append(permitted, r.NodeID)
		}
	}
	if len(permitted) == 0 {
		return out, nil
	}

	labels, err := s.graphs.LaneAndTaskLabels(ctx, processID, nil, permitted)
	if err != nil {
		return out, fmt.Errorf("labels for %s: %w", processID, err)
	}
	for _, n := range labels.Tasks {
		if !set.HasType(n.Kind.String()) {
			continue
		}
		out = append(out, domain.ReachableNode{ID: n.ID, Name: n.Name, Kind: n.Kind, Hops: hops[n.ID]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hops != out[j].Hops {
			return out[i].Hops < out[j].Hops
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// AllowedForPrincipal aggregates the lanes and nodes that any of the roles
// may see across a definition. No roles means no permissions.
func (s *WhitelistService) AllowedForPrincipal(
	ctx context.Context, definitionID string, roles []string,
) (domain.PrincipalGrant, error) {
	empty := domain.PrincipalGrant{NodeIDs: []string{}, LaneIDs: []string{}}

	wanted := make(map[string]bool, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			wanted[r] = true
		}
	}
	if len(wanted) == 0 {
		return empty, nil
	}

	whitelists, err := s.store.ListForDefinition(ctx, definitionID)
	if err != nil {
		return empty, fmt.Errorf("whitelists for definition %s: %w", definitionID, err)
	}

	set := domain.NewAllowedSet()
	for _, wl := range whitelists {
		if !boundToAny(wl, wanted) {
			continue
		}
		grant, err := s.store.AllowedNodes(ctx, wl.ID, wl.ProcessID)
		if err != nil {
			return empty, fmt.Errorf("allowed nodes for %s: %w", wl.ID, err)
		}
		for _, l := range grant.Lanes {
			set.LaneIDs[l] = struct{}{}
		}
		for _, n := range grant.Direct {
			set.NodeIDs[n] = struct{}{}
		}
		for _, n := range grant.ViaLanes {
			set.NodeIDs[n] = struct{}{}
		}
	}

	return domain.PrincipalGrant{NodeIDs: set.SortedNodeIDs(), LaneIDs: set.SortedLaneIDs()}, nil
}

func boundToAny(wl domain.Whitelist, roles map[string]bool) bool {
	for _, p := range wl.Principals {
		if roles[p] {
			return true
		}
	}
	return false
}

// CreateDefaults writes one whitelist per lane, bound to the lane name as
// role. A process without lanes gets a single whitelist over all its nodes
// with no principals.
func (s *WhitelistService) CreateDefaults(
	ctx context.Context, definitionID string,
) (domain.DefaultWhitelistResult, error) {
	var res domain.DefaultWhitelistResult

	pids, err := s.graphs.ProcessesForDefinition(ctx, definitionID)
	if err != nil {
		return res, fmt.Errorf("processes for %s: %w", definitionID, err)
	}

	for _, pid := range pids {
		lanes, err := s.graphs.Lanes(ctx, pid)
		if err != nil {
			return res, fmt.Errorf("lanes for %s: %w", pid, err)
		}

		if len(lanes) == 0 {
			g, err := s.graphs.Graph(ctx, pid)
			if err != nil {
				return res, fmt.Errorf("graph for %s: %w", pid, err)
			}
			nodes := g.Nodes()
			all := make([]string, len(nodes))
			for i, n := range nodes {
				all[i] = n.ID
			}
			wl := domain.Whitelist{ID: pid + ":all", Name: g.Name, ProcessID: pid, AllowNodes: all}
			if err := s.Upsert(ctx, wl); err != nil {
				return res, err
			}
			res.Whitelists++
			continue
		}

		res.Lanes += len(lanes)
		for _, l := range lanes {
			wl := domain.Whitelist{
				ID:         pid + ":lane:" + l.ID,
				Name:       l.Name,
				ProcessID:  pid,
				AllowNodes: l.NodeIDs,
				AllowLanes: []string{l.ID},
			}
			if l.Name != "" {
				wl.Principals = []string{l.Name}
			}
			if err := s.Upsert(ctx, wl); err != nil {
				return res, err
			}
			res.Whitelists++
		}
	}

	logger.Info("Default whitelists for %s: %d whitelists over %d lanes", definitionID, res.Whitelists, res.Lanes)
	return res, nil
}

// keyedMutex hands out one mutex per key. An entry lives only while it is
// held or waited on.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
