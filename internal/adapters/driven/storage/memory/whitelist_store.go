package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure WhitelistStore implements the interface.
var _ driven.WhitelistStore = (*WhitelistStore)(nil)

// WhitelistStore is an in-memory implementation of driven.WhitelistStore.
// Lane containment is resolved against the graph store.
type WhitelistStore struct {
	mu         sync.RWMutex
	whitelists map[string]domain.Whitelist
	graphs     driven.ProcessGraphStore
}

// NewWhitelistStore creates a new in-memory whitelist store.
func NewWhitelistStore(graphs driven.ProcessGraphStore) *WhitelistStore {
	return &WhitelistStore{
		whitelists: make(map[string]domain.Whitelist),
		graphs:     graphs,
	}
}

// Upsert replaces the whitelist and all of its relationships.
func (s *WhitelistStore) Upsert(_ context.Context, wl domain.Whitelist) error {
	if err := wl.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whitelists[wl.ID] = wl.Normalized()
	return nil
}

// Get retrieves a whitelist by id.
func (s *WhitelistStore) Get(_ context.Context, id string) (*domain.Whitelist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wl, ok := s.whitelists[id]
	if !ok {
		return nil, fmt.Errorf("whitelist %q: %w", id, domain.ErrNotFound)
	}
	return &wl, nil
}

// ListForProcess returns the whitelists scoped to a process, ordered by id.
func (s *WhitelistStore) ListForProcess(_ context.Context, processID string) ([]domain.Whitelist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(wl domain.Whitelist) bool { return wl.ProcessID == processID }), nil
}

// ListForDefinition returns the whitelists of every process in a definition.
func (s *WhitelistStore) ListForDefinition(ctx context.Context, definitionID string) ([]domain.Whitelist, error) {
	pids, err := s.graphs.ProcessesForDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	in := make(map[string]bool, len(pids))
	for _, p := range pids {
		in[p] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(wl domain.Whitelist) bool { return in[wl.ProcessID] }), nil
}

// IDsForPrincipal returns the ids of whitelists bound to a principal.
func (s *WhitelistStore) IDsForPrincipal(_ context.Context, principal string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.filter(func(wl domain.Whitelist) bool {
		for _, p := range wl.Principals {
			if p == principal {
				return true
			}
		}
		return false
	})
	ids := make([]string, len(matched))
	for i, wl := range matched {
		ids[i] = wl.ID
	}
	return ids, nil
}

// AllowedNodes resolves what a whitelist permits in a process. A whitelist
// scoped to another process grants nothing.
func (s *WhitelistStore) AllowedNodes(ctx context.Context, whitelistID, processID string) (*domain.WhitelistGrant, error) {
	wl, err := s.Get(ctx, whitelistID)
	if err != nil {
		return nil, err
	}

	grant := &domain.WhitelistGrant{Types: []string{}, Direct: []string{}, ViaLanes: []string{}, Lanes: []string{}}
	if wl.ProcessID != processID {
		return grant, nil
	}
	grant.Types = append(grant.Types, wl.AllowTypes...)
	grant.Direct = append(grant.Direct, wl.AllowNodes...)
	grant.Lanes = append(grant.Lanes, wl.AllowLanes...)

	if len(wl.AllowLanes) == 0 {
		return grant, nil
	}
	lanes, err := s.graphs.Lanes(ctx, processID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return grant, nil
		}
		return nil, err
	}
	allowed := make(map[string]bool, len(wl.AllowLanes))
	for _, l := range wl.AllowLanes {
		allowed[l] = true
	}
	for _, l := range lanes {
		if allowed[l.ID] {
			grant.ViaLanes = append(grant.ViaLanes, l.NodeIDs...)
		}
	}
	return grant, nil
}

// filter returns matching whitelists ordered by id. Callers hold the lock.
func (s *WhitelistStore) filter(keep func(domain.Whitelist) bool) []domain.Whitelist {
	out := make([]domain.Whitelist, 0)
	for _, wl := range s.whitelists {
		if keep(wl) {
			out = append(out, wl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
