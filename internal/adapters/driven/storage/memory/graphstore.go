package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure GraphStore implements the interfaces.
var (
	_ driven.ProcessGraphStore = (*GraphStore)(nil)
	_ driven.GraphWriter       = (*GraphStore)(nil)
)

// GraphStore is an in-memory implementation of driven.ProcessGraphStore.
type GraphStore struct {
	mu          sync.RWMutex
	definitions map[string]domain.Definition
	graphs      map[string]*domain.ProcessGraph
	owner       map[string]string // process id -> definition id
}

// NewGraphStore creates a new in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		definitions: make(map[string]domain.Definition),
		graphs:      make(map[string]*domain.ProcessGraph),
		owner:       make(map[string]string),
	}
}

// SaveDefinition stores a definition and replaces its processes.
func (s *GraphStore) SaveDefinition(_ context.Context, def domain.Definition, processes []domain.ProcessImport) error {
	if def.ID == "" {
		return fmt.Errorf("%w: definition id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.definitions[def.ID]; ok {
		for _, p := range old.Processes {
			delete(s.graphs, p.ID)
			delete(s.owner, p.ID)
		}
	}

	def.Processes = make([]domain.ProcessRef, 0, len(processes))
	for _, p := range processes {
		lanes := make([]domain.Lane, len(p.Lanes))
		for i, l := range p.Lanes {
			l.ProcessID = p.ID
			lanes[i] = l
		}
		s.graphs[p.ID] = domain.NewProcessGraph(p.ID, p.Name, p.Nodes, p.Flows, lanes)
		s.owner[p.ID] = def.ID
		def.Processes = append(def.Processes, domain.ProcessRef{ID: p.ID, Name: p.Name})
	}
	s.definitions[def.ID] = def
	return nil
}

// Graph returns the adjacency view of a process.
func (s *GraphStore) Graph(_ context.Context, processID string) (*domain.ProcessGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[processID]
	if !ok {
		return nil, fmt.Errorf("process %q: %w", processID, domain.ErrNotFound)
	}
	return g, nil
}

// LocalView returns a node with its neighbours.
func (s *GraphStore) LocalView(ctx context.Context, processID, nodeID string, maxDepth int) (*domain.LocalView, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	view, ok := g.LocalView(nodeID, maxDepth)
	if !ok {
		return nil, fmt.Errorf("node %q: %w", nodeID, domain.ErrNotFound)
	}
	return view, nil
}

// LaneAndTaskLabels resolves lane and node ids to their records.
func (s *GraphStore) LaneAndTaskLabels(
	ctx context.Context, processID string, laneIDs, nodeIDs []string,
) (*domain.LabelSet, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	return g.Labels(laneIDs, nodeIDs), nil
}

// Overview returns the full inventory of a process.
func (s *GraphStore) Overview(ctx context.Context, processID string) (*domain.ProcessOverview, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	return g.Overview(), nil
}

// Paths returns the nodes reachable from a node within maxHops.
func (s *GraphStore) Paths(ctx context.Context, processID, fromNodeID string, maxHops int) ([]domain.Reach, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	return g.Successors(fromNodeID, maxHops), nil
}

// Lanes returns the lanes of a process.
func (s *GraphStore) Lanes(ctx context.Context, processID string) ([]domain.Lane, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	return g.Lanes(), nil
}

// Definitions returns every definition ordered by id.
func (s *GraphStore) Definitions(_ context.Context) ([]domain.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Definition, 0, len(s.definitions))
	for _, d := range s.definitions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DefinitionForProcess returns the definition id containing a process.
func (s *GraphStore) DefinitionForProcess(_ context.Context, processID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.owner[processID]
	if !ok {
		return "", fmt.Errorf("process %q: %w", processID, domain.ErrNotFound)
	}
	return id, nil
}

// DefinitionByProcessName returns the definition containing a process with the given name.
func (s *GraphStore) DefinitionByProcessName(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for pid, g := range s.graphs {
		if g.Name == name {
			return s.owner[pid], nil
		}
	}
	return "", fmt.Errorf("process named %q: %w", name, domain.ErrNotFound)
}

// ProcessesForDefinition returns the process ids of a definition.
func (s *GraphStore) ProcessesForDefinition(_ context.Context, definitionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.definitions[definitionID]
	if !ok {
		return nil, fmt.Errorf("definition %q: %w", definitionID, domain.ErrNotFound)
	}
	ids := make([]string, len(def.Processes))
	for i, p := range def.Processes {
		ids[i] = p.ID
	}
	return ids, nil
}
