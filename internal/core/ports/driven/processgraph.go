package driven

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// ProcessGraphStore provides read-only queries over imported process graphs.
// How the graph is physically stored is up to the implementation.
type ProcessGraphStore interface {
	// Graph loads the full graph of a process.
	// Returns domain.ErrNotFound if the process does not exist.
	Graph(ctx context.Context, processID string) (*domain.ProcessGraph, error)

	// LocalView returns the current node with its predecessors and successors
	// within maxDepth hops. Gateway successors carry their branches.
	// Returns domain.ErrNotFound if the process or node does not exist.
	LocalView(ctx context.Context, processID, nodeID string, maxDepth int) (*domain.LocalView, error)

	// LaneAndTaskLabels resolves names for the given lane and node ids.
	// Unknown ids are omitted.
	LaneAndTaskLabels(ctx context.Context, processID string, laneIDs, nodeIDs []string) (*domain.LabelSet, error)

	// Overview returns the full inventory of a process.
	Overview(ctx context.Context, processID string) (*domain.ProcessOverview, error)

	// Paths returns nodes reachable from fromNodeID within 1..maxHops, each at
	// its shortest hop count.
	Paths(ctx context.Context, processID, fromNodeID string, maxHops int) ([]domain.Reach, error)

	// Lanes returns the lanes of a process with their node ids.
	Lanes(ctx context.Context, processID string) ([]domain.Lane, error)

	// Definitions lists every imported definition with its processes.
	Definitions(ctx context.Context) ([]domain.Definition, error)

	// DefinitionForProcess returns the definition id containing the process.
	DefinitionForProcess(ctx context.Context, processID string) (string, error)

	// DefinitionByProcessName finds a definition by process or definition name.
	DefinitionByProcessName(ctx context.Context, name string) (string, error)

	// ProcessesForDefinition lists the process ids of a definition.
	ProcessesForDefinition(ctx context.Context, definitionID string) ([]string, error)
}

// GraphWriter persists process graphs. It stands in for BPMN ingestion.
type GraphWriter interface {
	// SaveDefinition replaces a definition and all of its processes.
	SaveDefinition(ctx context.Context, def domain.Definition, processes []domain.ProcessImport) error
}
