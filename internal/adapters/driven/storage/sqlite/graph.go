package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// ==================== Graph Store ====================

// graphStore implements driven.ProcessGraphStore and driven.GraphWriter.
// Queries load the process graph and answer from its adjacency view.
type graphStore struct {
	store *Store
}

var (
	_ driven.ProcessGraphStore = (*graphStore)(nil)
	_ driven.GraphWriter       = (*graphStore)(nil)
)

// SaveDefinition replaces a definition and all of its processes in one transaction.
func (s *graphStore) SaveDefinition(ctx context.Context, def domain.Definition, processes []domain.ProcessImport) error {
	if def.ID == "" {
		return fmt.Errorf("%w: definition id is required", domain.ErrInvalidInput)
	}

	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM processes WHERE definition_id = ?", def.ID); err != nil {
			return fmt.Errorf("deleting processes: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO definitions (id, name, filename) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, filename = excluded.filename
		`, def.ID, def.Name, def.Filename)
		if err != nil {
			return fmt.Errorf("saving definition: %w", err)
		}

		for i, p := range processes {
			if err := insertProcess(ctx, tx, def.ID, i, p); err != nil {
				return fmt.Errorf("saving process %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func insertProcess(ctx context.Context, tx *sql.Tx, definitionID string, position int, p domain.ProcessImport) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO processes (id, definition_id, name, position) VALUES (?, ?, ?, ?)",
		p.ID, definitionID, p.Name, position); err != nil {
		return err
	}

	for i, n := range p.Nodes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO nodes (process_id, id, name, kind, description, position) VALUES (?, ?, ?, ?, ?, ?)
		`, p.ID, n.ID, n.Name, string(n.Kind), n.Description, i); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
	}

	for i, f := range p.Flows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flows (process_id, id, source_id, target_id, name, condition, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, f.ID, f.SourceID, f.TargetID, f.Name, f.Condition, i); err != nil {
			return fmt.Errorf("flow %s: %w", f.ID, err)
		}
	}

	for i, l := range p.Lanes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO lanes (process_id, id, name, position) VALUES (?, ?, ?, ?)",
			p.ID, l.ID, l.Name, i); err != nil {
			return fmt.Errorf("lane %s: %w", l.ID, err)
		}
		for j, nid := range l.NodeIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO lane_nodes (process_id, lane_id, node_id, position) VALUES (?, ?, ?, ?)
			`, p.ID, l.ID, nid, j); err != nil {
				return fmt.Errorf("lane %s node %s: %w", l.ID, nid, err)
			}
		}
	}
	return nil
}

// Graph loads the full graph of a process.
func (s *graphStore) Graph(ctx context.Context, processID string) (*domain.ProcessGraph, error) {
	var name string
	err := s.store.db.QueryRowContext(ctx, "SELECT name FROM processes WHERE id = ?", processID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("process %q: %w", processID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying process: %w", err)
	}

	nodes, err := s.nodes(ctx, processID)
	if err != nil {
		return nil, err
	}
	flows, err := s.flows(ctx, processID)
	if err != nil {
		return nil, err
	}
	lanes, err := s.Lanes(ctx, processID)
	if err != nil {
		return nil, err
	}
	return domain.NewProcessGraph(processID, name, nodes, flows, lanes), nil
}

func (s *graphStore) nodes(ctx context.Context, processID string) ([]domain.Node, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, kind, description FROM nodes WHERE process_id = ? ORDER BY position
	`, processID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node //nolint:prealloc // size unknown from query
	for rows.Next() {
		var n domain.Node
		var kind string
		if err := rows.Scan(&n.ID, &n.Name, &kind, &n.Description); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Kind = domain.ParseNodeKind(kind)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

func (s *graphStore) flows(ctx context.Context, processID string) ([]domain.Flow, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, name, condition FROM flows WHERE process_id = ? ORDER BY position
	`, processID)
	if err != nil {
		return nil, fmt.Errorf("querying flows: %w", err)
	}
	defer rows.Close()

	var flows []domain.Flow //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.Flow
		if err := rows.Scan(&f.ID, &f.SourceID, &f.TargetID, &f.Name, &f.Condition); err != nil {
			return nil, fmt.Errorf("scanning flow: %w", err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating flows: %w", err)
	}
	return flows, nil
}

// Lanes returns the lanes of a process with their node ids, in import order.
func (s *graphStore) Lanes(ctx context.Context, processID string) ([]domain.Lane, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT l.id, l.name, ln.node_id
		FROM lanes l
		LEFT JOIN lane_nodes ln ON ln.process_id = l.process_id AND ln.lane_id = l.id
		WHERE l.process_id = ?
		ORDER BY l.position, ln.position
	`, processID)
	if err != nil {
		return nil, fmt.Errorf("querying lanes: %w", err)
	}
	defer rows.Close()

	lanes := []domain.Lane{}
	for rows.Next() {
		var id, name string
		var nodeID sql.NullString
		if err := rows.Scan(&id, &name, &nodeID); err != nil {
			return nil, fmt.Errorf("scanning lane: %w", err)
		}
		if n := len(lanes); n == 0 || lanes[n-1].ID != id {
			lanes = append(lanes, domain.Lane{ID: id, Name: name, ProcessID: processID, NodeIDs: []string{}})
		}
		if nodeID.Valid {
			last := &lanes[len(lanes)-1]
			last.NodeIDs = append(last.NodeIDs, nodeID.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lanes: %w", err)
	}
	return lanes, nil
}

// LocalView returns a node with its neighbours.
func (s *graphStore) LocalView(ctx context.Context, processID, nodeID string, maxDepth int) (*domain.LocalView, error) {
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
func (s *graphStore) LaneAndTaskLabels(
	ctx context.Context, processID string, laneIDs, nodeIDs []string,
) (*domain.LabelSet, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	return g.Labels(laneIDs, nodeIDs), nil
}

// Overview returns the full inventory of a process.
func (s *graphStore) Overview(ctx context.Context, processID string) (*domain.ProcessOverview, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	return g.Overview(), nil
}

// Paths returns the nodes reachable from a node within maxHops.
func (s *graphStore) Paths(ctx context.Context, processID, fromNodeID string, maxHops int) ([]domain.Reach, error) {
	g, err := s.Graph(ctx, processID)
	if err != nil {
		return nil, err
	}
	return g.Successors(fromNodeID, maxHops), nil
}

// Definitions returns every definition with its processes, ordered by id.
func (s *graphStore) Definitions(ctx context.Context) ([]domain.Definition, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.filename, p.id, p.name
		FROM definitions d
		LEFT JOIN processes p ON p.definition_id = d.id
		ORDER BY d.id, p.position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying definitions: %w", err)
	}
	defer rows.Close()

	defs := []domain.Definition{}
	for rows.Next() {
		var d domain.Definition
		var pid, pname sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.Filename, &pid, &pname); err != nil {
			return nil, fmt.Errorf("scanning definition: %w", err)
		}
		if n := len(defs); n == 0 || defs[n-1].ID != d.ID {
			d.Processes = []domain.ProcessRef{}
			defs = append(defs, d)
		}
		if pid.Valid {
			last := &defs[len(defs)-1]
			last.Processes = append(last.Processes, domain.ProcessRef{ID: pid.String, Name: pname.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating definitions: %w", err)
	}
	return defs, nil
}

// DefinitionForProcess returns the definition id containing a process.
func (s *graphStore) DefinitionForProcess(ctx context.Context, processID string) (string, error) {
	var id string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT definition_id FROM processes WHERE id = ?", processID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("process %q: %w", processID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying process: %w", err)
	}
	return id, nil
}

// DefinitionByProcessName finds a definition by process name, then by
// definition name.
func (s *graphStore) DefinitionByProcessName(ctx context.Context, name string) (string, error) {
	var id string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT definition_id FROM (
			SELECT definition_id, 0 AS pref FROM processes WHERE name = ?
			UNION ALL
			SELECT id, 1 FROM definitions WHERE name = ?
		) ORDER BY pref LIMIT 1
	`, name, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("process named %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying process by name: %w", err)
	}
	return id, nil
}

// ProcessesForDefinition returns the process ids of a definition.
func (s *graphStore) ProcessesForDefinition(ctx context.Context, definitionID string) ([]string, error) {
	var exists int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT 1 FROM definitions WHERE id = ?", definitionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("definition %q: %w", definitionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying definition: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id FROM processes WHERE definition_id = ? ORDER BY position", definitionID)
	if err != nil {
		return nil, fmt.Errorf("querying processes: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning process: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating processes: %w", err)
	}
	return ids, nil
}
