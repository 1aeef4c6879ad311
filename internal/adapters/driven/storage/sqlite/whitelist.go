package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// ==================== Whitelist Store ====================

// Whitelist member relations.
const (
	relNode      = "node"
	relLane      = "lane"
	relType      = "type"
	relPrincipal = "principal"
)

// whitelistStore implements driven.WhitelistStore.
type whitelistStore struct {
	store *Store
}

var _ driven.WhitelistStore = (*whitelistStore)(nil)

// Upsert replaces the whitelist and every membership row in one transaction.
func (s *whitelistStore) Upsert(ctx context.Context, wl domain.Whitelist) error {
	if err := wl.Validate(); err != nil {
		return err
	}
	wl = wl.Normalized()

	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO whitelists (id, name, process_id) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, process_id = excluded.process_id
		`, wl.ID, wl.Name, wl.ProcessID)
		if err != nil {
			return fmt.Errorf("saving whitelist: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM whitelist_members WHERE whitelist_id = ?", wl.ID); err != nil {
			return fmt.Errorf("clearing whitelist members: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO whitelist_members (whitelist_id, relation, value, position) VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		members := []struct {
			rel  string
			vals []string
		}{
			{relNode, wl.AllowNodes},
			{relLane, wl.AllowLanes},
			{relType, wl.AllowTypes},
			{relPrincipal, wl.Principals},
		}
		for _, m := range members {
			for i, v := range m.vals {
				if _, err := stmt.ExecContext(ctx, wl.ID, m.rel, v, i); err != nil {
					return fmt.Errorf("saving whitelist %s %s: %w", m.rel, v, err)
				}
			}
		}
		return nil
	})
}

// Get retrieves a whitelist by id.
func (s *whitelistStore) Get(ctx context.Context, id string) (*domain.Whitelist, error) {
	wl := domain.Whitelist{ID: id}
	err := s.store.db.QueryRowContext(ctx,
		"SELECT name, process_id FROM whitelists WHERE id = ?", id).Scan(&wl.Name, &wl.ProcessID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("whitelist %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying whitelist: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT relation, value FROM whitelist_members WHERE whitelist_id = ? ORDER BY relation, position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying whitelist members: %w", err)
	}
	defer rows.Close()

	wl.AllowNodes, wl.AllowLanes, wl.AllowTypes, wl.Principals = []string{}, []string{}, []string{}, []string{}
	for rows.Next() {
		var rel, val string
		if err := rows.Scan(&rel, &val); err != nil {
			return nil, fmt.Errorf("scanning whitelist member: %w", err)
		}
		switch rel {
		case relNode:
			wl.AllowNodes = append(wl.AllowNodes, val)
		case relLane:
			wl.AllowLanes = append(wl.AllowLanes, val)
		case relType:
			wl.AllowTypes = append(wl.AllowTypes, val)
		case relPrincipal:
			wl.Principals = append(wl.Principals, val)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating whitelist members: %w", err)
	}
	return &wl, nil
}

// ListForProcess returns the whitelists scoped to a process, ordered by id.
func (s *whitelistStore) ListForProcess(ctx context.Context, processID string) ([]domain.Whitelist, error) {
	return s.list(ctx, "SELECT id FROM whitelists WHERE process_id = ? ORDER BY id", processID)
}

// ListForDefinition returns the whitelists of every process in a definition.
func (s *whitelistStore) ListForDefinition(ctx context.Context, definitionID string) ([]domain.Whitelist, error) {
	if _, err := (&graphStore{store: s.store}).ProcessesForDefinition(ctx, definitionID); err != nil {
		return nil, err
	}
	return s.list(ctx, `
		SELECT w.id FROM whitelists w
		JOIN processes p ON p.id = w.process_id
		WHERE p.definition_id = ?
		ORDER BY w.id
	`, definitionID)
}

func (s *whitelistStore) list(ctx context.Context, query string, args ...any) ([]domain.Whitelist, error) {
	ids, err := s.ids(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Whitelist, 0, len(ids))
	for _, id := range ids {
		wl, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *wl)
	}
	return out, nil
}

func (s *whitelistStore) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying whitelists: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning whitelist id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating whitelists: %w", err)
	}
	return ids, nil
}

// IDsForPrincipal returns the ids of whitelists bound to a principal.
func (s *whitelistStore) IDsForPrincipal(ctx context.Context, principal string) ([]string, error) {
	return s.ids(ctx, `
		SELECT whitelist_id FROM whitelist_members
		WHERE relation = ? AND value = ?
		ORDER BY whitelist_id
	`, relPrincipal, principal)
}

// AllowedNodes resolves what a whitelist permits in a process. A whitelist
// scoped to another process grants nothing.
func (s *whitelistStore) AllowedNodes(ctx context.Context, whitelistID, processID string) (*domain.WhitelistGrant, error) {
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

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT ln.node_id
		FROM lane_nodes ln
		JOIN lanes l ON l.process_id = ln.process_id AND l.id = ln.lane_id
		WHERE ln.process_id = ? AND ln.lane_id IN (`+placeholders(len(wl.AllowLanes))+`)
		ORDER BY l.position, ln.position
	`, append([]any{processID}, stringArgs(wl.AllowLanes)...)...)
	if err != nil {
		return nil, fmt.Errorf("querying lane nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning lane node: %w", err)
		}
		grant.ViaLanes = append(grant.ViaLanes, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lane nodes: %w", err)
	}
	return grant, nil
}
