package driven

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// WhitelistStore persists whitelists and resolves what they permit.
type WhitelistStore interface {
	// Upsert creates or replaces a whitelist. Every relationship (nodes, lanes,
	// types, principals) is replaced in a single transaction.
	Upsert(ctx context.Context, wl domain.Whitelist) error

	// Get returns a whitelist by id.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Whitelist, error)

	// ListForProcess returns every whitelist scoped to the process.
	ListForProcess(ctx context.Context, processID string) ([]domain.Whitelist, error)

	// ListForDefinition returns every whitelist scoped to a process of the definition.
	ListForDefinition(ctx context.Context, definitionID string) ([]domain.Whitelist, error)

	// IDsForPrincipal returns the ids of whitelists bound to the role.
	IDsForPrincipal(ctx context.Context, principal string) ([]string, error)

	// AllowedNodes returns what a whitelist permits inside the process.
	// A whitelist scoped to a different process permits nothing.
	AllowedNodes(ctx context.Context, whitelistID, processID string) (*domain.WhitelistGrant, error)
}
