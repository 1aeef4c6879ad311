package driving

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// WhitelistService manages role-scoped whitelists and answers permission queries.
type WhitelistService interface {
	// Upsert validates and stores a whitelist, replacing every relationship.
	// Concurrent upserts of the same id are serialised.
	Upsert(ctx context.Context, wl domain.Whitelist) error

	// Get returns a whitelist by id.
	Get(ctx context.Context, id string) (*domain.Whitelist, error)

	// ListForDefinition returns the whitelists of a definition's processes.
	ListForDefinition(ctx context.Context, definitionID string) ([]domain.Whitelist, error)

	// WhitelistsForPrincipal returns the ids of whitelists bound to a role.
	WhitelistsForPrincipal(ctx context.Context, role string) ([]string, error)

	// AllowedNodesUnion returns the union of permitted node ids and types.
	AllowedNodesUnion(ctx context.Context, whitelistIDs []string, processID string) (domain.AllowedSet, error)

	// NextAllowed returns permitted nodes reachable from the current node,
	// ordered by hops then name.
	NextAllowed(ctx context.Context, processID, currentNodeID string, whitelistIDs []string, maxDepth int) ([]domain.ReachableNode, error)

	// AllowedForPrincipal aggregates permitted lanes and nodes for roles
	// across a definition.
	AllowedForPrincipal(ctx context.Context, definitionID string, roles []string) (domain.PrincipalGrant, error)

	// CreateDefaults generates one whitelist per lane of a definition.
	CreateDefaults(ctx context.Context, definitionID string) (domain.DefaultWhitelistResult, error)
}
