// Package domain defines the core business entities for procrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ProcessGraph: Nodes, flows and lanes of one business process
//   - Whitelist: A role-scoped set of permitted steps
//   - GatingContext: The per-request view of the user's process position
//   - Classification: The intent of a query with a confidence
//   - Candidate: A fused retrieval result
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
