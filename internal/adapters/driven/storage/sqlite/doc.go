// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - ProcessGraphStore, GraphWriter: Definitions, processes, nodes, flows and lanes
//   - WhitelistStore: Whitelists and their node, lane, type and principal members
//   - ChunkStore, ChunkWriter: Retrieval chunks with embeddings
//   - LexicalSearch: FTS5 keyword search ranked by bm25
//   - VectorSearch: Cosine similarity over stored embeddings
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.procrag/data/procrag.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
