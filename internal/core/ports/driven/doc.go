// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ProcessGraphStore: Read-only process graph queries
//   - WhitelistStore: Whitelist persistence with atomic replace
//   - LexicalSearch: Keyword search over chunks (BM25)
//   - ChunkStore: Chunk payload resolution
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorSearch: Similarity search. Only used when EmbeddingService is configured.
//   - EmbeddingService: Generates query embeddings. Without it, retrieval is lexical only.
//   - LLMService: Intent fallback, judging and reformulation. Without it, safe defaults apply.
//   - Reranker: Cross-encoder scoring. Without it, fusion order is kept.
//   - ClassificationCache: Caches model classifications.
//   - MetricsRecorder: Operational metrics.
//   - DocumentPipeline: Splits fixture documents into chunks on import.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
