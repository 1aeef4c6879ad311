package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable indicates an external dependency could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRetrievalUnavailable indicates every retrieval source failed for a query.
	// A single failing source degrades instead of surfacing this error.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	// Intent fallback, judging and reformulation degrade to their defaults.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates the lexical search index is not configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRerankerUnavailable indicates the cross-encoder could not score a batch.
	ErrRerankerUnavailable = errors.New("reranker unavailable")
)
