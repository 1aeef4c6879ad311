package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure the chunk types implement the interfaces.
var (
	_ driven.ChunkStore    = (*ChunkStore)(nil)
	_ driven.ChunkWriter   = (*ChunkStore)(nil)
	_ driven.LexicalSearch = (*LexicalIndex)(nil)
	_ driven.VectorSearch  = (*VectorIndex)(nil)
)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	order  []string
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[string]domain.Chunk)}
}

// SaveChunks stores or replaces chunks by id.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
		}
		if _, ok := s.chunks[c.ID]; !ok {
			s.order = append(s.order, c.ID)
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// GetChunks returns the chunks for ids in the given order. Missing ids are omitted.
func (s *ChunkStore) GetChunks(_ context.Context, ids []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetChunk retrieves a chunk by id.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %q: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

// each calls fn for every chunk in insertion order under the read lock.
func (s *ChunkStore) each(fn func(domain.Chunk)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		fn(s.chunks[id])
	}
}

type scored struct {
	id    string
	score float64
}

func rank(hits []scored, limit int) []scored {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// LexicalIndex scores chunks by query term frequency.
type LexicalIndex struct {
	store *ChunkStore
}

// NewLexicalIndex creates a keyword index over a chunk store.
func NewLexicalIndex(store *ChunkStore) *LexicalIndex {
	return &LexicalIndex{store: store}
}

// Search returns chunks containing any query term, best first.
func (l *LexicalIndex) Search(
	_ context.Context, query string, limit int, filters domain.Filters,
) ([]driven.SearchHit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []driven.SearchHit{}, nil
	}

	var hits []scored
	l.store.each(func(c domain.Chunk) {
		if !filters.Matches(c) {
			return
		}
		counts := make(map[string]int)
		for _, tok := range tokenize(c.Text) {
			counts[tok]++
		}
		score := 0.0
		for _, t := range terms {
			score += float64(counts[t])
		}
		if score > 0 {
			hits = append(hits, scored{id: c.ID, score: score})
		}
	})

	ranked := rank(hits, limit)
	out := make([]driven.SearchHit, len(ranked))
	for i, h := range ranked {
		out[i] = driven.SearchHit{ChunkID: h.id, Score: h.score}
	}
	return out, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// VectorIndex ranks chunks by cosine similarity of their embeddings.
type VectorIndex struct {
	store *ChunkStore
}

// NewVectorIndex creates a similarity index over a chunk store.
func NewVectorIndex(store *ChunkStore) *VectorIndex {
	return &VectorIndex{store: store}
}

// Search returns the chunks most similar to vector. Chunks without an
// embedding of matching dimension are skipped.
func (v *VectorIndex) Search(
	_ context.Context, vector []float32, limit int, filters domain.Filters,
) ([]driven.VectorHit, error) {
	var hits []scored
	v.store.each(func(c domain.Chunk) {
		if len(c.Embedding) != len(vector) || !filters.Matches(c) {
			return
		}
		hits = append(hits, scored{id: c.ID, score: domain.CosineSimilarity(vector, c.Embedding)})
	})

	ranked := rank(hits, limit)
	out := make([]driven.VectorHit, len(ranked))
	for i, h := range ranked {
		out[i] = driven.VectorHit{ChunkID: h.id, Similarity: h.score}
	}
	return out, nil
}
