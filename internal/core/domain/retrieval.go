package domain

import "math"

// Chunk is a retrievable unit of source text.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"chunk_id" yaml:"id"`

	// DocumentID links to the source document.
	DocumentID string `json:"document_id,omitempty" yaml:"document_id"`

	// Text is the content of this chunk.
	Text string `json:"text" yaml:"text"`

	// ProcessName scopes the chunk to a named process. Empty means unscoped.
	ProcessName string `json:"process_name,omitempty" yaml:"process_name"`

	// ProcessID scopes the chunk to a process element id.
	ProcessID string `json:"process_id,omitempty" yaml:"process_id"`

	// NodeID ties the chunk to a single process step.
	NodeID string `json:"node_id,omitempty" yaml:"node_id"`

	// LaneID ties the chunk to a lane.
	LaneID string `json:"lane_id,omitempty" yaml:"lane_id"`

	// Tags are free-form labels used for exact-match filtering.
	Tags []string `json:"tags,omitempty" yaml:"tags"`

	// Embedding is the vector representation for similarity search.
	Embedding []float32 `json:"-" yaml:"-"`

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata"`
}

// Filters restricts both retrieval sources. Every non-empty field must match.
// Tags, NodeIDs and LaneIDs match when the chunk has any of the listed values.
type Filters struct {
	ProcessName string   `json:"process_name,omitempty"`
	ProcessID   string   `json:"process_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	NodeIDs     []string `json:"node_ids,omitempty"`
	LaneIDs     []string `json:"lane_ids,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.ProcessName == "" && f.ProcessID == "" &&
		len(f.Tags) == 0 && len(f.NodeIDs) == 0 && len(f.LaneIDs) == 0
}

// Matches reports whether a chunk passes every set filter.
func (f Filters) Matches(c Chunk) bool {
	if f.ProcessName != "" && c.ProcessName != f.ProcessName {
		return false
	}
	if f.ProcessID != "" && c.ProcessID != f.ProcessID {
		return false
	}
	if len(f.Tags) > 0 && !anyIn(c.Tags, f.Tags) {
		return false
	}
	if len(f.NodeIDs) > 0 && !contains(f.NodeIDs, c.NodeID) {
		return false
	}
	if len(f.LaneIDs) > 0 && !contains(f.LaneIDs, c.LaneID) {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func anyIn(have, want []string) bool {
	for _, h := range have {
		if contains(want, h) {
			return true
		}
	}
	return false
}

// ScoreSource names where a candidate's final score came from.
type ScoreSource string

// Score sources.
const (
	// ScoreSourceFusion is the reciprocal rank fusion score.
	ScoreSourceFusion ScoreSource = "fusion"

	// ScoreSourceCrossEncoder is a cross-encoder relevance score.
	ScoreSourceCrossEncoder ScoreSource = "cross-encoder"
)

// RetrievalSource names a ranked retrieval backend.
type RetrievalSource string

// Retrieval sources.
const (
	SourceLexical RetrievalSource = "lexical"
	SourceVector  RetrievalSource = "vector"
)

// Candidate is one fused retrieval result.
type Candidate struct {
	// ChunkID identifies the chunk.
	ChunkID string `json:"chunk_id"`

	// Ranks holds the 1-indexed rank per source the chunk appeared in.
	Ranks map[RetrievalSource]int `json:"ranks"`

	// FusedScore is the summed reciprocal rank score.
	FusedScore float64 `json:"fused_score"`

	// RerankScore is the score after optional cross-encoder reranking.
	RerankScore *float64 `json:"rerank_score,omitempty"`

	// Source is the origin of the score results are ordered by.
	Source ScoreSource `json:"source"`

	// Chunk is the resolved payload.
	Chunk Chunk `json:"chunk"`
}

// Score returns the score the candidate is ordered by.
func (c Candidate) Score() float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	return c.FusedScore
}

// RetrievalOptions configures one fused retrieval.
type RetrievalOptions struct {
	// TopK is the number of results. Each source is asked for TopK*5.
	TopK int

	// Filters apply to both sources.
	Filters Filters

	// Rerank enables the cross-encoder.
	Rerank bool

	// RerankTopN is how many fused candidates are scored by the cross-encoder.
	RerankTopN int
}

// CosineSimilarity returns the cosine of the angle between two vectors.
// Vectors of different length or zero magnitude return 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
