package domain

import (
	"strconv"
	"strings"
)

// Document formats accepted by the import pipeline.
const (
	DocumentFormatText     = "text"
	DocumentFormatMarkdown = "markdown"
)

// SourceDocument is a piece of process documentation before it is split
// into chunks. Every chunk produced from it inherits its scope and tags.
type SourceDocument struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title,omitempty" yaml:"title"`
	Format string `json:"format,omitempty" yaml:"format"`
	Text   string `json:"text" yaml:"text"`

	ProcessName string   `json:"process_name,omitempty" yaml:"process_name"`
	ProcessID   string   `json:"process_id,omitempty" yaml:"process_id"`
	NodeID      string   `json:"node_id,omitempty" yaml:"node_id"`
	LaneID      string   `json:"lane_id,omitempty" yaml:"lane_id"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
}

// NormalisedFormat returns the lower-cased format, defaulting to text.
func (d SourceDocument) NormalisedFormat() string {
	f := strings.ToLower(strings.TrimSpace(d.Format))
	switch f {
	case "", "txt", "plain":
		return DocumentFormatText
	case "md":
		return DocumentFormatMarkdown
	}
	return f
}

// ChunkAt builds the n-th chunk of the document with the given text.
// Chunk ids are "<document id>#<n>" so a re-import replaces earlier chunks.
func (d SourceDocument) ChunkAt(n int, text string) Chunk {
	c := Chunk{
		ID:          d.ID + "#" + strconv.Itoa(n),
		DocumentID:  d.ID,
		Text:        text,
		ProcessName: d.ProcessName,
		ProcessID:   d.ProcessID,
		NodeID:      d.NodeID,
		LaneID:      d.LaneID,
		Metadata:    map[string]any{"position": n},
	}
	if len(d.Tags) > 0 {
		c.Tags = append([]string(nil), d.Tags...)
	}
	if d.Title != "" {
		c.Metadata["title"] = d.Title
	}
	return c
}
