package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(100))
		if p.overlap != 100 {
			t.Errorf("expected overlap 100, got %d", p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := New()
	doc := &domain.SourceDocument{ID: "doc", Text: "  \n "}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for blank text, got %d", len(chunks))
	}
}

func TestProcessor_Process_SmallContentInheritsScope(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	doc := &domain.SourceDocument{
		ID:          "reise-faq",
		Title:       "Dienstreise FAQ",
		Text:        "Der Antrag wird vier Wochen vorher gestellt.",
		ProcessName: "Dienstreise",
		ProcessID:   "Process_Reise",
		NodeID:      "Task_Antrag",
		LaneID:      "Lane_A",
		Tags:        []string{"reise"},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small content, got %d", len(chunks))
	}

	c := chunks[0]
	if c.ID != "reise-faq#0" {
		t.Errorf("expected id reise-faq#0, got %s", c.ID)
	}
	if c.DocumentID != doc.ID || c.Text != doc.Text {
		t.Errorf("unexpected chunk %+v", c)
	}
	if c.ProcessName != "Dienstreise" || c.ProcessID != "Process_Reise" || c.NodeID != "Task_Antrag" || c.LaneID != "Lane_A" {
		t.Errorf("scope not inherited: %+v", c)
	}
	if len(c.Tags) != 1 || c.Tags[0] != "reise" {
		t.Errorf("expected tags [reise], got %v", c.Tags)
	}
	if c.Metadata["title"] != "Dienstreise FAQ" || c.Metadata["position"] != 0 {
		t.Errorf("unexpected metadata %v", c.Metadata)
	}
}

func TestProcessor_Process_LargeContent(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	doc := &domain.SourceDocument{ID: "doc", Text: strings.Repeat("x", 250)}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if want := "doc#" + string(rune('0'+i)); chunk.ID != want {
			t.Errorf("expected id %s, got %s", want, chunk.ID)
		}
		if chunk.Metadata["position"] != i {
			t.Errorf("expected position %d, got %v", i, chunk.Metadata["position"])
		}
	}
	if len(chunks[0].Text) != 100 {
		t.Errorf("expected first chunk size 100, got %d", len(chunks[0].Text))
	}
}

func TestProcessor_Process_ExactChunkSize(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(0))
	doc := &domain.SourceDocument{ID: "doc", Text: strings.Repeat("a", 100)}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestProcessor_Process_OverlapContent(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3))
	doc := &domain.SourceDocument{ID: "doc", Text: "0123456789ABCDEFGHIJ"}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Step 7: 0-9, 7-16, 14-19.
	want := []string{"0123456789", "789ABCDEFG", "EFGHIJ"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d: expected %q, got %q", i, w, chunks[i].Text)
		}
	}
}

func TestProcessor_Process_BreaksAtWhitespace(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(0))
	doc := &domain.SourceDocument{ID: "doc", Text: "Reisekosten werden erstattet nach Prüfung"}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Reisekosten werden", "erstattet nach", "Prüfung"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d: expected %q, got %q", i, w, chunks[i].Text)
		}
	}
}

func TestProcessor_Process_CountsRunes(t *testing.T) {
	p := New(WithChunkSize(4), WithOverlap(0))
	doc := &domain.SourceDocument{ID: "doc", Text: "äöüßäöüß"}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Text != "äöüß" || chunks[1].Text != "äöüß" {
		t.Errorf("expected two 4-rune chunks, got %+v", chunks)
	}
}

func TestProcessor_Process_IgnoresInputChunks(t *testing.T) {
	p := New(WithChunkSize(100))
	existing := []domain.Chunk{{ID: "existing", Text: "should be ignored"}}
	doc := &domain.SourceDocument{ID: "doc", Text: "New content to chunk"}

	chunks, err := p.Process(context.Background(), doc, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, chunk := range chunks {
		if chunk.ID == "existing" {
			t.Error("existing chunks should be ignored")
		}
	}
}
