package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// ==================== Chunk Store ====================

const chunkColumns = "c.id, c.document_id, c.text, c.process_name, c.process_id, c.node_id, c.lane_id, c.tags, c.embedding, c.metadata"

// chunkStore implements driven.ChunkStore and driven.ChunkWriter.
type chunkStore struct {
	store *Store
}

var (
	_ driven.ChunkStore  = (*chunkStore)(nil)
	_ driven.ChunkWriter = (*chunkStore)(nil)
)

// SaveChunks upserts chunks and refreshes their full-text rows.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, document_id, text, process_name, process_id, node_id, lane_id, tags, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				document_id = excluded.document_id,
				text = excluded.text,
				process_name = excluded.process_name,
				process_id = excluded.process_id,
				node_id = excluded.node_id,
				lane_id = excluded.lane_id,
				tags = excluded.tags,
				embedding = excluded.embedding,
				metadata = excluded.metadata
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			if c.ID == "" {
				return fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
			}
			tags := c.Tags
			if tags == nil {
				tags = []string{}
			}
			tagsJSON, err := marshalJSON(tags)
			if err != nil {
				return fmt.Errorf("marshalling chunk tags: %w", err)
			}
			metadataJSON, err := marshalJSON(c.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling chunk metadata: %w", err)
			}

			if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Text, c.ProcessName, c.ProcessID,
				c.NodeID, c.LaneID, tagsJSON, float32SliceToBytes(c.Embedding), metadataJSON); err != nil {
				return fmt.Errorf("saving chunk %s: %w", c.ID, err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE chunk_id = ?", c.ID); err != nil {
				return fmt.Errorf("clearing chunk index %s: %w", c.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO chunks_fts (chunk_id, text) VALUES (?, ?)", c.ID, c.Text); err != nil {
				return fmt.Errorf("indexing chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// GetChunks returns the chunks that exist for ids.
func (s *chunkStore) GetChunks(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return []domain.Chunk{}, nil
	}
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks c WHERE c.id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]domain.Chunk, 0, len(ids))
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetChunk retrieves a chunk by id.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks c WHERE c.id = ?", id)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %q: %w", id, domain.ErrNotFound)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanChunk scans one chunk row. sql.ErrNoRows is returned unwrapped.
func scanChunk(row scanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var tagsJSON, metadataJSON string
	var embeddingBlob []byte

	if err := row.Scan(&c.ID, &c.DocumentID, &c.Text, &c.ProcessName, &c.ProcessID,
		&c.NodeID, &c.LaneID, &tagsJSON, &embeddingBlob, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	c.Embedding = bytesToFloat32Slice(embeddingBlob)
	if tagsJSON != "" && tagsJSON != jsonNull {
		if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk tags: %w", err)
		}
	}
	if metadataJSON != "" && metadataJSON != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}
	return &c, nil
}

// filterClause renders filters as SQL conditions on the chunks alias c.
// Every condition is prefixed with AND.
func filterClause(f domain.Filters) (string, []any) {
	var sb strings.Builder
	var args []any

	if f.ProcessName != "" {
		sb.WriteString(" AND c.process_name = ?")
		args = append(args, f.ProcessName)
	}
	if f.ProcessID != "" {
		sb.WriteString(" AND c.process_id = ?")
		args = append(args, f.ProcessID)
	}
	if len(f.Tags) > 0 {
		sb.WriteString(" AND EXISTS (SELECT 1 FROM json_each(c.tags) t WHERE t.value IN (" + placeholders(len(f.Tags)) + "))")
		args = append(args, stringArgs(f.Tags)...)
	}
	if len(f.NodeIDs) > 0 {
		sb.WriteString(" AND c.node_id IN (" + placeholders(len(f.NodeIDs)) + ")")
		args = append(args, stringArgs(f.NodeIDs)...)
	}
	if len(f.LaneIDs) > 0 {
		sb.WriteString(" AND c.lane_id IN (" + placeholders(len(f.LaneIDs)) + ")")
		args = append(args, stringArgs(f.LaneIDs)...)
	}
	return sb.String(), args
}

// ==================== Lexical Search ====================

// lexicalIndex implements driven.LexicalSearch with FTS5 bm25 ranking.
type lexicalIndex struct {
	store *Store
}

var _ driven.LexicalSearch = (*lexicalIndex)(nil)

// Search returns chunks matching any query term, best first. Scores are
// negated bm25 values, so higher is better.
func (l *lexicalIndex) Search(
	ctx context.Context, query string, limit int, filters domain.Filters,
) ([]driven.SearchHit, error) {
	match := matchExpression(query)
	if match == "" {
		return []driven.SearchHit{}, nil
	}

	where, args := filterClause(filters)
	sqlQuery := `
		SELECT c.id, bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.chunk_id
		WHERE chunks_fts MATCH ?` + where + `
		ORDER BY score`
	args = append([]any{match}, args...)
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}
	defer rows.Close()

	hits := []driven.SearchHit{}
	for rows.Next() {
		var h driven.SearchHit
		if err := rows.Scan(&h.ChunkID, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		h.Score = -h.Score
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search hits: %w", err)
	}
	return hits, nil
}

// matchExpression turns free text into an FTS5 OR query of quoted terms,
// so user input never reaches the query syntax.
func matchExpression(query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// ==================== Vector Search ====================

// vectorIndex implements driven.VectorSearch by scanning embedding blobs.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorSearch = (*vectorIndex)(nil)

// Search returns the chunks most similar to vector. Chunks without an
// embedding of matching dimension are skipped.
func (v *vectorIndex) Search(
	ctx context.Context, vector []float32, limit int, filters domain.Filters,
) ([]driven.VectorHit, error) {
	if len(vector) == 0 {
		return []driven.VectorHit{}, nil
	}

	where, args := filterClause(filters)
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT c.id, c.embedding FROM chunks c
		WHERE c.embedding IS NOT NULL AND length(c.embedding) = ?`+where+`
		ORDER BY c.rowid
	`, append([]any{len(vector) * 4}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}
	defer rows.Close()

	hits := []driven.VectorHit{}
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    id,
			Similarity: domain.CosineSimilarity(vector, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
