package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// SearchEntities returns the entities closest to the embedding by cosine distance.
func (db *DB) SearchEntities(ctx context.Context, embedding []float32, limit int) ([]Entity, error) {
	query := `
	SELECT
	  name,
	  entity_type,
	  description,
	  source_id,
	  file_path,
	  embedding <=> $1 AS distance
	FROM lightrag_entities
	ORDER BY distance ASC
	LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("entity search failed: %w", err)
	}

	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entity, error) {
		var e Entity
		err := row.Scan(&e.Name, &e.Type, &e.Description, &e.SourceID, &e.FilePath, &e.Distance)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	return entities, nil
}

// SearchRelations returns the relationships closest to the embedding.
func (db *DB) SearchRelations(ctx context.Context, embedding []float32, limit int) ([]Relation, error) {
	query := `
	SELECT
	  src_id,
	  tgt_id,
	  description,
	  keywords,
	  weight,
	  source_id,
	  file_path,
	  embedding <=> $1 AS distance
	FROM lightrag_relations
	ORDER BY distance ASC
	LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("relation search failed: %w", err)
	}

	relations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Relation, error) {
		var r Relation
		err := row.Scan(&r.SrcID, &r.TgtID, &r.Description, &r.Keywords, &r.Weight, &r.SourceID, &r.FilePath, &r.Distance)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan relation: %w", err)
	}

	return relations, nil
}

func (db *DB) SearchChunks(ctx context.Context, embedding []float32, limit int) ([]Chunk, error) {
	query := `
	SELECT
	  id,
	  content,
	  file_path,
	  embedding <=> $1 AS distance
	FROM lightrag_chunks
	ORDER BY distance ASC
	LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("chunk search failed: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.FilePath, &chunk.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// KeywordChunks runs a full-text search over chunk content.
func (db *DB) KeywordChunks(ctx context.Context, text string, limit int) ([]Chunk, error) {
	query := `
		SELECT
			id,
			content,
			file_path,
			ts_rank(content_tsvector, plainto_tsquery('english', $1)) AS rank
		FROM lightrag_chunks
		WHERE content_tsvector @@ plainto_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, text, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.FilePath, &chunk.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// ChunksByIDs loads the source chunks graph records point at. Missing ids are
// skipped; the result follows the order of ids.
func (db *DB) ChunksByIDs(ctx context.Context, ids []string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT c.id, c.content, c.file_path
		FROM unnest($1::text[]) WITH ORDINALITY AS wanted(id, ord)
		JOIN lightrag_chunks c ON c.id = wanted.id
		ORDER BY wanted.ord`

	rows, err := db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("chunk lookup failed: %w", err)
	}

	chunks, err := pgx.CollectRows(rows, pgx.RowToStructByPos[chunkRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}

	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = Chunk{ID: c.ID, Content: c.Content, FilePath: c.FilePath}
	}

	db.logger.Debug().Int("requested", len(ids)).Int("found", len(out)).Msg("Loaded chunks by id")

	return out, nil
}

type chunkRow struct {
	ID       string
	Content  string
	FilePath string
}
