package rag

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/PoLsss/ML-lightrag-core/internal/database"
	"github.com/PoLsss/ML-lightrag-core/internal/llm"
)

// Reranker scores documents against a query; higher is more relevant.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// EmbeddingReranker scores documents by cosine similarity to the query using
// a dedicated embedding model.
type EmbeddingReranker struct {
	embedder llm.Embedder
}

func NewEmbeddingReranker(embedder llm.Embedder) *EmbeddingReranker {
	return &EmbeddingReranker{embedder: embedder}
}

func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, append([]string{query}, documents...))
	if err != nil {
		return nil, fmt.Errorf("rerank embedding failed: %w", err)
	}
	if len(vectors) != len(documents)+1 {
		return nil, errEmbeddingCount
	}

	scores := make([]float64, len(documents))
	for i := range documents {
		scores[i] = cosine(vectors[0], vectors[i+1])
	}
	return scores, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
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

// rerank reorders chunks by reranker score. Without a reranker, or when it
// fails, the fused order is kept.
func (e *Engine) rerank(ctx context.Context, query string, chunks []database.Chunk) []database.Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	if e.reranker == nil {
		e.logger.Warn().Msg("Rerank is enabled but no rerank model is configured; set RERANK_MODEL or pass enable_rerank=false")
		return chunks
	}

	documents := make([]string, len(chunks))
	for i, c := range chunks {
		documents[i] = c.Content
	}

	scores, err := e.reranker.Rerank(ctx, query, documents)
	if err != nil || len(scores) != len(chunks) {
		e.logger.Warn().Err(err).Msg("Rerank failed, keeping fused order")
		return chunks
	}

	idx := make([]int, len(chunks))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return 0
	})

	out := make([]database.Chunk, len(chunks))
	for i, j := range idx {
		out[i] = chunks[j]
	}
	return out
}
