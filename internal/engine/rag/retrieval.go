package rag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/PoLsss/ML-lightrag-core/internal/database"
	"github.com/PoLsss/ML-lightrag-core/internal/keywords"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRRFK = 60.0
	// sourceSeparator joins the chunk ids a graph record was extracted from.
	sourceSeparator = "<SEP>"
)

type retrieval struct {
	entities  []database.Entity
	relations []database.Relation
	chunks    []database.Chunk
}

// retrieve embeds every text the mode needs in one call, then runs the vector
// and full-text searches concurrently.
func (e *Engine) retrieve(ctx context.Context, query string, kw keywords.Keywords, s settings) (*retrieval, error) {
	var texts []string
	entityIdx, relationIdx, chunkIdx := -1, -1, -1

	if ll := strings.Join(kw.LowLevel, ", "); s.mode.UsesEntities() && ll != "" {
		entityIdx = len(texts)
		texts = append(texts, ll)
	}
	if hl := strings.Join(kw.HighLevel, ", "); s.mode.UsesRelationships() && hl != "" {
		relationIdx = len(texts)
		texts = append(texts, hl)
	}
	if s.mode.UsesVectorChunks() {
		chunkIdx = len(texts)
		texts = append(texts, query)
	}

	r := &retrieval{}
	if len(texts) == 0 {
		return r, nil
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, errEmbeddingCount
	}

	var semantic, keyword []database.Chunk
	g, gctx := errgroup.WithContext(ctx)

	if entityIdx >= 0 {
		g.Go(func() error {
			var err error
			r.entities, err = e.store.SearchEntities(gctx, vectors[entityIdx], s.topK)
			return err
		})
	}
	if relationIdx >= 0 {
		g.Go(func() error {
			var err error
			r.relations, err = e.store.SearchRelations(gctx, vectors[relationIdx], s.topK)
			return err
		})
	}
	if chunkIdx >= 0 {
		g.Go(func() error {
			var err error
			semantic, err = e.store.SearchChunks(gctx, vectors[chunkIdx], s.chunkTopK*2)
			return err
		})
		g.Go(func() error {
			var err error
			keyword, err = e.store.KeywordChunks(gctx, query, s.chunkTopK*2)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	graph, err := e.store.ChunksByIDs(ctx, sourceChunkIDs(r.entities, r.relations))
	if err != nil {
		return nil, fmt.Errorf("failed to load graph chunks: %w", err)
	}

	r.chunks = fuse(s.rrfK, s.chunkTopK, semantic, keyword, graph)
	if s.rerank {
		r.chunks = e.rerank(ctx, query, r.chunks)
	}

	e.logger.Debug().
		Str("mode", string(s.mode)).
		Int("entities", len(r.entities)).
		Int("relations", len(r.relations)).
		Int("semantic_chunks", len(semantic)).
		Int("keyword_chunks", len(keyword)).
		Int("graph_chunks", len(graph)).
		Int("fused_chunks", len(r.chunks)).
		Msg("Retrieval finished")

	return r, nil
}

// fuse merges chunk rankings with Reciprocal Rank Fusion:
// score = sum over rankings of 1 / (k + rank). A chunk found by several
// rankings accumulates their scores. Ties keep first-appearance order.
func fuse(k float64, limit int, rankings ...[]database.Chunk) []database.Chunk {
	if k <= 0 {
		k = defaultRRFK
	}

	scores := make(map[string]float64)
	chunks := make(map[string]database.Chunk)
	var order []string

	for _, ranking := range rankings {
		for i, chunk := range ranking {
			scores[chunk.ID] += 1.0 / (k + float64(i+1))
			if _, seen := chunks[chunk.ID]; !seen {
				chunks[chunk.ID] = chunk
				order = append(order, chunk.ID)
			}
		}
	}

	slices.SortStableFunc(order, func(a, b string) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return 0
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	out := make([]database.Chunk, len(order))
	for i, id := range order {
		out[i] = chunks[id]
	}
	return out
}

func sourceChunkIDs(entities []database.Entity, relations []database.Relation) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(sourceID string) {
		for _, id := range strings.Split(sourceID, sourceSeparator) {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, en := range entities {
		add(en.SourceID)
	}
	for _, rel := range relations {
		add(rel.SourceID)
	}
	return ids
}
