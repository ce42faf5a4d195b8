package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PoLsss/ML-lightrag-core/internal/database"
	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/PoLsss/ML-lightrag-core/internal/keywords"
)

const unknownSource = "unknown_source"

type builtContext struct {
	text string
	data engine.RetrievalData
	info processingInfo
}

func (b *builtContext) empty() bool {
	return len(b.data.Entities) == 0 && len(b.data.Relationships) == 0 && len(b.data.Chunks) == 0
}

type processingInfo struct {
	totalEntities  int
	totalRelations int
	keptEntities   int
	keptRelations  int
	keptChunks     int
}

func (p processingInfo) toMap() map[string]any {
	return map[string]any{
		"total_entities_found":       p.totalEntities,
		"total_relations_found":      p.totalRelations,
		"entities_after_truncation":  p.keptEntities,
		"relations_after_truncation": p.keptRelations,
		"final_chunks_count":         p.keptChunks,
	}
}

// build retrieves and then fits the context into the token budgets: entities
// and relations have their own budgets, chunks get what is left of the total
// once the prompt, the query and the graph context are counted.
func (e *Engine) build(ctx context.Context, query string, kw keywords.Keywords, s settings) (*builtContext, error) {
	r, err := e.retrieve(ctx, query, kw, s)
	if err != nil {
		return nil, err
	}

	entities := make([]engine.Entity, len(r.entities))
	for i, en := range r.entities {
		entities[i] = engine.Entity{
			EntityName:  en.Name,
			EntityType:  en.Type,
			Description: en.Description,
			SourceID:    en.SourceID,
			FilePath:    en.FilePath,
		}
	}
	relations := make([]engine.Relationship, len(r.relations))
	for i, rel := range r.relations {
		relations[i] = engine.Relationship{
			SrcID:       rel.SrcID,
			TgtID:       rel.TgtID,
			Description: rel.Description,
			Keywords:    rel.Keywords,
			Weight:      rel.Weight,
			SourceID:    rel.SourceID,
			FilePath:    rel.FilePath,
		}
	}

	entities, entityTokens := truncate(entities, s.maxEntityTokens, renderEntity, e.countTokens)
	relations, relationTokens := truncate(relations, s.maxRelationTokens, renderRelation, e.countTokens)

	used := e.countTokens(systemPrompt("", s.responseType, s.userPrompt)) + e.countTokens(query) + entityTokens + relationTokens
	chunks, _ := truncate(r.chunks, s.maxTotalTokens-used, renderRawChunk, e.countTokens)

	references, refByPath := buildReferences(chunks)

	data := engine.RetrievalData{
		Entities:      entities,
		Relationships: relations,
		Chunks:        make([]engine.Chunk, len(chunks)),
		References:    references,
	}
	for i, c := range chunks {
		path := filePath(c.FilePath)
		data.Chunks[i] = engine.Chunk{
			ReferenceID: refByPath[path],
			Content:     c.Content,
			FilePath:    path,
			ChunkID:     c.ID,
		}
	}
	for i := range data.Entities {
		data.Entities[i].ReferenceID = refByPath[data.Entities[i].FilePath]
	}
	for i := range data.Relationships {
		data.Relationships[i].ReferenceID = refByPath[data.Relationships[i].FilePath]
	}

	return &builtContext{
		text: renderContext(data),
		data: data,
		info: processingInfo{
			totalEntities:  len(r.entities),
			totalRelations: len(r.relations),
			keptEntities:   len(entities),
			keptRelations:  len(relations),
			keptChunks:     len(chunks),
		},
	}, nil
}

// buildReferences numbers the distinct chunk file paths from "1" in order of
// first appearance.
func buildReferences(chunks []database.Chunk) ([]engine.Reference, map[string]string) {
	references := []engine.Reference{}
	byPath := make(map[string]string)
	for _, c := range chunks {
		path := filePath(c.FilePath)
		if _, ok := byPath[path]; ok {
			continue
		}
		id := strconv.Itoa(len(references) + 1)
		byPath[path] = id
		references = append(references, engine.Reference{ReferenceID: id, FilePath: path})
	}
	return references, byPath
}

func filePath(p string) string {
	if strings.TrimSpace(p) == "" {
		return unknownSource
	}
	return p
}

// truncate keeps the longest prefix of items whose rendered size fits budget.
// It returns the kept items and the tokens they use.
func truncate[T any](items []T, budget int, render func(T) string, count func(string) int) ([]T, int) {
	used := 0
	for i, item := range items {
		n := count(render(item))
		if used+n > budget {
			return items[:i], used
		}
		used += n
	}
	return items, used
}

func (e *Engine) countTokens(text string) int {
	ids, _, err := e.codec.Encode(text)
	if err != nil {
		return len(text)/4 + 1
	}
	return len(ids)
}

func renderEntity(en engine.Entity) string {
	return jsonLine(struct {
		Entity      string `json:"entity"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}{en.EntityName, en.EntityType, en.Description})
}

func renderRelation(rel engine.Relationship) string {
	return jsonLine(struct {
		Entity1     string `json:"entity1"`
		Entity2     string `json:"entity2"`
		Description string `json:"description"`
	}{rel.SrcID, rel.TgtID, rel.Description})
}

func renderRawChunk(c database.Chunk) string {
	return jsonLine(struct {
		Content string `json:"content"`
	}{c.Content})
}

func renderChunk(c engine.Chunk) string {
	return jsonLine(struct {
		ReferenceID string `json:"reference_id"`
		Content     string `json:"content"`
	}{c.ReferenceID, c.Content})
}

func jsonLine(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func renderContext(data engine.RetrievalData) string {
	var sb strings.Builder

	section := func(title string, lines []string) {
		fmt.Fprintf(&sb, "-----%s-----\n\n```json\n", title)
		for _, l := range lines {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
		sb.WriteString("```\n\n")
	}

	entities := make([]string, len(data.Entities))
	for i, en := range data.Entities {
		entities[i] = renderEntity(en)
	}
	section("Entities(KG)", entities)

	relations := make([]string, len(data.Relationships))
	for i, rel := range data.Relationships {
		relations[i] = renderRelation(rel)
	}
	section("Relationships(KG)", relations)

	chunks := make([]string, len(data.Chunks))
	for i, c := range data.Chunks {
		chunks[i] = renderChunk(c)
	}
	section("Document Chunks(DC)", chunks)

	sb.WriteString("-----Reference Document List-----\n\n")
	for _, ref := range data.References {
		fmt.Fprintf(&sb, "[%s] %s\n", ref.ReferenceID, ref.FilePath)
	}

	return sb.String()
}
