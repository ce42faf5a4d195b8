package query

import (
	"testing"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestEnrichReferences_AttachesChunksInOrder(t *testing.T) {
	refs := []engine.Reference{{ReferenceID: "r1", FilePath: "a.txt"}}
	chunks := []engine.Chunk{
		{ReferenceID: "r1", Content: "X"},
		{ReferenceID: "r1", Content: "Y"},
	}

	got := EnrichReferences(refs, chunks)

	assert.Equal(t, []ReferenceItem{{ReferenceID: "r1", FilePath: "a.txt", Content: []string{"X", "Y"}}}, got)
}

func TestEnrichReferences_NoCrossIDLeakage(t *testing.T) {
	refs := []engine.Reference{
		{ReferenceID: "1", FilePath: "a.md"},
		{ReferenceID: "2", FilePath: "b.md"},
		{ReferenceID: "3", FilePath: "c.md"},
	}
	chunks := []engine.Chunk{
		{ReferenceID: "2", Content: "b-first"},
		{ReferenceID: "1", Content: "a-first"},
		{ReferenceID: "2", Content: "b-second"},
		{ReferenceID: "", Content: "orphan"},
		{ReferenceID: "1", Content: ""},
		{ReferenceID: "9", Content: "unknown"},
	}

	got := EnrichReferences(refs, chunks)

	assert.Equal(t, []string{"a-first"}, got[0].Content)
	assert.Equal(t, []string{"b-first", "b-second"}, got[1].Content)
	assert.Nil(t, got[2].Content, "reference without chunks must have no content list")
	assert.Equal(t, []string{"1", "2", "3"}, []string{got[0].ReferenceID, got[1].ReferenceID, got[2].ReferenceID})
}

func TestEnrichReferences_Idempotent(t *testing.T) {
	refs := []engine.Reference{{ReferenceID: "1", FilePath: "a.md"}, {ReferenceID: "2", FilePath: "b.md"}}
	chunks := []engine.Chunk{{ReferenceID: "1", Content: "one"}, {ReferenceID: "1", Content: "two"}}

	first := EnrichReferences(refs, chunks)
	second := EnrichReferences(refs, chunks)

	assert.Equal(t, first, second)
	assert.Len(t, second[0].Content, 2)
}

func TestEnrichReferences_DoesNotMutateInputs(t *testing.T) {
	refs := []engine.Reference{{ReferenceID: "1", FilePath: "a.md"}}
	chunks := []engine.Chunk{{ReferenceID: "1", Content: "one"}}
	refsBefore := append([]engine.Reference(nil), refs...)
	chunksBefore := append([]engine.Chunk(nil), chunks...)

	got := EnrichReferences(refs, chunks)
	got[0].FilePath = "changed"
	got[0].Content[0] = "changed"

	assert.Equal(t, refsBefore, refs)
	assert.Equal(t, chunksBefore, chunks)
}

func TestEnrichReferences_Empty(t *testing.T) {
	assert.Equal(t, []ReferenceItem{}, EnrichReferences(nil, nil))
	assert.Equal(t, []ReferenceItem{}, EnrichReferences(nil, []engine.Chunk{{ReferenceID: "1", Content: "x"}}))
}

func TestReferencesFor(t *testing.T) {
	data := engine.RetrievalData{
		References: []engine.Reference{{ReferenceID: "1", FilePath: "a.md"}},
		Chunks:     []engine.Chunk{{ReferenceID: "1", Content: "text"}},
	}
	yes, no := true, false

	t.Run("disabled", func(t *testing.T) {
		assert.Nil(t, referencesFor(&QueryRequest{IncludeReferences: &no, IncludeChunkContent: &yes}, data))
	})
	t.Run("plain", func(t *testing.T) {
		assert.Equal(t, []ReferenceItem{{ReferenceID: "1", FilePath: "a.md"}}, referencesFor(&QueryRequest{}, data))
	})
	t.Run("with content", func(t *testing.T) {
		got := referencesFor(&QueryRequest{IncludeChunkContent: &yes}, data)
		assert.Equal(t, []string{"text"}, got[0].Content)
	})
}
