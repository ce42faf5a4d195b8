package query

import "github.com/PoLsss/ML-lightrag-core/internal/engine"

// ReferenceItem is one citation in a query response.
type ReferenceItem struct {
	ReferenceID string   `json:"reference_id" description:"Unique reference identifier"`
	FilePath    string   `json:"file_path" description:"Path to the source file"`
	Content     []string `json:"content,omitempty" description:"Chunk contents from this file, only present when include_chunk_content is true"`
}

// ToReferenceItems converts engine references without attaching chunk text.
func ToReferenceItems(refs []engine.Reference) []ReferenceItem {
	items := make([]ReferenceItem, 0, len(refs))
	for _, ref := range refs {
		items = append(items, ReferenceItem{ReferenceID: ref.ReferenceID, FilePath: ref.FilePath})
	}
	return items
}

// EnrichReferences attaches the content of every chunk to the reference with
// the same id, keeping chunk order. Chunks with an empty id or empty content
// are skipped and a reference without chunks gets no content list. Neither
// input is modified.
func EnrichReferences(refs []engine.Reference, chunks []engine.Chunk) []ReferenceItem {
	contentByID := make(map[string][]string)
	for _, chunk := range chunks {
		if chunk.ReferenceID == "" || chunk.Content == "" {
			continue
		}
		contentByID[chunk.ReferenceID] = append(contentByID[chunk.ReferenceID], chunk.Content)
	}

	items := ToReferenceItems(refs)
	for i := range items {
		if content, ok := contentByID[items[i].ReferenceID]; ok {
			items[i].Content = append([]string(nil), content...)
		}
	}
	return items
}

// referencesFor returns the reference list the request asked for: nil when
// references are disabled, enriched when chunk content was requested.
func referencesFor(req *QueryRequest, data engine.RetrievalData) []ReferenceItem {
	if !req.WantReferences() {
		return nil
	}
	if req.WantChunkContent() {
		return EnrichReferences(data.References, data.Chunks)
	}
	return ToReferenceItems(data.References)
}
