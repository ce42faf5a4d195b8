package engine

import (
	"bytes"
	"encoding/json"
	"iter"
	"strings"
)

type Reference struct {
	ReferenceID string `json:"reference_id"`
	FilePath    string `json:"file_path"`
}

type Chunk struct {
	ReferenceID string `json:"reference_id"`
	Content     string `json:"content"`
	FilePath    string `json:"file_path,omitempty"`
	ChunkID     string `json:"chunk_id,omitempty"`
}

type Entity struct {
	EntityName  string `json:"entity_name"`
	EntityType  string `json:"entity_type,omitempty"`
	Description string `json:"description,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
}

type Relationship struct {
	SrcID       string  `json:"src_id"`
	TgtID       string  `json:"tgt_id"`
	Description string  `json:"description,omitempty"`
	Keywords    string  `json:"keywords,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	SourceID    string  `json:"source_id,omitempty"`
	FilePath    string  `json:"file_path,omitempty"`
	ReferenceID string  `json:"reference_id,omitempty"`
}

// RetrievalData is the raw context behind an answer. The zero value renders
// as an empty JSON object. Data decoded from JSON keeps its source document
// in Raw and renders it back unchanged, including keys the typed fields do
// not model.
type RetrievalData struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Chunks        []Chunk        `json:"chunks"`
	References    []Reference    `json:"references"`

	Raw json.RawMessage `json:"-"`
}

func (d *RetrievalData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	type wire RetrievalData
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = RetrievalData(w)
	d.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (d RetrievalData) IsZero() bool {
	return d.Entities == nil && d.Relationships == nil && d.Chunks == nil && d.References == nil
}

func (d RetrievalData) MarshalJSON() ([]byte, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}
	if d.IsZero() {
		return []byte("{}"), nil
	}

	type wire RetrievalData
	w := wire(d)
	w.Raw = nil
	if w.Entities == nil {
		w.Entities = []Entity{}
	}
	if w.Relationships == nil {
		w.Relationships = []Relationship{}
	}
	if w.Chunks == nil {
		w.Chunks = []Chunk{}
	}
	if w.References == nil {
		w.References = []Reference{}
	}
	return json.Marshal(w)
}

// Answer is either Immediate or Incremental, decided by whether the engine
// produced the whole text up front.
type Answer interface {
	answer()
}

// Immediate is a fully generated answer.
type Immediate struct {
	Text string
}

// Incremental is an answer produced piece by piece. Stopping the range loop
// early stops the producer.
type Incremental struct {
	Chunks iter.Seq2[string, error]
}

func (Immediate) answer()   {}
func (Incremental) answer() {}

// Collect flattens any answer into its full text. For incremental answers the
// text gathered before a failure is returned together with the error.
func Collect(a Answer) (string, error) {
	switch v := a.(type) {
	case Immediate:
		return v.Text, nil
	case Incremental:
		var sb strings.Builder
		if v.Chunks == nil {
			return "", nil
		}
		for chunk, err := range v.Chunks {
			if err != nil {
				return sb.String(), err
			}
			sb.WriteString(chunk)
		}
		return sb.String(), nil
	default:
		return "", nil
	}
}

type LLMResult struct {
	Answer Answer
	Data   RetrievalData
}

type DataResult struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Data     RetrievalData  `json:"data"`
	Metadata map[string]any `json:"metadata"`
}
