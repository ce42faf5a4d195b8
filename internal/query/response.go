package query

import (
	"encoding/json"
	"fmt"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
)

// NoContextResponse is returned by /query when the engine produced no text.
const NoContextResponse = "No relevant context found for the query."

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	invalidResponseMessage = "Invalid response type"
)

type QueryResponse struct {
	Response    string               `json:"response" description:"The generated response"`
	References  []ReferenceItem      `json:"references" description:"Reference list, null when include_references is false"`
	ContextData engine.RetrievalData `json:"context_data" description:"Raw retrieval context: entities, relationships, chunks and references"`
}

type QueryDataResponse struct {
	Status   string               `json:"status" description:"Query execution status"`
	Message  string               `json:"message" description:"Status message"`
	Data     engine.RetrievalData `json:"data" description:"Entities, relationships, chunks and references"`
	Metadata map[string]any       `json:"metadata" description:"Query mode, keywords and processing information"`
}

// InvalidDataResponse is the payload returned by /query/data when the engine
// answers with something that is not a structured result.
func InvalidDataResponse() QueryDataResponse {
	return QueryDataResponse{
		Status:   StatusFailure,
		Message:  invalidResponseMessage,
		Metadata: map[string]any{},
	}
}

type PacketKind int

const (
	// PacketContext opens an incremental stream with references and context.
	PacketContext PacketKind = iota
	// PacketResponse carries one increment of answer text.
	PacketResponse
	// PacketComplete is the only packet of a stream whose answer was not incremental.
	PacketComplete
	// PacketError terminates a stream that failed after it started.
	PacketError
)

func (k PacketKind) String() string {
	switch k {
	case PacketContext:
		return "context"
	case PacketResponse:
		return "response"
	case PacketComplete:
		return "complete"
	case PacketError:
		return "error"
	default:
		return fmt.Sprintf("PacketKind(%d)", int(k))
	}
}

// StreamPacket is one line of the /query/stream NDJSON body.
type StreamPacket struct {
	Kind        PacketKind
	Response    string
	References  []ReferenceItem
	ContextData engine.RetrievalData
	Error       string

	// withReferences controls whether a context packet carries the
	// references key at all.
	withReferences bool
}

func contextPacket(refs []ReferenceItem, data engine.RetrievalData, withReferences bool) StreamPacket {
	return StreamPacket{Kind: PacketContext, References: refs, ContextData: data, withReferences: withReferences}
}

func responsePacket(text string) StreamPacket {
	return StreamPacket{Kind: PacketResponse, Response: text}
}

func completePacket(text string, refs []ReferenceItem, data engine.RetrievalData) StreamPacket {
	return StreamPacket{Kind: PacketComplete, Response: text, References: refs, ContextData: data}
}

func errorPacket(err error) StreamPacket {
	return StreamPacket{Kind: PacketError, Error: err.Error()}
}

func (p StreamPacket) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PacketContext:
		if p.withReferences {
			refs := p.References
			if refs == nil {
				refs = []ReferenceItem{}
			}
			return json.Marshal(struct {
				References  []ReferenceItem      `json:"references"`
				ContextData engine.RetrievalData `json:"context_data"`
			}{refs, p.ContextData})
		}
		return json.Marshal(struct {
			ContextData engine.RetrievalData `json:"context_data"`
		}{p.ContextData})
	case PacketResponse:
		return json.Marshal(struct {
			Response string `json:"response"`
		}{p.Response})
	case PacketComplete:
		return json.Marshal(struct {
			Response    string               `json:"response"`
			References  []ReferenceItem      `json:"references"`
			ContextData engine.RetrievalData `json:"context_data"`
		}{p.Response, p.References, p.ContextData})
	case PacketError:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{p.Error})
	default:
		return nil, fmt.Errorf("unknown stream packet kind %s", p.Kind)
	}
}
