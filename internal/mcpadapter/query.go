package mcpadapter

import (
	"context"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	QueryToolName = "query_knowledge_base"
	DataToolName  = "query_retrieval_data"
)

type HistoryMessage struct {
	Role    string `json:"role" jsonschema:"user, assistant or system"`
	Content string `json:"content" jsonschema:"message text"`
}

// QueryInput is the tool input schema; field names match the HTTP API.
type QueryInput struct {
	Query               string           `json:"query" jsonschema:"question to answer, at least 3 characters"`
	Mode                string           `json:"mode,omitempty" jsonschema:"local, global, hybrid, naive, mix or bypass (default: mix)"`
	ResponseType        string           `json:"response_type,omitempty" jsonschema:"response format, e.g. Bullet Points"`
	TopK                *int             `json:"top_k,omitempty" jsonschema:"entities or relationships to retrieve, at least 1"`
	ChunkTopK           *int             `json:"chunk_top_k,omitempty" jsonschema:"text chunks to retrieve, at least 1"`
	HLKeywords          []string         `json:"hl_keywords,omitempty" jsonschema:"high-level keywords"`
	LLKeywords          []string         `json:"ll_keywords,omitempty" jsonschema:"low-level keywords"`
	ConversationHistory []HistoryMessage `json:"conversation_history,omitempty" jsonschema:"previous turns"`
	IncludeChunkContent bool             `json:"include_chunk_content,omitempty" jsonschema:"attach chunk text to references"`
}

type QueryOutput struct {
	Response   string                `json:"response"`
	References []query.ReferenceItem `json:"references,omitempty"`
}

type DataOutput struct {
	Status        string                `json:"status"`
	Message       string                `json:"message"`
	Entities      []engine.Entity       `json:"entities,omitempty"`
	Relationships []engine.Relationship `json:"relationships,omitempty"`
	Chunks        []engine.Chunk        `json:"chunks,omitempty"`
	References    []engine.Reference    `json:"references,omitempty"`
	Metadata      map[string]any        `json:"metadata,omitempty"`
}

// Register adds the query tools to server.
func Register(server *mcp.Server, service *query.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        QueryToolName,
		Description: "Answer a question from the knowledge graph and document store, with references",
	}, NewQueryHandler(service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        DataToolName,
		Description: "Return the entities, relationships, chunks and references retrieved for a question, without generating an answer",
	}, NewDataHandler(service))
}

// NewQueryHandler returns a tool handler for the synchronous query path.
// Pass the returned function to mcp.AddTool.
func NewQueryHandler(service *query.Service) func(context.Context, *mcp.CallToolRequest, QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
		req, err := input.toRequest()
		if err != nil {
			return nil, QueryOutput{}, err
		}

		resp, err := service.Query(ctx, req)
		if err != nil {
			return nil, QueryOutput{}, err
		}

		return nil, QueryOutput{Response: resp.Response, References: resp.References}, nil
	}
}

func NewDataHandler(service *query.Service) func(context.Context, *mcp.CallToolRequest, QueryInput) (*mcp.CallToolResult, DataOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, DataOutput, error) {
		req, err := input.toRequest()
		if err != nil {
			return nil, DataOutput{}, err
		}

		resp, err := service.QueryData(ctx, req)
		if err != nil {
			return nil, DataOutput{}, err
		}

		return nil, DataOutput{
			Status:        resp.Status,
			Message:       resp.Message,
			Entities:      resp.Data.Entities,
			Relationships: resp.Data.Relationships,
			Chunks:        resp.Data.Chunks,
			References:    resp.Data.References,
			Metadata:      resp.Metadata,
		}, nil
	}
}

// toRequest builds a validated QueryRequest. Empty strings and nil budgets mean "unset".
func (in QueryInput) toRequest() (query.QueryRequest, error) {
	req := query.QueryRequest{
		Query:      in.Query,
		TopK:       in.TopK,
		ChunkTopK:  in.ChunkTopK,
		HLKeywords: in.HLKeywords,
		LLKeywords: in.LLKeywords,
	}
	if in.Mode != "" {
		mode := engine.Mode(in.Mode)
		req.Mode = &mode
	}
	if in.ResponseType != "" {
		req.ResponseType = &in.ResponseType
	}
	if in.IncludeChunkContent {
		req.IncludeChunkContent = &in.IncludeChunkContent
	}
	for _, m := range in.ConversationHistory {
		req.ConversationHistory = append(req.ConversationHistory, map[string]any{"role": m.Role, "content": m.Content})
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return query.QueryRequest{}, err
	}
	return req, nil
}
