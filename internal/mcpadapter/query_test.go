package mcpadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/PoLsss/ML-lightrag-core/internal/engine/mocks"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newService(t *testing.T) (*query.Service, *mocks.MockEngine) {
	t.Helper()
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)
	logger := zerolog.Nop()
	return query.NewService(eng, &logger), eng
}

func TestQueryHandler(t *testing.T) {
	service, eng := newService(t)

	eng.EXPECT().
		QueryLLM(gomock.Any(), "what is lightrag?", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, param engine.QueryParam) (*engine.LLMResult, error) {
			assert.Equal(t, engine.ModeLocal, param.Mode)
			assert.False(t, param.Stream)
			require.NotNil(t, param.TopK)
			assert.Equal(t, 5, *param.TopK)
			require.Len(t, param.ConversationHistory, 1)
			assert.Equal(t, "user", param.ConversationHistory[0]["role"])
			return &engine.LLMResult{
				Answer: engine.Immediate{Text: "A RAG framework."},
				Data: engine.RetrievalData{
					References: []engine.Reference{{ReferenceID: "1", FilePath: "readme.md"}},
					Chunks:     []engine.Chunk{{ReferenceID: "1", Content: "LightRAG is..."}},
				},
			}, nil
		})

	topK := 5
	handler := NewQueryHandler(service)
	_, out, err := handler(context.Background(), nil, QueryInput{
		Query:               "  what is lightrag?  ",
		Mode:                "local",
		TopK:                &topK,
		IncludeChunkContent: true,
		ConversationHistory: []HistoryMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "A RAG framework.", out.Response)
	assert.Equal(t, []query.ReferenceItem{
		{ReferenceID: "1", FilePath: "readme.md", Content: []string{"LightRAG is..."}},
	}, out.References)
}

func TestQueryHandler_ValidationError(t *testing.T) {
	service, _ := newService(t)

	_, _, err := NewQueryHandler(service)(context.Background(), nil, QueryInput{Query: "hi", Mode: "sideways"})

	var validationErr *query.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestQueryInput_RejectsNonPositiveBudgets(t *testing.T) {
	zero, negative := 0, -5

	tests := []struct {
		name  string
		input QueryInput
		field string
	}{
		{"negative top_k", QueryInput{Query: "what is rag?", TopK: &negative}, "top_k"},
		{"zero top_k", QueryInput{Query: "what is rag?", TopK: &zero}, "top_k"},
		{"negative chunk_top_k", QueryInput{Query: "what is rag?", ChunkTopK: &negative}, "chunk_top_k"},
		{"zero chunk_top_k", QueryInput{Query: "what is rag?", ChunkTopK: &zero}, "chunk_top_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.input.toRequest()

			var validationErr *query.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestQueryInput_UnsetBudgetsStayUnset(t *testing.T) {
	req, err := QueryInput{Query: "what is rag?"}.toRequest()
	require.NoError(t, err)

	assert.Nil(t, req.TopK)
	assert.Nil(t, req.ChunkTopK)
	assert.Equal(t, engine.ModeMix, req.ResolvedMode())
}

func TestDataHandler(t *testing.T) {
	service, eng := newService(t)

	eng.EXPECT().
		QueryData(gomock.Any(), "graph question", gomock.Any()).
		Return(&engine.DataResult{
			Status:   "success",
			Message:  "ok",
			Data:     engine.RetrievalData{Entities: []engine.Entity{{EntityName: "Acme"}}},
			Metadata: map[string]any{"query_mode": "mix"},
		}, nil)

	_, out, err := NewDataHandler(service)(context.Background(), nil, QueryInput{Query: "graph question"})
	require.NoError(t, err)

	assert.Equal(t, "success", out.Status)
	assert.Equal(t, []engine.Entity{{EntityName: "Acme"}}, out.Entities)
	assert.Equal(t, "mix", out.Metadata["query_mode"])
}

func TestDataHandler_EngineError(t *testing.T) {
	service, eng := newService(t)
	eng.EXPECT().QueryData(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, _, err := NewDataHandler(service)(context.Background(), nil, QueryInput{Query: "graph question"})
	assert.EqualError(t, err, "db down")
}
