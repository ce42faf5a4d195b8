package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	return NewClient(Config{BaseURL: server.URL + "/", APIKey: "secret"}, &logger)
}

func writeLines(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func TestQueryLLM_Incremental(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query/stream", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is rag?", body["query"])
		assert.Equal(t, "mix", body["mode"])
		assert.Equal(t, true, body["include_references"])
		assert.Equal(t, true, body["include_chunk_content"])
		assert.Equal(t, []any{}, body["hl_keywords"])

		writeLines(w,
			`{"references":[{"reference_id":"1","file_path":"a.txt","content":["chunk one","chunk two"]}]}`,
			`{"response":"Hel"}`,
			`{"response":"lo"}`,
		)
	})

	result, err := client.QueryLLM(context.Background(), "what is rag?", engine.QueryParam{Stream: true})
	require.NoError(t, err)
	require.IsType(t, engine.Incremental{}, result.Answer)

	text, err := engine.Collect(result.Answer)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	assert.Equal(t, []engine.Reference{{ReferenceID: "1", FilePath: "a.txt"}}, result.Data.References)
	require.Len(t, result.Data.Chunks, 2)
	assert.Equal(t, "chunk two", result.Data.Chunks[1].Content)
	assert.Equal(t, "1", result.Data.Chunks[1].ReferenceID)
}

func TestQueryLLM_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w, `{"references":[],"response":"full answer"}`)
	})

	result, err := client.QueryLLM(context.Background(), "q", engine.QueryParam{Mode: engine.ModeNaive})
	require.NoError(t, err)
	assert.Equal(t, engine.Immediate{Text: "full answer"}, result.Answer)
	assert.Empty(t, result.Data.References)
}

func TestQueryLLM_PrefersContextData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w, `{"response":"x","references":[],"context_data":{"entities":[{"entity_name":"Acme"}],"relationships":[],"chunks":[],"references":[]}}`)
	})

	result, err := client.QueryLLM(context.Background(), "q", engine.QueryParam{})
	require.NoError(t, err)
	require.Len(t, result.Data.Entities, 1)
	assert.Equal(t, "Acme", result.Data.Entities[0].EntityName)
}

func TestQueryLLM_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
		})

		_, err := client.QueryLLM(context.Background(), "q", engine.QueryParam{})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
		assert.Contains(t, statusErr.Body, "boom")
	})

	t.Run("first packet error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeLines(w, `{"error":"llm down"}`)
		})

		_, err := client.QueryLLM(context.Background(), "q", engine.QueryParam{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm down")
	})

	t.Run("mid stream error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeLines(w, `{"references":[]}`, `{"response":"par"}`, `{"error":"cut"}`)
		})

		result, err := client.QueryLLM(context.Background(), "q", engine.QueryParam{Stream: true})
		require.NoError(t, err)

		text, err := engine.Collect(result.Answer)
		require.Error(t, err)
		assert.Equal(t, "par", text)
	})
}

func TestQueryData(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/query/data", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"success","message":"ok","data":{"entities":[],"relationships":[],"chunks":[{"reference_id":"1","content":"c"}],"references":[{"reference_id":"1","file_path":"a.txt"}]},"metadata":{"query_mode":"mix"}}`)
		})

		result, err := client.QueryData(context.Background(), "q", engine.QueryParam{})
		require.NoError(t, err)
		assert.Equal(t, "success", result.Status)
		assert.Equal(t, "mix", result.Metadata["query_mode"])
		assert.Len(t, result.Data.Chunks, 1)
	})

	t.Run("not an object", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `["unexpected"]`)
		})

		_, err := client.QueryData(context.Background(), "q", engine.QueryParam{})
		assert.ErrorIs(t, err, engine.ErrUnexpectedShape)
	})
}

func TestQueryData_KeepsUnmodelledFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success","message":"ok","data":{"entities":[{"entity_name":"A","rank":7,"created_at":1700000000}],"relationships":[],"chunks":[],"references":[],"graph_stats":{"nodes":1}},"metadata":{}}`)
	})

	logger := zerolog.Nop()
	service := query.NewService(client, &logger)

	resp, err := service.QueryData(context.Background(), query.QueryRequest{Query: "what is rag?"})
	require.NoError(t, err)
	require.Len(t, resp.Data.Entities, 1)
	assert.Equal(t, "A", resp.Data.Entities[0].EntityName)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"entities": [{"entity_name":"A","rank":7,"created_at":1700000000}],
		"relationships": [],
		"chunks": [],
		"references": [],
		"graph_stats": {"nodes":1}
	}`, string(raw))
}

func TestQueryLLM_ContextDataKeepsUnmodelledFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w, `{"response":"done","context_data":{"entities":[{"entity_name":"A","rank":7}],"relationships":[],"chunks":[],"references":[]}}`)
	})

	result, err := client.QueryLLM(context.Background(), "q", engine.QueryParam{})
	require.NoError(t, err)

	raw, err := json.Marshal(result.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entities":[{"entity_name":"A","rank":7}],"relationships":[],"chunks":[],"references":[]}`, string(raw))
}

func TestQueryStream_ReleasesUpstreamWhenConsumerStops(t *testing.T) {
	released := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		writeLines(w, `{"references":[]}`)
		flusher.Flush()

		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				close(released)
				return
			case <-ticker.C:
				writeLines(w, `{"response":"tick"}`)
				flusher.Flush()
			}
		}
	})

	logger := zerolog.Nop()
	service := query.NewService(client, &logger)

	stream, err := service.QueryStream(context.Background(), query.QueryRequest{Query: "what is rag?"})
	require.NoError(t, err)

	var packets int
	for range stream {
		packets++
		break
	}
	assert.Equal(t, 1, packets)

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream stream still open after the consumer stopped")
	}
}
