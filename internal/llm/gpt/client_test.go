package gpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKeyAndModel(t *testing.T) {
	_, err := NewClient("", "", "gpt-4o-mini", "", 0)
	assert.Error(t, err)
	_, err = NewClient("sk-test", "", "", "", 0)
	assert.Error(t, err)
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		messages := body["messages"].([]any)
		assert.Len(t, messages, 3)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Paris"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client, err := NewClient("sk-test", server.URL, "gpt-4o-mini", "", 0)
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.Request{
		System:  "Answer briefly.",
		Prompt:  "Capital of France?",
		History: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
}

func TestClient_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo"} {
			_, _ = w.Write([]byte(`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"` + part + `"}}]}` + "\n\n"))
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	client, err := NewClient("sk-test", server.URL, "gpt-4o-mini", "", 0)
	require.NoError(t, err)

	seq, err := client.Stream(context.Background(), llm.Request{Prompt: "hi"})
	require.NoError(t, err)

	var parts []string
	for text, err := range seq {
		require.NoError(t, err)
		parts = append(parts, text)
	}
	assert.Equal(t, []string{"Hel", "lo"}, parts)
}

func TestClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0.3,0.4]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient("sk-test", server.URL, "gpt-4o-mini", "", 0)
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vectors)
}
