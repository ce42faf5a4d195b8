package bedrock

import (
	"encoding/json"
	"testing"

	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayload(t *testing.T) {
	body, err := buildPayload(llm.Request{
		System: "You answer from the context.",
		Prompt: "What is LightRAG?",
		History: []llm.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "system", Content: "dropped"},
		},
		MaxTokens:   512,
		Temperature: 0.1,
	})
	require.NoError(t, err)

	var payload claudeMessageRequest
	require.NoError(t, json.Unmarshal(body, &payload))

	assert.Equal(t, anthropicVersion, payload.AnthropicVersion)
	assert.Equal(t, 512, payload.MaxTokens)
	assert.Equal(t, "You answer from the context.", payload.System)
	require.Len(t, payload.Messages, 3)
	assert.Equal(t, claudeMessage{Role: "user", Content: "What is LightRAG?"}, payload.Messages[2])
}
