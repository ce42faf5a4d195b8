package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/PoLsss/ML-lightrag-core/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packetsOf(texts ...string) func(func(query.StreamPacket) bool) {
	return func(yield func(query.StreamPacket) bool) {
		for _, text := range texts {
			if !yield(query.StreamPacket{Kind: query.PacketResponse, Response: text}) {
				return
			}
		}
	}
}

func TestNDJSONWriter_Stream(t *testing.T) {
	recorder := httptest.NewRecorder()

	n, err := NewNDJSONWriter(recorder, recorder).Stream(context.Background(), packetsOf("a", "<b>"))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "{\"response\":\"a\"}\n{\"response\":\"<b>\"}\n", recorder.Body.String())
	assert.Equal(t, MIMENDJSON, recorder.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", recorder.Header().Get("Cache-Control"))
	assert.Equal(t, "no", recorder.Header().Get("X-Accel-Buffering"))
}

func TestNDJSONWriter_StopsWhenContextDone(t *testing.T) {
	recorder := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewNDJSONWriter(recorder, recorder).Stream(ctx, packetsOf("a", "b"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, recorder.Body.String())
}
