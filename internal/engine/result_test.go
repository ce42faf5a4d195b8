package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalData_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(RetrievalData{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	raw, err = json.Marshal(RetrievalData{References: []Reference{{ReferenceID: "1", FilePath: "a.md"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"entities": [],
		"relationships": [],
		"chunks": [],
		"references": [{"reference_id": "1", "file_path": "a.md"}]
	}`, string(raw))
}

func TestCollect(t *testing.T) {
	text, err := Collect(Immediate{Text: "done"})
	require.NoError(t, err)
	assert.Equal(t, "done", text)

	parts := func(yield func(string, error) bool) {
		if !yield("a", nil) {
			return
		}
		if !yield("b", nil) {
			return
		}
		yield("", errors.New("cut off"))
	}
	text, err = Collect(Incremental{Chunks: parts})
	assert.EqualError(t, err, "cut off")
	assert.Equal(t, "ab", text)

	text, err = Collect(Incremental{})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeMix, m)

	m, err = ParseMode("hybrid")
	require.NoError(t, err)
	assert.True(t, m.UsesEntities())
	assert.True(t, m.UsesRelationships())
	assert.False(t, m.UsesVectorChunks())

	_, err = ParseMode("graph")
	assert.Error(t, err)

	assert.False(t, ModeBypass.UsesEntities() || ModeBypass.UsesRelationships() || ModeBypass.UsesVectorChunks())
}
