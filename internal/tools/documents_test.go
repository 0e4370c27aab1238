// ABOUTME: Tests for the generic JSON document tools

package tools

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/agent-roster/internal/store"
)

func TestJSONDocs_RoundTrip(t *testing.T) {
	c, _ := setupCatalogue(t)

	msg, err := call(t, c, "save_json_doc", map[string]any{"doc": map[string]any{"title": "untitled"}})
	require.NoError(t, err)
	id := savedID(t, msg, "Saved document with ID: ")

	out, err := call(t, c, "load_json_doc", map[string]any{"id": id})
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "untitled", doc["title"])
	assert.NotContains(t, doc, "@context", "generic documents get no defaults")

	msg, err = call(t, c, "delete_json_doc", map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, "Deleted document with ID: "+id, msg)

	_, err = call(t, c, "load_json_doc", map[string]any{"id": id})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = call(t, c, "delete_json_doc", map[string]any{"id": "nonexistent-id"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQueryJSONDocs_TenNewest(t *testing.T) {
	c, s := setupCatalogue(t)
	var n int64
	s.SetClock(func() time.Time {
		n++
		return time.UnixMilli(1_700_000_000_000 + n)
	})

	for i := range 12 {
		_, err := call(t, c, "save_json_doc", map[string]any{"doc": map[string]any{"i": i}})
		require.NoError(t, err)
	}

	out, err := call(t, c, "query_json_docs", map[string]any{"sort_field": "created"})
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 10)
	for i := 1; i < len(docs); i++ {
		assert.Greater(t, docs[i-1]["created"], docs[i]["created"])
	}
	assert.Equal(t, float64(11), docs[0]["i"])

	_, err = call(t, c, "query_json_docs", map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}
