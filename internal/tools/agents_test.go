// ABOUTME: Tests for the agent pack handlers against an in-memory store

package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/agent-roster/internal/roster"
	"github.com/2389/agent-roster/internal/store"
)

func setupCatalogue(t *testing.T) (*Catalogue, *store.MockStore) {
	t.Helper()
	s := store.NewMockStore()
	c, err := NewRosterCatalogue(s, roster.BuiltinDefaults(), nil)
	require.NoError(t, err)
	return c, s
}

func call(t *testing.T, c *Catalogue, name string, args any) (string, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return c.Call(context.Background(), name, raw)
}

func savedID(t *testing.T, msg, prefix string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(msg, prefix), "unexpected message %q", msg)
	id := strings.TrimPrefix(msg, prefix)
	require.NotEmpty(t, id)
	return id
}

func TestSaveAgent_AppliesDefaults(t *testing.T) {
	c, _ := setupCatalogue(t)

	msg, err := call(t, c, "save_agent", map[string]any{"doc": map[string]any{"name": "scout-1"}})
	require.NoError(t, err)
	id := savedID(t, msg, "Saved agent: ")

	out, err := call(t, c, "load_agent", map[string]any{"id": id})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, id, doc["_id"])
	assert.Equal(t, "scout-1", doc["name"])
	assert.Equal(t, "didwba_sc", doc["security"])
	assert.Contains(t, doc, "@context")
	assert.Contains(t, doc, "securityDefinitions")
	assert.Contains(t, doc, "created")
}

func TestSaveAgent_CallerValuesWin(t *testing.T) {
	c, _ := setupCatalogue(t)

	msg, err := call(t, c, "save_agent", map[string]any{"doc": map[string]any{
		"name":     "scout-2",
		"_id":      "forged",
		"security": []string{"a", "b"},
	}})
	require.NoError(t, err)
	id := savedID(t, msg, "Saved agent: ")
	assert.NotEqual(t, "forged", id)

	out, err := call(t, c, "load_agent", map[string]any{"id": id})
	require.NoError(t, err)
	assert.Contains(t, out, `"security":["a","b"]`)
}

func TestSaveAgent_RequiresName(t *testing.T) {
	c, s := setupCatalogue(t)

	for _, doc := range []map[string]any{
		{},
		{"name": ""},
		{"name": "   "},
		{"name": 7},
	} {
		_, err := call(t, c, "save_agent", map[string]any{"doc": doc})
		assert.ErrorIs(t, err, ErrInvalidArguments, "doc %v", doc)
	}
	_, err := call(t, c, "save_agent", map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidArguments)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "rejected saves must not create records")
}

func TestSaveAgent_StoreUnavailable(t *testing.T) {
	c, s := setupCatalogue(t)
	s.SetUnavailable(true)

	_, err := call(t, c, "save_agent", map[string]any{"doc": map[string]any{"name": "x"}})
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestDeleteAgent(t *testing.T) {
	c, _ := setupCatalogue(t)

	msg, err := call(t, c, "save_agent", map[string]any{"doc": map[string]any{"name": "gone"}})
	require.NoError(t, err)
	id := savedID(t, msg, "Saved agent: ")

	msg, err = call(t, c, "delete_agent", map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, "Deleted agent: "+id, msg)

	_, err = call(t, c, "load_agent", map[string]any{"id": id})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = call(t, c, "delete_agent", map[string]any{"id": id})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = call(t, c, "delete_agent", map[string]any{"id": ""})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestListAgents(t *testing.T) {
	c, s := setupCatalogue(t)
	ctx := context.Background()

	out, err := call(t, c, "list_agents", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	first, err := call(t, c, "save_agent", map[string]any{"doc": map[string]any{"name": "a", "description": "first"}})
	require.NoError(t, err)
	firstID := savedID(t, first, "Saved agent: ")
	second, err := call(t, c, "save_agent", map[string]any{"doc": map[string]any{"name": "b"}})
	require.NoError(t, err)
	secondID := savedID(t, second, "Saved agent: ")
	rawID, err := s.Put(ctx, store.Document{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, secondID))

	out, err = call(t, c, "list_agents", nil)
	require.NoError(t, err)
	var list []roster.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)

	assert.Equal(t, firstID, list[0].ID)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "first", list[0].Description)
	assert.Equal(t, rawID, list[1].ID)
	assert.Equal(t, roster.UnnamedAgent, list[1].Name)
	assert.Equal(t, roster.NoDescriptionMessage, list[1].Description)
	assert.NotZero(t, list[1].Created)
}

func TestQueryAgents(t *testing.T) {
	c, s := setupCatalogue(t)
	var n int64
	s.SetClock(func() time.Time {
		n++
		return time.UnixMilli(1_700_000_000_000 + n)
	})

	for i := range 15 {
		_, err := call(t, c, "save_agent", map[string]any{"doc": map[string]any{"name": string(rune('a' + i))}})
		require.NoError(t, err)
	}

	decode := func(out string) []map[string]any {
		var docs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &docs))
		return docs
	}

	out, err := call(t, c, "query_agents", map[string]any{"sort_field": "created"})
	require.NoError(t, err)
	docs := decode(out)
	require.Len(t, docs, DefaultQueryLimit)
	assert.Equal(t, "o", docs[0]["name"], "newest first by default")

	out, err = call(t, c, "query_agents", map[string]any{"sort_field": "name", "descending": false, "limit": 3})
	require.NoError(t, err)
	docs = decode(out)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0]["name"])
	assert.Equal(t, "c", docs[2]["name"])

	out, err = call(t, c, "query_agents", map[string]any{"sort_field": "name", "limit": MaxQueryLimit})
	require.NoError(t, err)
	assert.Len(t, decode(out), 15)

	_, err = call(t, c, "query_agents", map[string]any{"sort_field": "name", "limit": MaxQueryLimit + 1})
	assert.ErrorIs(t, err, ErrInvalidArguments, "oversized limits are rejected, not clamped")

	for _, bad := range []map[string]any{
		{},
		{"sort_field": ""},
		{"sort_field": "name", "limit": 101},
		{"sort_field": "name", "limit": 0},
		{"sort_field": `x"y`},
	} {
		_, err := call(t, c, "query_agents", bad)
		assert.ErrorIs(t, err, ErrInvalidArguments, "args %v", bad)
	}
}
