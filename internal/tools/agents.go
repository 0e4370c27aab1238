// ABOUTME: Agent pack: save, load, delete, list and query agent records.
// ABOUTME: Saves merge the configured protocol defaults before storing.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/agent-roster/internal/roster"
	"github.com/2389/agent-roster/internal/store"
)

// Query limits for query_agents. MaxQueryLimit matches the schema's
// maximum; larger limits fail validation.
const (
	DefaultQueryLimit = 10
	MaxQueryLimit     = 100
)

// AgentPack creates the pack of agent record tools.
func AgentPack(s store.DocumentStore, defaults roster.Defaults) *Pack {
	h := &agentHandlers{store: s, defaults: defaults, now: time.Now}
	return &Pack{
		ID: "roster:agents",
		Tools: []*Tool{
			{
				Name:            "save_agent",
				Description:     "Save a new agent description. Missing @context, securityDefinitions and security are filled with defaults",
				InputSchemaJSON: `{"type":"object","properties":{"doc":{"type":"object","properties":{"name":{"type":"string","minLength":1},"description":{"type":"string"},"@context":{"type":"object"},"securityDefinitions":{"type":"object","additionalProperties":{"type":"object","properties":{"scheme":{"type":"string"},"in":{"type":"string"},"name":{"type":"string"}},"required":["scheme","in","name"]}},"security":{"anyOf":[{"type":"string"},{"type":"array","items":{"type":"string"}}]}},"required":["name"]}},"required":["doc"]}`,
				Handler:         h.SaveAgent,
			},
			{
				Name:            "load_agent",
				Description:     "Load an agent by ID",
				InputSchemaJSON: `{"type":"object","properties":{"id":{"type":"string","minLength":1}},"required":["id"]}`,
				Handler:         h.LoadAgent,
			},
			{
				Name:            "delete_agent",
				Description:     "Delete an agent by ID",
				InputSchemaJSON: `{"type":"object","properties":{"id":{"type":"string","minLength":1}},"required":["id"]}`,
				Handler:         h.DeleteAgent,
			},
			{
				Name:            "list_agents",
				Description:     "List all active agents",
				InputSchemaJSON: `{"type":"object","properties":{}}`,
				Handler:         h.ListAgents,
			},
			{
				Name:            "query_agents",
				Description:     "Query agents sorted by a field",
				InputSchemaJSON: `{"type":"object","properties":{"sort_field":{"type":"string","minLength":1,"pattern":"^[^\"\\\\]+$"},"descending":{"type":"boolean"},"limit":{"type":"integer","minimum":1,"maximum":100}},"required":["sort_field"]}`,
				Handler:         h.QueryAgents,
			},
		},
	}
}

type agentHandlers struct {
	store    store.DocumentStore
	defaults roster.Defaults
	now      func() time.Time
}

type saveAgentArgs struct {
	Doc map[string]any `json:"doc"`
}

type idArgs struct {
	ID string `json:"id"`
}

type queryAgentsArgs struct {
	SortField  string `json:"sort_field"`
	Descending *bool  `json:"descending"`
	Limit      int    `json:"limit"`
}

// SaveAgent stores a new agent record with defaults applied.
func (h *agentHandlers) SaveAgent(ctx context.Context, args json.RawMessage) (string, error) {
	var in saveAgentArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	name, _ := in.Doc[roster.FieldName].(string)
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: doc.name must not be blank", ErrInvalidArguments)
	}

	doc := h.defaults.ApplyDefaults(in.Doc)
	id, err := h.store.Put(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("saving agent: %w", err)
	}
	return "Saved agent: " + id, nil
}

// LoadAgent returns the JSON of one active agent.
func (h *agentHandlers) LoadAgent(ctx context.Context, args json.RawMessage) (string, error) {
	var in idArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	doc, err := h.store.Get(ctx, in.ID)
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", in.ID, err)
	}
	return marshalText(doc)
}

// DeleteAgent soft-deletes an agent.
func (h *agentHandlers) DeleteAgent(ctx context.Context, args json.RawMessage) (string, error) {
	var in idArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if err := h.store.Delete(ctx, in.ID); err != nil {
		return "", fmt.Errorf("agent %s: %w", in.ID, err)
	}
	return "Deleted agent: " + in.ID, nil
}

// ListAgents returns summaries of every active agent in insertion order.
func (h *agentHandlers) ListAgents(ctx context.Context, args json.RawMessage) (string, error) {
	all, err := h.store.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("listing agents: %w", err)
	}
	now := h.now()
	summaries := make([]roster.Summary, 0, len(all))
	for _, kv := range all {
		if roster.IsDeleted(kv.Value) {
			continue
		}
		summaries = append(summaries, roster.Summarize(kv.Key, kv.Value, now))
	}
	return marshalText(summaries)
}

// QueryAgents returns full agent records ordered by a field.
func (h *agentHandlers) QueryAgents(ctx context.Context, args json.RawMessage) (string, error) {
	var in queryAgentsArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	opts := store.QueryOptions{
		IncludeDocs: true,
		Descending:  true,
		Limit:       DefaultQueryLimit,
	}
	if in.Descending != nil {
		opts.Descending = *in.Descending
	}
	if in.Limit > 0 {
		opts.Limit = in.Limit
	}
	return queryDocs(ctx, h.store, in.SortField, opts)
}

func queryDocs(ctx context.Context, s store.DocumentStore, field string, opts store.QueryOptions) (string, error) {
	rows, err := s.QueryBySortedField(ctx, field, opts)
	if errors.Is(err, store.ErrInvalidField) {
		return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err != nil {
		return "", fmt.Errorf("querying by %s: %w", field, err)
	}
	docs := make([]store.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.Doc)
	}
	return marshalText(docs)
}

func marshalText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(b), nil
}
