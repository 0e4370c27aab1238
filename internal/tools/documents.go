// ABOUTME: Document pack: generic JSON document tools without agent defaults.
// ABOUTME: Kept for clients written against the original json_doc tool names.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/agent-roster/internal/store"
)

// DocumentPack creates the pack of generic JSON document tools.
func DocumentPack(s store.DocumentStore) *Pack {
	h := &documentHandlers{store: s}
	return &Pack{
		ID: "roster:documents",
		Tools: []*Tool{
			{
				Name:            "save_json_doc",
				Description:     "Save a JSON document (deprecated, use save_agent)",
				InputSchemaJSON: `{"type":"object","properties":{"doc":{"type":"object"}},"required":["doc"]}`,
				Handler:         h.SaveDoc,
			},
			{
				Name:            "load_json_doc",
				Description:     "Load a JSON document by ID",
				InputSchemaJSON: `{"type":"object","properties":{"id":{"type":"string","minLength":1}},"required":["id"]}`,
				Handler:         h.LoadDoc,
			},
			{
				Name:            "delete_json_doc",
				Description:     "Delete a JSON document by ID",
				InputSchemaJSON: `{"type":"object","properties":{"id":{"type":"string","minLength":1}},"required":["id"]}`,
				Handler:         h.DeleteDoc,
			},
			{
				Name:            "query_json_docs",
				Description:     "Query the 10 most recent JSON documents sorted descending by a field",
				InputSchemaJSON: `{"type":"object","properties":{"sort_field":{"type":"string","minLength":1,"pattern":"^[^\"\\\\]+$"}},"required":["sort_field"]}`,
				Handler:         h.QueryDocs,
			},
		},
	}
}

type documentHandlers struct {
	store store.DocumentStore
}

type saveDocArgs struct {
	Doc map[string]any `json:"doc"`
}

type queryDocsArgs struct {
	SortField string `json:"sort_field"`
}

// SaveDoc stores a document as sent.
func (h *documentHandlers) SaveDoc(ctx context.Context, args json.RawMessage) (string, error) {
	var in saveDocArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	id, err := h.store.Put(ctx, in.Doc)
	if err != nil {
		return "", fmt.Errorf("saving document: %w", err)
	}
	return "Saved document with ID: " + id, nil
}

// LoadDoc returns one active document.
func (h *documentHandlers) LoadDoc(ctx context.Context, args json.RawMessage) (string, error) {
	var in idArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	doc, err := h.store.Get(ctx, in.ID)
	if err != nil {
		return "", fmt.Errorf("document %s: %w", in.ID, err)
	}
	return marshalText(doc)
}

// DeleteDoc soft-deletes a document.
func (h *documentHandlers) DeleteDoc(ctx context.Context, args json.RawMessage) (string, error) {
	var in idArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if err := h.store.Delete(ctx, in.ID); err != nil {
		return "", fmt.Errorf("document %s: %w", in.ID, err)
	}
	return "Deleted document with ID: " + in.ID, nil
}

// QueryDocs returns up to 10 documents sorted descending by a field.
func (h *documentHandlers) QueryDocs(ctx context.Context, args json.RawMessage) (string, error) {
	var in queryDocsArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	return queryDocs(ctx, h.store, in.SortField, store.QueryOptions{
		IncludeDocs: true,
		Descending:  true,
		Limit:       DefaultQueryLimit,
	})
}
