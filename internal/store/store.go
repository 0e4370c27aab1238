// ABOUTME: DocumentStore interface and shared document types for agent-roster
// ABOUTME: Holds the sentinel errors and the Put preparation shared by all backends

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/agent-roster/internal/roster"
)

// ErrNotFound is returned when a requested document does not exist or has
// been soft-deleted.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the backend cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// ErrInvalidField is returned when a sort field cannot be used as a path.
var ErrInvalidField = errors.New("invalid sort field")

// Document is a decoded JSON object.
type Document map[string]any

// KeyValue is one entry of ListAll: the document id and its stored body.
type KeyValue struct {
	Key   string
	Value Document
}

// QueryOptions control QueryBySortedField.
type QueryOptions struct {
	IncludeDocs bool
	Descending  bool
	Limit       int // <= 0 means no limit
}

// Row is one result of QueryBySortedField. Key is the value of the sort
// field (nil when missing). Doc is only set when IncludeDocs was requested.
type Row struct {
	ID  string
	Key any
	Doc Document
}

// DocumentStore is the persistence contract used by the tool server.
type DocumentStore interface {
	// Put inserts a new document and returns its generated id.
	Put(ctx context.Context, doc Document) (string, error)

	// Get returns an active document. Returns ErrNotFound for unknown or
	// deleted ids.
	Get(ctx context.Context, id string) (Document, error)

	// Delete soft-deletes a document. Returns ErrNotFound for unknown or
	// already deleted ids.
	Delete(ctx context.Context, id string) error

	// ListAll returns every document, deleted ones included, in insertion
	// order.
	ListAll(ctx context.Context) ([]KeyValue, error)

	// QueryBySortedField returns active documents ordered by field.
	QueryBySortedField(ctx context.Context, field string, opts QueryOptions) ([]Row, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// prepare normalizes a document for insertion. The result is a JSON
// round-tripped copy, so every backend stores the same value shapes.
func prepare(doc Document, now time.Time) (Document, []byte, error) {
	clean := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		if k == roster.FieldID || k == roster.FieldDeleted {
			continue
		}
		clean[k] = v
	}
	clean[roster.FieldCreated] = now.UnixMilli()

	body, err := json.Marshal(clean)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding document: %w", err)
	}
	out, err := decode(body)
	if err != nil {
		return nil, nil, err
	}
	return out, body, nil
}

func decode(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// withID returns a copy of doc that carries its id and deleted flag.
func withID(id string, doc Document, deleted bool) Document {
	out := make(Document, len(doc)+2)
	for k, v := range doc {
		out[k] = v
	}
	out[roster.FieldID] = id
	if deleted {
		out[roster.FieldDeleted] = true
	} else {
		delete(out, roster.FieldDeleted)
	}
	return out
}

func checkField(field string) error {
	if field == "" || strings.ContainsAny(field, "\"\\") {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
