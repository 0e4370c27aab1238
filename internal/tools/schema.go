// ABOUTME: JSON schema compilation and argument validation for tools
// ABOUTME: Wraps google/jsonschema-go so failures match ErrInvalidArguments

package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

func compileSchema(src string) (*jsonschema.Schema, *jsonschema.Resolved, error) {
	if src == "" {
		src = `{"type":"object"}`
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(src), &schema); err != nil {
		return nil, nil, fmt.Errorf("parsing input schema: %w", err)
	}
	if schema.Type != "object" {
		return nil, nil, fmt.Errorf("input schema must have type object, got %q", schema.Type)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving input schema: %w", err)
	}
	return &schema, resolved, nil
}

func validate(resolved *jsonschema.Resolved, args json.RawMessage) error {
	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return fmt.Errorf("%w: arguments are not valid JSON: %v", ErrInvalidArguments, err)
	}
	if _, ok := instance.(map[string]any); !ok {
		return fmt.Errorf("%w: arguments must be a JSON object", ErrInvalidArguments)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

// decodeArgs unmarshals validated arguments into dst.
func decodeArgs(args json.RawMessage, dst any) error {
	if err := json.Unmarshal(args, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
