// ABOUTME: Agent record fields, security scheme types, and list projection.
// ABOUTME: Security accepts either a single scheme name or a list of names.

package roster

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Document field names shared by the store, the tools and the gateway.
const (
	FieldID                  = "_id"
	FieldDeleted             = "_deleted"
	FieldCreated             = "created"
	FieldName                = "name"
	FieldDescription         = "description"
	FieldContext             = "@context"
	FieldSecurityDefinitions = "securityDefinitions"
	FieldSecurity            = "security"
)

// Placeholders used by Summarize.
const (
	UnnamedAgent         = "Unnamed Agent"
	NoDescriptionMessage = "No description available"
)

// SecurityScheme describes how a caller authenticates against an agent.
type SecurityScheme struct {
	Scheme string `json:"scheme" yaml:"scheme" toml:"scheme"`
	In     string `json:"in" yaml:"in" toml:"in"`
	Name   string `json:"name" yaml:"name" toml:"name"`
}

// Security names the schemes that apply. One entry is encoded as a bare
// string, more than one as an array.
type Security []string

// MarshalJSON implements json.Marshaler.
func (s Security) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Security) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = Security{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("security must be a string or a list of strings: %w", err)
	}
	*s = Security(list)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Security) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Security{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = Security(list)
		return nil
	default:
		return fmt.Errorf("security must be a string or a list of strings (line %d)", node.Line)
	}
}

// UnmarshalTOML implements toml.Unmarshaler.
func (s *Security) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case string:
		*s = Security{t}
	case []any:
		list := make([]string, 0, len(t))
		for _, item := range t {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("security entries must be strings, got %T", item)
			}
			list = append(list, str)
		}
		*s = Security(list)
	default:
		return fmt.Errorf("security must be a string or a list of strings, got %T", v)
	}
	return nil
}

// Value returns the JSON-compatible form stored in documents.
func (s Security) Value() any {
	if len(s) == 1 {
		return s[0]
	}
	out := make([]any, len(s))
	for i, name := range s {
		out[i] = name
	}
	return out
}

// Summary is the projection returned by list_agents.
type Summary struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Created     int64  `json:"created"`
}

// Summarize projects a stored document. Missing name and description get
// placeholders; a missing created timestamp becomes now.
func Summarize(id string, doc map[string]any, now time.Time) Summary {
	s := Summary{
		ID:          id,
		Name:        UnnamedAgent,
		Description: NoDescriptionMessage,
		Created:     now.UnixMilli(),
	}
	if name, ok := doc[FieldName].(string); ok && name != "" {
		s.Name = name
	}
	if desc, ok := doc[FieldDescription].(string); ok && desc != "" {
		s.Description = desc
	}
	if created, ok := Millis(doc[FieldCreated]); ok {
		s.Created = created
	}
	return s
}

// Millis converts a decoded JSON number to int64 milliseconds.
func Millis(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	default:
		return 0, false
	}
}

// IsDeleted reports whether a stored document carries the soft-delete flag.
func IsDeleted(doc map[string]any) bool {
	deleted, _ := doc[FieldDeleted].(bool)
	return deleted
}
