// ABOUTME: Thread-safe catalogue of named tools with schema-checked invocation.
// ABOUTME: Manages pack registration, tool lookup, and collision detection.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrUnknownTool indicates no tool with the requested name is registered.
var ErrUnknownTool = errors.New("unknown tool")

// ErrInvalidArguments indicates the arguments do not satisfy the tool schema.
var ErrInvalidArguments = errors.New("invalid arguments")

// ErrToolCollision indicates a tool name is already registered.
var ErrToolCollision = errors.New("tool name collision")

// Handler runs a tool. args has already been validated against the tool's
// schema. The returned string is the single text payload of the result.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is one catalogue entry.
type Tool struct {
	Name            string
	Description     string
	InputSchemaJSON string
	Handler         Handler

	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

// InputSchema returns the parsed schema advertised to clients.
func (t *Tool) InputSchema() *jsonschema.Schema {
	return t.schema
}

// Pack groups tools registered together.
type Pack struct {
	ID    string
	Tools []*Tool
}

// Catalogue maintains the registered tools.
type Catalogue struct {
	mu     sync.RWMutex
	tools  map[string]*Tool // by tool name
	order  []string         // registration order
	packs  map[string]string // tool name -> pack ID
	logger *slog.Logger
}

// NewCatalogue creates an empty catalogue.
func NewCatalogue(logger *slog.Logger) *Catalogue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalogue{
		tools:  make(map[string]*Tool),
		packs:  make(map[string]string),
		logger: logger.With("component", "tools"),
	}
}

// RegisterPack compiles every tool schema and adds the pack's tools.
// Nothing is registered if any name collides or any schema is invalid.
func (c *Catalogue) RegisterPack(pack *Pack) error {
	compiled := make([]*Tool, 0, len(pack.Tools))
	seen := make(map[string]bool, len(pack.Tools))
	for _, t := range pack.Tools {
		if seen[t.Name] {
			return fmt.Errorf("%w: %s declared twice in pack %s", ErrToolCollision, t.Name, pack.ID)
		}
		seen[t.Name] = true

		schema, resolved, err := compileSchema(t.InputSchemaJSON)
		if err != nil {
			return fmt.Errorf("tool %s: %w", t.Name, err)
		}
		tool := *t
		tool.schema = schema
		tool.resolved = resolved
		compiled = append(compiled, &tool)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range compiled {
		if _, exists := c.tools[t.Name]; exists {
			return fmt.Errorf("%w: %s already registered by pack %s", ErrToolCollision, t.Name, c.packs[t.Name])
		}
	}
	for _, t := range compiled {
		c.tools[t.Name] = t
		c.packs[t.Name] = pack.ID
		c.order = append(c.order, t.Name)
	}

	c.logger.Debug("registered pack", "pack_id", pack.ID, "tools", len(compiled))
	return nil
}

// Lookup returns the tool with the given name.
func (c *Catalogue) Lookup(name string) (*Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (c *Catalogue) List() []*Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Tool, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tools[name])
	}
	return out
}

// Call validates args against the named tool's schema and runs its handler.
func (c *Catalogue) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool, ok := c.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := validate(tool.resolved, args); err != nil {
		c.logger.Debug("rejected tool arguments", "tool", name, "error", err)
		return "", err
	}

	start := time.Now()
	out, err := tool.Handler(ctx, args)
	c.logger.Debug("tool call",
		"tool", name,
		"duration", time.Since(start),
		"error", err,
	)
	return out, err
}

// Names returns the registered tool names in registration order.
func (c *Catalogue) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}
