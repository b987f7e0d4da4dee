package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kilnhq/relay/pkg/models"
)

// MaxToolNameLength bounds a registered tool's name.
const MaxToolNameLength = 256

// MaxToolParamsSize bounds the JSON size of a tool's input before dispatch.
const MaxToolParamsSize = 10 << 20

// Registry is a name-keyed, read-only-after-setup dispatch table of Tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, overwriting any previous tool with the same name.
// The tool's input_schema is compiled at registration time; a schema that
// fails to compile is a programmer error and rejects the registration.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" || len(name) > MaxToolNameLength {
		return fmt.Errorf("invalid tool name %q", name)
	}

	schema, err := compileSchema(name, t.Definition().InputSchema)
	if err != nil {
		return fmt.Errorf("tool %q: compile input_schema: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	r.schemas[name] = schema
	return nil
}

// compileSchema compiles a tool's input_schema map into a validator. A nil
// or empty schema is valid and simply means no input validation happens.
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	url := "tool://" + name + "/input_schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// HasTool reports whether name is registered.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// IsReadOnly reports whether the named tool is read-only. Unregistered
// names report false.
func (r *Registry) IsReadOnly(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return false
	}
	return t.IsReadOnly()
}

// Definitions returns every registered tool's definition, converted into
// the model-facing wire shape.
func (r *Registry) Definitions() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, toWireDefinition(t.Definition()))
	}
	return defs
}

// ReadOnlyDefinitions returns only the read-only tools' definitions, used
// in plan mode to restrict what the model is offered.
func (r *Registry) ReadOnlyDefinitions() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		if t.IsReadOnly() {
			defs = append(defs, toWireDefinition(t.Definition()))
		}
	}
	return defs
}

func toWireDefinition(d ToolDefinition) models.ToolDefinition {
	wire := models.ToolDefinition{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.InputSchema,
	}
	if d.CacheControl != nil {
		wire.CacheControl = &models.CacheControl{Type: *d.CacheControl}
	}
	return wire
}

// Execute dispatches to the named tool, enforcing the input-size cap and
// the tool's compiled input_schema (when it has one) before the call
// reaches the tool, and returning ErrUnknownTool if name isn't registered.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage, tc ToolContext) (*ToolOutput, *ToolError) {
	r.mu.RLock()
	t, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ToolError{Kind: ErrUnknownTool, Tool: name}
	}
	if len(input) > MaxToolParamsSize {
		return nil, &ToolError{Kind: ErrInvalidInput, Tool: name, Message: "input exceeds maximum size"}
	}
	if schema != nil && len(input) > 0 {
		var doc any
		if err := json.Unmarshal(input, &doc); err != nil {
			return nil, &ToolError{Kind: ErrInvalidInput, Tool: name, Message: "input is not valid JSON: " + err.Error()}
		}
		if err := schema.Validate(doc); err != nil {
			return nil, &ToolError{Kind: ErrInvalidInput, Tool: name, Message: "input_schema violation: " + err.Error()}
		}
	}
	return t.Execute(ctx, input, tc)
}
