package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
)

// InputSchema is the transport-neutral structural schema published for a
// tool in list responses.
type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// Registry resolves tool names to handlers across one or more tool sets
// and normalizes every outcome into a Response. All transports share one
// Registry instance.
type Registry struct {
	sets   []*Set
	logger *slog.Logger
}

// NewRegistry creates a registry over the given tool sets. Enumeration
// order follows set registration order, then each set's declaration order.
func NewRegistry(sets []*Set, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{sets: sets, logger: logger}
}

// Sets returns the registered tool sets in registration order.
func (r *Registry) Sets() []*Set {
	return r.sets
}

// Find resolves a tool name across the registered sets.
func (r *Registry) Find(name string) (Definition, bool) {
	for _, set := range r.sets {
		if def, ok := set.Find(name); ok {
			return def, true
		}
	}
	return Definition{}, false
}

// ListedTool is one entry in a tool enumeration.
type ListedTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

// List enumerates every registered tool. Schema conversion is total: a
// definition whose schema cannot be converted is listed with an empty
// object schema rather than breaking enumeration of the others.
func (r *Registry) List() []ListedTool {
	var tools []ListedTool
	for _, set := range r.sets {
		for _, def := range set.Definitions() {
			schema, err := convertSchema(def.InputSchema)
			if err != nil {
				r.logger.Warn("unusable input schema, publishing empty schema",
					"tool", def.Name, "error", err)
				schema = InputSchema{Type: "object"}
			}
			tools = append(tools, ListedTool{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: schema,
			})
		}
	}
	return tools
}

// Execute resolves name across the registered sets and invokes the
// matching handler. Every outcome, including an unknown name or a handler
// failure, is reported in-band as a Response; Execute never panics and
// never returns a transport-level fault.
//
// Handlers report expected failures as errors formatted
// "Error <doing what>: <message>"; those become the response text
// verbatim. A panicking handler is contained and reported as
// "Error executing tool <name>: <message>".
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Response {
	def, ok := r.Find(name)
	if !ok {
		return ErrorResponse(fmt.Sprintf("Unknown tool: %s", name))
	}

	text, err := r.invoke(ctx, name, def, args)
	if err != nil {
		return ErrorResponse(err.Error())
	}
	return TextResponse(text)
}

// invoke runs a handler, converting a panic into an ordinary error so a
// misbehaving tool is scoped to its own invocation.
func (r *Registry) invoke(ctx context.Context, name string, def Definition, args map[string]any) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("Error executing tool %s: %v", name, rec)
		}
	}()
	return def.Handler(ctx, args)
}

// convertSchema lowers a jsonschema.Schema into the transport-neutral
// structural form via a JSON round trip.
func convertSchema(schema *jsonschema.Schema) (InputSchema, error) {
	if schema == nil {
		return InputSchema{Type: "object"}, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return InputSchema{}, fmt.Errorf("marshaling schema: %w", err)
	}
	var out InputSchema
	if err := json.Unmarshal(data, &out); err != nil {
		return InputSchema{}, fmt.Errorf("decoding schema: %w", err)
	}
	if out.Type == "" {
		out.Type = "object"
	}
	return out, nil
}
