package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/teamlenshq/teamlens/tool"
)

// NewStreamableHandler serves the registry over the streamable HTTP
// binding. The handler is stateless: every request is self-contained
// and no session ids are issued.
//
// Unlike the stdio binding, a tool failure here surfaces as a request
// error rather than an in-band isError result.
func NewStreamableHandler(registry *tool.Registry, info ServerInfo, logger *slog.Logger) http.Handler {
	server := sdk.NewServer(&sdk.Implementation{
		Name:    info.Name,
		Version: info.Version,
	}, nil)

	for _, set := range registry.Sets() {
		for _, def := range set.Definitions() {
			addTool(server, registry, def, logger)
		}
	}

	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return server
	}, &sdk.StreamableHTTPOptions{Stateless: true})
}

func addTool(server *sdk.Server, registry *tool.Registry, def tool.Definition, logger *slog.Logger) {
	schema := def.InputSchema
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}

	name := def.Name
	sdk.AddTool(server, &sdk.Tool{
		Name:        name,
		Description: def.Description,
		InputSchema: schema,
	}, func(ctx context.Context, req *sdk.CallToolRequest, args map[string]any) (*sdk.CallToolResult, any, error) {
		if args == nil {
			args = map[string]any{}
		}
		result := registry.Execute(ctx, name, args)
		text := responseText(result)
		if result.IsError {
			logger.Warn("tool call failed", "tool", name, "error", text)
			return nil, nil, errors.New(text)
		}
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: text}},
		}, nil, nil
	})
}

func responseText(r tool.Response) string {
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text
		}
	}
	return ""
}
