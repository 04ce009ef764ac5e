// Package mcp exposes the tool registry over the Model Context
// Protocol's two transport bindings: a long-lived stdio JSON-RPC channel
// and a stateless streamable HTTP handler.
//
// Both bindings serve the same registry contract; they differ only in
// how a failed tool invocation surfaces. The stdio binding returns the
// registry envelope as-is, isError flag included, because its protocol
// carries an in-band error flag. The HTTP binding has no such notion and
// unwraps an isError envelope into the transport's own failure
// signaling.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/teamlenshq/teamlens/jsonrpc"
	"github.com/teamlenshq/teamlens/tool"
)

// Server serves the stdio binding: it handles one JSON-RPC request at a
// time against the shared tool registry.
type Server struct {
	registry *tool.Registry
	info     ServerInfo
	logger   *slog.Logger

	mu       sync.Mutex
	resolved map[string]*jsonschema.Resolved
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a stdio MCP server over the registry.
func NewServer(registry *tool.Registry, info ServerInfo, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		info:     info,
		logger:   slog.Default(),
		resolved: make(map[string]*jsonschema.Resolved),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ jsonrpc.Handler = (*Server)(nil)

// Handle processes a single JSON-RPC request and returns its response.
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	switch request.Method {
	case "initialize":
		return jsonrpc.NewResponse(request.ID, InitializeResponse{
			ProtocolVersion: ProtocolVersion,
			Capabilities: ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged"`
				}{},
			},
			ServerInfo: s.info,
		}, nil)
	case "ping":
		return jsonrpc.NewResponse(request.ID, struct{}{}, nil)
	case "tools/list":
		return jsonrpc.NewResponse(request.ID, ToolsListResponse{Tools: s.registry.List()}, nil)
	case "tools/call":
		return s.handleToolsCall(ctx, request)
	default:
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, request.Method))
	}
}

func (s *Server) handleToolsCall(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	var params ToolCallParams
	if err := rawParams(request.Params, &params); err != nil {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err.Error()))
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	// Validation happens before the handler ever sees the arguments. An
	// unknown tool name skips validation and is reported in-band by the
	// registry instead.
	if def, ok := s.registry.Find(params.Name); ok {
		if err := s.validate(def, params.Arguments); err != nil {
			return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams,
				fmt.Sprintf("invalid arguments for tool %s: %s", params.Name, err)))
		}
	}

	result := s.registry.Execute(ctx, params.Name, params.Arguments)
	return jsonrpc.NewResponse(request.ID, result, nil)
}

// validate checks args against the tool's input schema. A schema that
// fails to resolve is logged and skipped: an unusable schema must not
// make its tool uncallable.
func (s *Server) validate(def tool.Definition, args map[string]any) error {
	if def.InputSchema == nil {
		return nil
	}

	s.mu.Lock()
	resolved, ok := s.resolved[def.Name]
	if !ok {
		var err error
		resolved, err = def.InputSchema.Resolve(nil)
		if err != nil {
			s.logger.Warn("input schema failed to resolve, skipping validation",
				"tool", def.Name, "error", err)
		}
		s.resolved[def.Name] = resolved
	}
	s.mu.Unlock()

	if resolved == nil {
		return nil
	}
	return resolved.Validate(args)
}
