package mcp

import (
	"encoding/json"

	"github.com/teamlenshq/teamlens/tool"
)

// ProtocolVersion is the Model Context Protocol revision implemented by
// the stdio binding.
const ProtocolVersion = "2024-11-05"

// ServerInfo identifies this server to clients.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities advertises what the server supports. Only tools are
// served here.
type ServerCapabilities struct {
	Tools *struct {
		ListChanged bool `json:"listChanged"`
	} `json:"tools,omitempty"`
}

// InitializeResponse is the reply to an initialize request.
type InitializeResponse struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ToolsListResponse is the reply to tools/list. The tool entries come
// straight from the registry's transport-neutral enumeration.
type ToolsListResponse struct {
	Tools []tool.ListedTool `json:"tools"`
}

// ToolCallParams are the parameters of a tools/call request.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// rawParams decodes request params, tolerating their absence.
func rawParams(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
