// Package jsonrpc implements the JSON-RPC 2.0 wire format used by the
// stdio transport binding.
package jsonrpc

import (
	"context"
	"encoding/json"
)

// Version is the JSON-RPC protocol version.
const Version = "2.0"

// Request is a JSON-RPC request or notification. A notification carries
// no id and expects no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *ID             `json:"id,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response is a JSON-RPC response. Exactly one of Result and Error is
// set.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      *ID    `json:"id"`
}

// NewResponse creates a success or error response for the given id.
func NewResponse(id *ID, result any, err *Error) Response {
	return Response{
		JSONRPC: Version,
		Result:  result,
		Error:   err,
		ID:      id,
	}
}

// Handler processes a single JSON-RPC request.
type Handler interface {
	Handle(ctx context.Context, request Request) Response
}
