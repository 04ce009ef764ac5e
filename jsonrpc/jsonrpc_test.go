package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestUnmarshal(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "tools/list", req.Method)
	assert.False(t, req.IsNotification())
	assert.Equal(t, 1, req.ID.Value())
}

func TestNotificationHasNoID(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`), &req)
	require.NoError(t, err)
	assert.True(t, req.IsNotification())
}

func TestIDStringAndNumber(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &id))
	assert.Equal(t, "abc", id.Value())

	require.NoError(t, json.Unmarshal([]byte(`7`), &id))
	assert.Equal(t, 7, id.Value())

	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
	assert.Error(t, json.Unmarshal([]byte(`null`), &id))
}

func TestResponseMarshal(t *testing.T) {
	resp := NewResponse(NumberID(3), map[string]any{"ok": true}, nil)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":{"ok":true},"id":3}`, string(data))
}

func TestErrorResponseMarshal(t *testing.T) {
	resp := NewResponse(StringID("a"), nil, NewError(ErrMethodNotFound, nil))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":"a"}`, string(data))
}

func TestNewErrorUnknownCode(t *testing.T) {
	e := NewError(ErrorCode(-32050), "details")
	assert.Equal(t, "Server error", e.Message)
	assert.Equal(t, "details", e.Data)
}
