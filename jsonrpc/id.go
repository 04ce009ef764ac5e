package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ID is a JSON-RPC request id, which must be a string or a number.
type ID struct {
	value any
}

// StringID creates a string id.
func StringID(s string) *ID {
	return &ID{value: s}
}

// NumberID creates a numeric id.
func NumberID(n int) *ID {
	return &ID{value: n}
}

// Value returns the underlying string or int.
func (id ID) Value() any {
	return id.value
}

var _ json.Marshaler = ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

var _ json.Unmarshaler = &ID{}

func (id *ID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		id.value = v
	case float64: // JSON numbers decode as float64
		id.value = int(v)
	default:
		return fmt.Errorf("id must be string or number, got %T", raw)
	}
	return nil
}
