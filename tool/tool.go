// Package tool defines the transport-neutral tool model shared by every
// platform integration: a named, schema-described operation that takes
// validated arguments and produces a single block of text.
package tool

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Handler executes one tool invocation. Arguments have already been
// validated against the tool's input schema by the transport layer.
// The returned string is the complete tool output; a non-nil error marks
// the invocation as failed.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Definition describes a single invocable tool. Definitions are immutable
// once constructed and live for the lifetime of their Set.
type Definition struct {
	// Name is globally unique and platform-prefixed,
	// e.g. "slack__search_messages".
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
}

// Set is the ordered collection of tools belonging to one platform
// integration. Enumeration order is construction order.
type Set struct {
	name     string
	defs     []Definition
	activity string
}

// NewSet creates a tool set for the named platform.
func NewSet(name string, defs ...Definition) *Set {
	return &Set{name: name, defs: defs}
}

// Name returns the platform name, e.g. "slack".
func (s *Set) Name() string {
	return s.name
}

// Definitions returns the set's tools in declaration order.
func (s *Set) Definitions() []Definition {
	return s.defs
}

// SetActivity records which of the set's tools provides the platform's
// latest-activity feed. The cross-platform activity tool fans out to
// these.
func (s *Set) SetActivity(name string) *Set {
	s.activity = name
	return s
}

// Activity returns the set's latest-activity tool, if designated.
func (s *Set) Activity() (Definition, bool) {
	if s.activity == "" {
		return Definition{}, false
	}
	return s.Find(s.activity)
}

// Find returns the tool with the given name. Lookup is by exact,
// case-sensitive match; there is no prefix or fuzzy matching.
func (s *Set) Find(name string) (Definition, bool) {
	for _, def := range s.defs {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Content is one block of tool output. In practice every response carries
// exactly one text block.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the uniform envelope crossing the registry/transport
// boundary for every tool invocation.
type Response struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResponse wraps a single text block in a Response.
func TextResponse(text string) Response {
	return Response{Content: []Content{{Type: "text", Text: text}}}
}

// ErrorResponse wraps a single text block in a Response marked as failed.
func ErrorResponse(text string) Response {
	return Response{Content: []Content{{Type: "text", Text: text}}, IsError: true}
}
