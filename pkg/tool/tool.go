// Package tool defines the local capabilities the chat engine can offer to
// the generative service as function tools, plus the registry that declares
// and dispatches them.
package tool

import "context"

// Tool is a named local capability. Name, Description and Schema feed the
// tool declaration sent with every request; Execute runs when the service
// issues a call.
type Tool interface {
	Name() string
	Description() string
	Schema() *JSONSchema
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Result captures the outcome of a tool invocation. When Data is set it is
// JSON-encoded verbatim into the function-call output; otherwise Output is
// encoded as a plain JSON string.
type Result struct {
	Output string
	Data   any
}
