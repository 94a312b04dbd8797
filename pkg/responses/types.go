package responses

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Item type discriminators used on the Responses wire.
const (
	ItemTypeMessage            = "message"
	ItemTypeFunctionCall       = "function_call"
	ItemTypeFunctionCallOutput = "function_call_output"
)

// Request is the outbound body for a create-response call. The same shape is
// used for the initial turn and for tool-output continuations; the two differ
// only in which input items are present and whether PreviousResponseID is set.
type Request struct {
	Model              string      `json:"model"`
	Input              []InputItem `json:"input"`
	Temperature        float64     `json:"temperature"`
	Text               *TextFormat `json:"text,omitempty"`
	Tools              []ToolParam `json:"tools,omitempty"`
	ToolChoice         string      `json:"tool_choice,omitempty"`
	PreviousResponseID string      `json:"previous_response_id,omitempty"`
}

// InputItem is a union of the two input kinds the protocol accepts: a
// role-tagged conversation message, or a function-call output echoing a
// prior tool invocation. A single request never mixes the two.
type InputItem struct {
	Type    string `json:"type,omitempty"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	CallID  string `json:"call_id,omitempty"`
	Output  string `json:"output,omitempty"`
}

// MessageInput builds a role-tagged conversation input item.
func MessageInput(role, content string) InputItem {
	return InputItem{Role: role, Content: content}
}

// FunctionCallOutput builds the continuation item answering a tool call. The
// call itself is not echoed back; only its output travels on the wire.
func FunctionCallOutput(callID, output string) InputItem {
	return InputItem{Type: ItemTypeFunctionCallOutput, CallID: callID, Output: output}
}

// ToolParam declares a callable function tool to the service.
type ToolParam struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      bool            `json:"strict,omitempty"`
}

// TextFormat nests the structured-output declaration under the "text" key.
type TextFormat struct {
	Format OutputFormat `json:"format"`
}

// OutputFormat is the json_schema declaration nudging the service toward a
// fixed reply shape.
type OutputFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
	Strict bool            `json:"strict,omitempty"`
}

// Response is the decoded create-response body. The field set is deliberately
// loose: the protocol family ships several near-identical shapes and none of
// them may fail decoding. Raw preserves the unparsed body for callers.
type Response struct {
	ID         string          `json:"id"`
	Status     string          `json:"status,omitempty"`
	Output     []OutputItem    `json:"output,omitempty"`
	OutputText string          `json:"output_text,omitempty"`
	Nested     *Envelope       `json:"response,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Envelope covers the provider variant that wraps the response one level
// deeper under a "response" key.
type Envelope struct {
	ID         string       `json:"id"`
	Output     []OutputItem `json:"output,omitempty"`
	OutputText string       `json:"output_text,omitempty"`
}

// Anchor returns the opaque identifier used to continue the exchange,
// preferring the top-level id over the nested one. Empty means the response
// cannot be continued.
func (r *Response) Anchor() string {
	if r == nil {
		return ""
	}
	if r.ID != "" {
		return r.ID
	}
	if r.Nested != nil {
		return r.Nested.ID
	}
	return ""
}

// Items returns the output collection regardless of nesting depth.
func (r *Response) Items() []OutputItem {
	if r == nil {
		return nil
	}
	if len(r.Output) > 0 {
		return r.Output
	}
	if r.Nested != nil {
		return r.Nested.Output
	}
	return nil
}

// AggregatedText returns the convenience output_text field when present.
func (r *Response) AggregatedText() string {
	if r == nil {
		return ""
	}
	if r.OutputText != "" {
		return r.OutputText
	}
	if r.Nested != nil {
		return r.Nested.OutputText
	}
	return ""
}

// OutputItem is one entry of the response output collection: either a
// top-level function call or a message wrapping content entries.
type OutputItem struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Role      string         `json:"role,omitempty"`
	Status    string         `json:"status,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments string         `json:"arguments,omitempty"`
	Content   []ContentEntry `json:"content,omitempty"`
}

// ContentEntry is one chunk inside a message item. Text chunks, native JSON
// payloads, and nested tool-call shapes all land here; absent fields stay
// zero-valued rather than failing the decode.
type ContentEntry struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	JSON      json.RawMessage `json:"json,omitempty"`
	Parsed    json.RawMessage `json:"parsed,omitempty"`
	ID        string          `json:"id,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Function  *FunctionRef    `json:"function,omitempty"`
}

// StructuredPayload returns the native JSON payload of the entry, if any.
func (e ContentEntry) StructuredPayload() json.RawMessage {
	if len(e.JSON) > 0 {
		return e.JSON
	}
	return e.Parsed
}

// FunctionRef is the nested function-object layout some response vintages
// use for tool calls inside message content.
type FunctionRef struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// APIError reports a non-2xx response from the service. The body is captured
// verbatim so callers can surface the provider's own diagnostics. Transport
// failures are never retried here; retry policy belongs to the caller.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("responses API error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("responses API error (%d): %s", e.StatusCode, e.Body)
}
