package chat

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/cexll/diagramchat-go/pkg/event"
)

// Stop reasons reported on Result.StopReason.
const (
	// StopComplete means the final response carried no further dispatchable
	// tool calls.
	StopComplete = "complete"
	// StopMaxToolRounds means the continuation budget was exhausted while the
	// service was still requesting tool invocations. The last response is
	// parsed and returned as-is.
	StopMaxToolRounds = "max_tool_rounds"
)

// ToolCall records one dispatched tool invocation within a chat exchange.
type ToolCall struct {
	CallID    string        `json:"call_id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Result is the outcome of a completed chat exchange.
type Result struct {
	// Text is the assistant's reply with any structured envelope unwrapped.
	Text string `json:"text"`
	// DiagramDefinition is the extracted diagram source, empty when the reply
	// carried none.
	DiagramDefinition string `json:"diagram_definition,omitempty"`
	// StopReason is StopComplete or StopMaxToolRounds.
	StopReason string `json:"stop_reason"`
	// ToolCalls lists every dispatched invocation across all rounds, in the
	// order the service requested them.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// Events is the progress trail accumulated during the exchange.
	Events []event.Event `json:"events,omitempty"`
	// Raw is the final response body exactly as received.
	Raw json.RawMessage `json:"-"`
}
