// Package event describes the progress surface of a chat run: typed events
// emitted while the engine talks to the service and dispatches tools, plus
// an SSE writer for hosts that relay runs over HTTP.
package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the event kinds a chat run can emit.
type EventType string

const (
	EventProgress   EventType = "progress"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventCompletion EventType = "completion"
	EventError      EventType = "error"
)

// Event is a single timestamped occurrence within a chat run.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// NewEvent builds an event with a fresh id and the current time.
func NewEvent(typ EventType, sessionID string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Data:      data,
	}
}

// Validate enforces the minimal structural guarantees consumers rely on.
func (e Event) Validate() error {
	switch e.Type {
	case EventProgress, EventToolCall, EventToolResult, EventCompletion, EventError:
	default:
		return fmt.Errorf("event: unknown type %q", e.Type)
	}
	if e.ID == "" {
		return errors.New("event: id is empty")
	}
	return nil
}

// ProgressData reports a stage transition inside the run.
type ProgressData struct {
	Stage   string         `json:"stage"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ToolCallData describes a service-issued tool invocation about to run.
type ToolCallData struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Round     int    `json:"round"`
}

// ToolResultData carries the outcome of one tool invocation.
type ToolResultData struct {
	CallID   string        `json:"call_id"`
	Name     string        `json:"name"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CompletionData summarises the final parsed result of a run.
type CompletionData struct {
	Text              string `json:"text"`
	DiagramDefinition string `json:"diagram_definition,omitempty"`
	StopReason        string `json:"stop_reason"`
	ToolRounds        int    `json:"tool_rounds"`
}

// ErrorData reports a failure observed during the run.
type ErrorData struct {
	Message     string `json:"message"`
	Kind        string `json:"kind,omitempty"`
	Recoverable bool   `json:"recoverable"`
}

// normalizeEvent fills identity fields left empty by the producer.
func normalizeEvent(evt Event) Event {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	return evt
}
