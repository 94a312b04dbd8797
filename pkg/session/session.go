// Package session keeps the in-process transcript of a conversation: the
// turns exchanged with the service, the tool invocations each turn caused,
// and the continuation anchors that tie rounds together. Nothing here
// survives a process restart.
package session

import (
	"errors"
	"time"
)

var (
	ErrInvalidSessionID      = errors.New("session: invalid session id")
	ErrInvalidMessage        = errors.New("session: invalid message")
	ErrSessionClosed         = errors.New("session: closed")
	ErrInvalidCheckpointName = errors.New("session: invalid checkpoint name")
	ErrCheckpointNotFound    = errors.New("session: checkpoint not found")
)

// ToolCall records one service-issued tool invocation answered by the engine.
type ToolCall struct {
	CallID    string        `json:"call_id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Message is a single persisted conversational turn. Assistant turns may
// carry the diagram definition extracted from the reply and the anchor the
// service handed back for continuations.
type Message struct {
	ID                string     `json:"id"`
	Role              string     `json:"role"`
	Content           string     `json:"content,omitempty"`
	DiagramDefinition string     `json:"diagram_definition,omitempty"`
	Anchor            string     `json:"anchor,omitempty"`
	ToolCalls         []ToolCall `json:"tool_calls,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
}

// Filter constrains the message subset returned by Session.List.
type Filter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Role      string
	Limit     int
	Offset    int
}

// Session is the transcript surface the engine and hosts share.
type Session interface {
	ID() string
	Append(msg Message) error
	List(filter Filter) ([]Message, error)
	Checkpoint(name string) error
	Resume(name string) error
	Fork(id string) (Session, error)
	Close() error
}
