package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySession persists the transcript in-process for fast prototyping and
// tests.
type MemorySession struct {
	id          string
	mu          sync.RWMutex
	messages    []Message
	checkpoints map[string][]Message
	closed      bool
	now         func() time.Time
}

// NewMemorySession constructs a MemorySession with the provided identifier.
// An empty id gets a generated one.
func NewMemorySession(id string) (*MemorySession, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		trimmed = uuid.NewString()
	}
	return &MemorySession{
		id:          trimmed,
		messages:    make([]Message, 0, 16),
		checkpoints: make(map[string][]Message),
		now:         time.Now,
	}, nil
}

// ID returns the stable identifier for the session.
func (s *MemorySession) ID() string {
	return s.id
}

// Append adds the message to the in-memory transcript.
func (s *MemorySession) Append(msg Message) error {
	if strings.TrimSpace(msg.Role) == "" {
		return fmt.Errorf("%w: role is required", ErrInvalidMessage)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	} else {
		msg.Timestamp = msg.Timestamp.UTC()
	}
	msg.ToolCalls = cloneToolCalls(msg.ToolCalls)
	s.messages = append(s.messages, msg)
	return nil
}

// List enumerates messages matching the filter in transcript order.
func (s *MemorySession) List(filter Filter) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	role := strings.TrimSpace(filter.Role)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	limit := filter.Limit
	if limit < 0 {
		limit = 0
	}

	var result []Message
	skipped := 0
	for _, msg := range s.messages {
		if role != "" && msg.Role != role {
			continue
		}
		if filter.StartTime != nil && msg.Timestamp.Before(filter.StartTime.UTC()) {
			continue
		}
		if filter.EndTime != nil && msg.Timestamp.After(filter.EndTime.UTC()) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, cloneMessage(msg))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// LastAnchor returns the most recent continuation anchor recorded on the
// transcript, or empty when none exists.
func (s *MemorySession) LastAnchor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Anchor != "" {
			return s.messages[i].Anchor
		}
	}
	return ""
}

// Checkpoint stores a snapshot of the transcript under the provided name.
func (s *MemorySession) Checkpoint(name string) error {
	normalized, err := normalizeCheckpointName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.checkpoints[normalized] = cloneMessages(s.messages)
	return nil
}

// Resume replaces the current transcript with the stored checkpoint.
func (s *MemorySession) Resume(name string) error {
	normalized, err := normalizeCheckpointName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	snapshot, ok := s.checkpoints[normalized]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCheckpointNotFound, normalized)
	}
	s.messages = cloneMessages(snapshot)
	return nil
}

// Fork clones the current state into a new MemorySession with the provided id.
func (s *MemorySession) Fork(id string) (Session, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, ErrInvalidSessionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return &MemorySession{
		id:          trimmed,
		messages:    cloneMessages(s.messages),
		checkpoints: cloneCheckpointMap(s.checkpoints),
		now:         s.now,
	}, nil
}

// Close releases references held by the session. Subsequent operations fail.
func (s *MemorySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.messages = nil
	s.checkpoints = nil
	return nil
}

func normalizeCheckpointName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidCheckpointName
	}
	return trimmed, nil
}

func cloneMessages(src []Message) []Message {
	if len(src) == 0 {
		return nil
	}
	dst := make([]Message, len(src))
	for i, msg := range src {
		dst[i] = cloneMessage(msg)
	}
	return dst
}

func cloneCheckpointMap(src map[string][]Message) map[string][]Message {
	if len(src) == 0 {
		return make(map[string][]Message)
	}
	dst := make(map[string][]Message, len(src))
	for name, msgs := range src {
		dst[name] = cloneMessages(msgs)
	}
	return dst
}

func cloneMessage(msg Message) Message {
	cloned := msg
	cloned.ToolCalls = cloneToolCalls(msg.ToolCalls)
	return cloned
}

func cloneToolCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	dst := make([]ToolCall, len(calls))
	copy(dst, calls)
	return dst
}

// ensure interface compliance at compile time.
var _ Session = (*MemorySession)(nil)
