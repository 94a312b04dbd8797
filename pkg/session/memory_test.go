package session

import (
	"errors"
	"testing"
	"time"
)

func newMemorySessionForTest(t *testing.T) *MemorySession {
	t.Helper()
	sess, err := NewMemorySession("chat")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return sess
}

func TestMemorySessionAppend(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0).UTC()
	tests := []struct {
		name    string
		msg     Message
		prepare func(*MemorySession)
		wantErr error
		assert  func(t *testing.T, sess *MemorySession)
	}{
		{
			name: "auto fill id and timestamp",
			msg:  Message{Role: "user", Content: "hi"},
			assert: func(t *testing.T, sess *MemorySession) {
				t.Helper()
				msgs, err := sess.List(Filter{})
				if err != nil {
					t.Fatalf("list: %v", err)
				}
				if len(msgs) != 1 {
					t.Fatalf("messages len = %d", len(msgs))
				}
				if msgs[0].ID == "" {
					t.Fatal("id must be generated")
				}
				if !msgs[0].Timestamp.Equal(fixed) {
					t.Fatalf("timestamp = %s", msgs[0].Timestamp)
				}
			},
		},
		{
			name:    "missing role rejected",
			msg:     Message{Content: "hi"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "closed session prevents append",
			msg:     Message{Role: "user", Content: "after"},
			prepare: func(sess *MemorySession) { _ = sess.Close() },
			wantErr: ErrSessionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newMemorySessionForTest(t)
			sess.now = func() time.Time { return fixed }
			if tt.prepare != nil {
				tt.prepare(sess)
			}
			err := sess.Append(tt.msg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("append: %v", err)
			}
			if tt.assert != nil {
				tt.assert(t, sess)
			}
		})
	}
}

func TestMemorySessionListFilters(t *testing.T) {
	sess := newMemorySessionForTest(t)
	base := time.Unix(1_700_000_000, 0).UTC()
	for i, role := range []string{"user", "assistant", "user", "assistant"} {
		msg := Message{Role: role, Content: "m", Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := sess.Append(msg); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	assistants, err := sess.List(Filter{Role: "assistant"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assistants) != 2 {
		t.Fatalf("assistant messages = %d", len(assistants))
	}

	cutoff := base.Add(90 * time.Second)
	late, err := sess.List(Filter{StartTime: &cutoff})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(late) != 2 {
		t.Fatalf("late messages = %d", len(late))
	}

	paged, err := sess.List(Filter{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paged) != 2 || paged[0].Role != "assistant" {
		t.Fatalf("paged = %+v", paged)
	}
}

func TestMemorySessionLastAnchor(t *testing.T) {
	sess := newMemorySessionForTest(t)
	if sess.LastAnchor() != "" {
		t.Fatal("empty transcript must have no anchor")
	}
	_ = sess.Append(Message{Role: "user", Content: "draw"})
	_ = sess.Append(Message{Role: "assistant", Content: "here", Anchor: "resp_1"})
	_ = sess.Append(Message{Role: "user", Content: "again"})
	if got := sess.LastAnchor(); got != "resp_1" {
		t.Fatalf("anchor = %s", got)
	}
	_ = sess.Append(Message{Role: "assistant", Content: "done", Anchor: "resp_2"})
	if got := sess.LastAnchor(); got != "resp_2" {
		t.Fatalf("anchor = %s", got)
	}
}

func TestMemorySessionCheckpointResumeFork(t *testing.T) {
	sess := newMemorySessionForTest(t)
	_ = sess.Append(Message{Role: "user", Content: "one"})
	if err := sess.Checkpoint("before-tools"); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	_ = sess.Append(Message{Role: "assistant", Content: "two", ToolCalls: []ToolCall{{CallID: "call_1", Name: "get_docs"}}})

	fork, err := sess.Fork("chat-fork")
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	forkMsgs, _ := fork.List(Filter{})
	if len(forkMsgs) != 2 {
		t.Fatalf("fork messages = %d", len(forkMsgs))
	}

	if err := sess.Resume("before-tools"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	msgs, _ := sess.List(Filter{})
	if len(msgs) != 1 {
		t.Fatalf("messages after resume = %d", len(msgs))
	}

	if err := sess.Resume("missing"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("resume missing = %v", err)
	}
	if _, err := sess.Fork("  "); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("fork blank id = %v", err)
	}
}

func TestMemorySessionCloseIsIdempotent(t *testing.T) {
	sess := newMemorySessionForTest(t)
	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := sess.List(Filter{}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("list after close = %v", err)
	}
}
