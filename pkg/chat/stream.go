package chat

import (
	"context"
	"errors"

	"github.com/cexll/diagramchat-go/pkg/event"
)

const streamBuffer = 8

// ChatStream runs an exchange and relays its event trail over a channel. The
// channel closes when the run finishes; a run failure surfaces as a terminal
// error event rather than a return error so consumers have a single path.
func (e *Engine) ChatStream(ctx context.Context, messages []Message) (<-chan event.Event, error) {
	if len(messages) == 0 {
		return nil, errors.New("chat: no messages")
	}

	ch := make(chan event.Event, streamBuffer)
	go func() {
		defer close(ch)

		res, err := e.Chat(ctx, messages)
		if err != nil {
			emit(ctx, ch, event.NewEvent(event.EventError, e.sessionID(), event.ErrorData{
				Message:     err.Error(),
				Kind:        errorKind(err),
				Recoverable: false,
			}))
			return
		}
		for _, evt := range res.Events {
			if !emit(ctx, ch, evt) {
				return
			}
		}
	}()
	return ch, nil
}

func emit(ctx context.Context, ch chan<- event.Event, evt event.Event) bool {
	select {
	case ch <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

func errorKind(err error) string {
	if errors.Is(err, ErrMissingAnchor) {
		return "missing_anchor"
	}
	return "request_failed"
}
