package consumer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/freundallein/sqsplayground/chassis/protocol"
	"github.com/freundallein/sqsplayground/chassis/queue"
)

// Handler processes a decoded message. Returning an error leaves the
// message unacknowledged so the backend redelivers it.
type Handler interface {
	Handle(ctx context.Context, msg *queue.RecvMessage, data *protocol.MessageData) error
}

// HandlerFunc - ...
type HandlerFunc func(ctx context.Context, msg *queue.RecvMessage, data *protocol.MessageData) error

// Handle ...
func (f HandlerFunc) Handle(ctx context.Context, msg *queue.RecvMessage, data *protocol.MessageData) error {
	return f(ctx, msg, data)
}

// LogHandler prints every payload it gets.
type LogHandler struct {
	Out io.Writer
}

// Handle ...
func (h LogHandler) Handle(_ context.Context, _ *queue.RecvMessage, data *protocol.MessageData) error {
	out := h.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := fmt.Fprintln(out, "=>", data)
	return err
}

// Chain runs handlers in order and stops at the first error.
func Chain(handlers ...Handler) Handler {
	return HandlerFunc(func(ctx context.Context, msg *queue.RecvMessage, data *protocol.MessageData) error {
		for _, h := range handlers {
			if err := h.Handle(ctx, msg, data); err != nil {
				return err
			}
		}
		return nil
	})
}
