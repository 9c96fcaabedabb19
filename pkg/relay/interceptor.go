package relay

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/losparviero/telesh/pkg/bus"
)

const messagePreviewLimit = 240

// Handler processes one inbound message end to end.
type Handler func(ctx context.Context, msg bus.InboundMessage) error

// Interceptor wraps a handler with one cross-cutting concern. The dispatch
// pipeline is composed as an explicit ordered chain rather than a
// framework middleware stack.
type Interceptor func(Handler) Handler

// Chain applies interceptors so that the first one listed runs outermost.
func Chain(handler Handler, interceptors ...Interceptor) Handler {
	for i := len(interceptors) - 1; i >= 0; i-- {
		handler = interceptors[i](handler)
	}

	return handler
}

// Timing logs the wall-clock handling time of every update.
func Timing(log *slog.Logger) Interceptor {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg bus.InboundMessage) error {
			start := time.Now()
			err := next(ctx, msg)
			log.Info("Handled update",
				"chat_id", msg.ChatID,
				"request_id", msg.RequestID,
				"elapsed", time.Since(start),
			)
			return err
		}
	}
}

// Identity logs who sent what before handling starts.
func Identity(log *slog.Logger) Interceptor {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg bus.InboundMessage) error {
			log.Info("Received message",
				"from", msg.DisplayName,
				"username", msg.Username,
				"user_id", msg.UserID,
				"chat_id", msg.ChatID,
				"text", previewText(msg.Text),
			)
			return next(ctx, msg)
		}
	}
}

// Observer consumes inbound messages without influencing the reply flow.
type Observer interface {
	Observe(msg bus.InboundMessage)
}

// Audit hands each message to the observer before handling; the observer
// must not block.
func Audit(observer Observer) Interceptor {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg bus.InboundMessage) error {
			observer.Observe(msg)
			return next(ctx, msg)
		}
	}
}

// Serialize queues updates from the same chat behind each other.
func Serialize(locks *ChatLocks) Interceptor {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg bus.InboundMessage) error {
			release := locks.Acquire(msg.SessionKey)
			defer release()
			return next(ctx, msg)
		}
	}
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
