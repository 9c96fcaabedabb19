// Package channel defines the contract between chat transports and the
// relay runtime.
package channel

import (
	"context"

	"github.com/losparviero/telesh/pkg/bus"
)

// Handler processes one inbound message end to end. The returned error is
// observational: the handler has already reported terminal outcomes to the
// user by the time it returns.
type Handler func(ctx context.Context, msg bus.InboundMessage) error

// Adapter is a chat transport that feeds inbound messages into a Handler.
type Adapter interface {
	// Name returns the channel identifier used in bus metadata and logs.
	Name() string

	// Run blocks, receiving platform updates and dispatching them until
	// ctx is cancelled or the transport fails.
	Run(ctx context.Context, handler Handler) error
}
