package bus

import (
	"sync"
)

const defaultBufferSize = 100

// EventBus fans relay lifecycle events out to subscribers without ever
// blocking the publishing pipeline.
type EventBus struct {
	subscribers      map[uint64]chan Event
	nextSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		close(eb.done)

		eb.mu.Lock()
		for id, ch := range eb.subscribers {
			close(ch)
			delete(eb.subscribers, id)
		}
		eb.mu.Unlock()
	})
}
