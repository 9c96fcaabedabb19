package bus

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventRelayReceived  EventType = "relay_received"
	EventRelayDelivered EventType = "relay_delivered"
	EventRelayRejected  EventType = "relay_rejected"
	EventRelayFailed    EventType = "relay_failed"
)

type Event struct {
	Type       EventType         `json:"type"`
	At         time.Time         `json:"at"`
	Channel    string            `json:"channel,omitempty"`
	ChatID     int64             `json:"chat_id,omitempty"`
	SessionKey string            `json:"session_key,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (eb *EventBus) Publish(ctx context.Context, event Event) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-eb.done:
		return false
	default:
	}

	eb.mu.RLock()
	subs := make([]chan Event, 0, len(eb.subscribers))
	for _, ch := range eb.subscribers {
		subs = append(subs, ch)
	}
	eb.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking the publisher on slow subscribers.
		}
	}

	return true
}

func (eb *EventBus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	eb.mu.Lock()
	select {
	case <-eb.done:
		eb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := eb.nextSubscriberID
	eb.nextSubscriberID++
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			eb.mu.Lock()
			if eventCh, ok := eb.subscribers[id]; ok {
				delete(eb.subscribers, id)
				close(eventCh)
			}
			eb.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-eb.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}
