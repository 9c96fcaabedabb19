package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	events, unsubscribe := eb.Subscribe(context.Background(), 1)
	t.Cleanup(unsubscribe)

	published := Event{Type: EventRelayDelivered, ChatID: 42, RequestID: "req-1"}
	if ok := eb.Publish(context.Background(), published); !ok {
		t.Fatal("expected publish to succeed")
	}

	select {
	case got := <-events:
		if got.Type != EventRelayDelivered {
			t.Fatalf("event type = %q, want %q", got.Type, EventRelayDelivered)
		}
		if got.ChatID != 42 {
			t.Fatalf("chat id = %d, want 42", got.ChatID)
		}
		if got.At.IsZero() {
			t.Fatal("expected publish to stamp event time")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event did not reach subscriber")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	_, unsubscribe := eb.Subscribe(context.Background(), 1)
	t.Cleanup(unsubscribe)

	// Both publishes must return without blocking even though the buffer
	// only holds one event.
	if ok := eb.Publish(context.Background(), Event{Type: EventRelayReceived}); !ok {
		t.Fatal("expected first publish to succeed")
	}
	if ok := eb.Publish(context.Background(), Event{Type: EventRelayReceived}); !ok {
		t.Fatal("expected second publish to succeed")
	}
}

func TestCloseStopsPublishing(t *testing.T) {
	eb := NewEventBus()
	eb.Close()

	if ok := eb.Publish(context.Background(), Event{Type: EventRelayFailed}); ok {
		t.Fatal("expected publish to fail after close")
	}
}

func TestCloseDrainsSubscribers(t *testing.T) {
	eb := NewEventBus()

	events, _ := eb.Subscribe(context.Background(), 1)
	eb.Close()

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscriber channel did not close")
	}
}

func TestContextCancellation(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := eb.Publish(ctx, Event{Type: EventRelayReceived}); ok {
		t.Fatal("expected publish to fail on canceled context")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	_, unsubscribe := eb.Subscribe(context.Background(), 1)
	unsubscribe()
	unsubscribe()
}

func TestIsCommand(t *testing.T) {
	if !(InboundMessage{Text: "/start"}).IsCommand() {
		t.Fatal("expected /start to be a command")
	}
	if !(InboundMessage{Text: "  /help "}).IsCommand() {
		t.Fatal("expected padded /help to be a command")
	}
	if (InboundMessage{Text: "https://youtube.com/shorts/abc"}).IsCommand() {
		t.Fatal("expected plain link to not be a command")
	}
}
