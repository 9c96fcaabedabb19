package relay

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/losparviero/telesh/pkg/bus"
)

func TestChainOrder(t *testing.T) {
	var order []string

	tag := func(name string) Interceptor {
		return func(next Handler) Handler {
			return func(ctx context.Context, msg bus.InboundMessage) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}

	handler := Chain(func(context.Context, bus.InboundMessage) error {
		order = append(order, "handler")
		return nil
	}, tag("first"), tag("second"))

	if err := handler(context.Background(), bus.InboundMessage{}); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	want := []string{"first", "second", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSerializeBlocksSameChat(t *testing.T) {
	locks := NewChatLocks()
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var inFlight, maxInFlight int

	handler := Chain(func(context.Context, bus.InboundMessage) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		select {
		case started <- struct{}{}:
		default:
		}
		<-release

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}, Serialize(locks))

	msg := bus.InboundMessage{ChatID: 1, SessionKey: "telegram:1"}

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = handler(context.Background(), msg)
		}()
	}

	<-started
	close(release)
	wg.Wait()

	if maxInFlight != 1 {
		t.Fatalf("max in-flight handlers for one chat = %d, want 1", maxInFlight)
	}
}

func TestSerializeAllowsDifferentChats(t *testing.T) {
	locks := NewChatLocks()

	// Hold chat 1's slot, then prove chat 2 still proceeds.
	releaseChatOne := locks.Acquire("telegram:1")
	defer releaseChatOne()

	done := make(chan struct{})
	handler := Chain(func(context.Context, bus.InboundMessage) error {
		close(done)
		return nil
	}, Serialize(locks))

	go func() {
		_ = handler(context.Background(), bus.InboundMessage{ChatID: 2, SessionKey: "telegram:2"})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different chat was blocked behind an unrelated in-flight update")
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	observed []bus.InboundMessage
}

func (o *recordingObserver) Observe(msg bus.InboundMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observed = append(o.observed, msg)
}

func TestAuditObservesBeforeHandling(t *testing.T) {
	observer := &recordingObserver{}
	handled := false

	handler := Chain(func(context.Context, bus.InboundMessage) error {
		observer.mu.Lock()
		defer observer.mu.Unlock()
		if len(observer.observed) != 1 {
			t.Error("expected observation before handling")
		}
		handled = true
		return nil
	}, Audit(observer))

	if err := handler(context.Background(), bus.InboundMessage{Text: "hello"}); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !handled {
		t.Fatal("handler never ran")
	}
}

func TestTimingPassesThroughErrors(t *testing.T) {
	wantErr := fail(KindInvalidInput, context.Canceled)
	handler := Chain(func(context.Context, bus.InboundMessage) error {
		return wantErr
	}, Timing(slog.New(slog.DiscardHandler)), Identity(slog.New(slog.DiscardHandler)))

	if err := handler(context.Background(), bus.InboundMessage{}); err != wantErr {
		t.Fatalf("error = %v, want the handler's failure", err)
	}
}
