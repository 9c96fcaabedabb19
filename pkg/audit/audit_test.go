package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/losparviero/telesh/pkg/bus"
	"github.com/losparviero/telesh/pkg/config"
)

type recordingForwarder struct {
	mu        sync.Mutex
	summaries []string
	forwards  []int
	sendErr   error
}

func (f *recordingForwarder) SendMessage(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.summaries = append(f.summaries, text)
	return nil
}

func (f *recordingForwarder) ForwardMessage(_ context.Context, _ int64, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwards = append(f.forwards, messageID)
	return nil
}

func (f *recordingForwarder) snapshot() ([]string, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.summaries...), append([]int(nil), f.forwards...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestObserveForwardsUserMessages(t *testing.T) {
	forwarder := &recordingForwarder{}
	cfg := config.TelegramConfig{AdminChatIDs: []int64{900}}
	logger := New(forwarder, cfg, discardLogger())

	logger.Observe(bus.InboundMessage{
		ChatID:      1001,
		UserID:      42,
		DisplayName: "Test User",
		Username:    "testuser",
		MessageID:   7,
		Text:        "https://youtube.com/shorts/dQw4w9WgXcQ",
	})
	logger.Wait()

	summaries, forwards := forwarder.snapshot()
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if len(forwards) != 1 || forwards[0] != 7 {
		t.Fatalf("forwards = %v, want [7]", forwards)
	}
}

func TestObserveSkipsCommands(t *testing.T) {
	forwarder := &recordingForwarder{}
	logger := New(forwarder, config.TelegramConfig{AdminChatIDs: []int64{900}}, discardLogger())

	logger.Observe(bus.InboundMessage{ChatID: 1001, Text: "/start"})
	logger.Wait()

	summaries, forwards := forwarder.snapshot()
	if len(summaries) != 0 || len(forwards) != 0 {
		t.Fatal("commands must not be audited")
	}
}

func TestObserveSkipsAdminChats(t *testing.T) {
	forwarder := &recordingForwarder{}
	logger := New(forwarder, config.TelegramConfig{AdminChatIDs: []int64{900}}, discardLogger())

	logger.Observe(bus.InboundMessage{ChatID: 900, Text: "hello"})
	logger.Wait()

	summaries, _ := forwarder.snapshot()
	if len(summaries) != 0 {
		t.Fatal("operator chats must not be audited")
	}
}

func TestObserveNoopWithoutDestination(t *testing.T) {
	forwarder := &recordingForwarder{}
	logger := New(forwarder, config.TelegramConfig{}, discardLogger())

	logger.Observe(bus.InboundMessage{ChatID: 1001, Text: "hello"})
	logger.Wait()

	summaries, _ := forwarder.snapshot()
	if len(summaries) != 0 {
		t.Fatal("auditing must be disabled without a destination")
	}
}

func TestForwardStillForwardsAfterSummaryFailure(t *testing.T) {
	forwarder := &recordingForwarder{sendErr: errors.New("summary rejected")}
	logger := New(forwarder, config.TelegramConfig{LogChannelID: -100}, discardLogger())

	logger.forward(context.Background(), bus.InboundMessage{ChatID: 1001, MessageID: 7, Text: "hello"})

	_, forwards := forwarder.snapshot()
	if len(forwards) != 1 {
		t.Fatalf("forwards = %v, want the original message forwarded despite summary failure", forwards)
	}
}
