// Package audit forwards qualifying inbound messages to an operator log
// chat, best effort and off the reply path.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/losparviero/telesh/pkg/bus"
	"github.com/losparviero/telesh/pkg/config"
)

const forwardTimeout = 10 * time.Second

// Forwarder is the slice of the chat gateway the audit logger needs.
type Forwarder interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	ForwardMessage(ctx context.Context, toChatID int64, fromChatID int64, messageID int) error
}

// Logger copies inbound messages to the configured log destination. A
// failed forward is logged and swallowed; the user reply flow never waits
// on it.
type Logger struct {
	forwarder   Forwarder
	cfg         config.TelegramConfig
	destination int64
	log         *slog.Logger

	wg sync.WaitGroup
}

func New(forwarder Forwarder, cfg config.TelegramConfig, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}

	return &Logger{
		forwarder:   forwarder,
		cfg:         cfg,
		destination: cfg.LogDestination(),
		log:         log.With("component", "audit"),
	}
}

// Observe forwards the message in the background when it qualifies:
// non-command text from a chat that is not itself an operator chat, with a
// log destination configured.
func (l *Logger) Observe(msg bus.InboundMessage) {
	if l.destination == 0 {
		return
	}
	if msg.IsCommand() {
		return
	}
	if l.cfg.IsAdmin(msg.ChatID) {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()
		l.forward(ctx, msg)
	}()
}

// Wait blocks until all in-flight forwards settle. Used on shutdown.
func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) forward(ctx context.Context, msg bus.InboundMessage) {
	summary := fmt.Sprintf("*From: %s (@%s) ID:* `%d`", msg.DisplayName, msg.Username, msg.UserID)
	if err := l.forwarder.SendMessage(ctx, l.destination, summary); err != nil {
		l.log.Warn("Failed to send audit summary", "chat_id", msg.ChatID, "error", err)
	}

	if err := l.forwarder.ForwardMessage(ctx, l.destination, msg.ChatID, msg.MessageID); err != nil {
		l.log.Warn("Failed to forward audited message", "chat_id", msg.ChatID, "error", err)
	}
}
