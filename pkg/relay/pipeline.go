// Package relay drives one inbound message through the download-and-reply
// state machine: classify, resolve, fetch, size-gate, deliver, cleanup.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/losparviero/telesh/pkg/bus"
	"github.com/losparviero/telesh/pkg/config"
	"github.com/losparviero/telesh/pkg/shorts"
)

// MaxUploadBytes is the chat platform's upload ceiling for bot video
// attachments.
const MaxUploadBytes int64 = 50 << 20

const terminalReplyTimeout = 5 * time.Second

// Classifier validates message text into a video reference.
type Classifier interface {
	Classify(ctx context.Context, text string) (shorts.VideoReference, error)
}

// Resolver selects and opens a playable stream for a validated reference.
type Resolver interface {
	Resolve(ctx context.Context, ref shorts.VideoReference) (shorts.StreamCandidate, error)
	OpenStream(ctx context.Context, candidate shorts.StreamCandidate) (io.ReadCloser, int64, error)
}

// Pipeline relays Shorts videos back into the chat they were requested
// from. One Handle call owns all resources it creates; nothing is shared
// across requests.
type Pipeline struct {
	classifier Classifier
	resolver   Resolver
	gateway    Gateway
	events     *bus.EventBus
	log        *slog.Logger

	budget   time.Duration
	tempDir  string
	maxBytes int64
}

func NewPipeline(classifier Classifier, resolver Resolver, gateway Gateway, events *bus.EventBus, cfg config.RelayConfig, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Pipeline{
		classifier: classifier,
		resolver:   resolver,
		gateway:    gateway,
		events:     events,
		log:        log.With("component", "relay.pipeline"),
		budget:     cfg.Timeout(),
		tempDir:    tempDir,
		maxBytes:   MaxUploadBytes,
	}
}

// Handle runs one inbound message through the full relay state machine
// under the wall-clock budget. Every failure is classified, reported to
// the user, and returned for observability; nothing escapes to crash the
// dispatch loop.
func (p *Pipeline) Handle(ctx context.Context, msg bus.InboundMessage) error {
	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	p.events.Publish(context.WithoutCancel(ctx), p.event(bus.EventRelayReceived, msg, nil))

	err := p.relay(ctx, msg)
	if err == nil {
		p.events.Publish(context.WithoutCancel(ctx), p.event(bus.EventRelayDelivered, msg, nil))
		return nil
	}

	failure := classify(err)
	p.report(ctx, msg, failure)
	return failure
}

// relay walks the state machine; every early return carries a *Failure.
func (p *Pipeline) relay(ctx context.Context, msg bus.InboundMessage) error {
	ref, err := p.classifier.Classify(ctx, msg.Text)
	if err != nil {
		return classifyInput(err)
	}

	statusID, err := p.gateway.Reply(ctx, msg.ChatID, msgDownloading, 0)
	if err != nil {
		p.log.Warn("Failed to send status message", "chat_id", msg.ChatID, "error", err)
	}
	if statusID != 0 {
		defer func() {
			deleteCtx, cancel := detached(ctx)
			defer cancel()
			if err := p.gateway.DeleteMessage(deleteCtx, msg.ChatID, statusID); err != nil {
				p.log.Debug("Failed to delete status message", "chat_id", msg.ChatID, "error", err)
			}
		}()
	}

	candidate, err := p.resolver.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, shorts.ErrNoFormat) {
			return fail(KindNoFormat, err)
		}
		return fail(KindUpstream, err)
	}

	if size := candidate.ReportedSize(); size > p.maxBytes {
		return fail(KindTooLarge, fmt.Errorf("reported size %d exceeds ceiling %d", size, p.maxBytes))
	}

	download, err := p.fetch(ctx, candidate)
	if err != nil {
		if errors.Is(err, ErrPayloadTooLarge) {
			return fail(KindTooLarge, err)
		}
		return fail(KindUpstream, err)
	}
	defer download.Cleanup(p.log)

	if err := p.gateway.SendUploadAction(ctx, msg.ChatID); err != nil {
		p.log.Debug("Failed to send upload action", "chat_id", msg.ChatID, "error", err)
	}

	file, err := os.Open(download.Path)
	if err != nil {
		return fail(KindUpstream, fmt.Errorf("open downloaded payload: %w", err))
	}
	defer file.Close()

	upload := VideoUpload{
		Reader:   file,
		Name:     candidate.VideoID() + ".mp4",
		Size:     download.Size,
		Width:    candidate.Format.Width,
		Height:   candidate.Format.Height,
		Duration: candidate.Video.Duration,
	}
	if err := p.gateway.ReplyVideo(ctx, msg.ChatID, upload, msg.MessageID); err != nil {
		failure := fail(KindDelivery, err)
		if errors.Is(err, ErrBlockedByUser) {
			failure.quiet = true
		}
		return failure
	}

	p.log.Info("Delivered video",
		"chat_id", msg.ChatID,
		"request_id", msg.RequestID,
		"video_id", candidate.VideoID(),
		"quality", candidate.Format.QualityLabel,
		"bytes", download.Size,
	)

	return nil
}

// report logs the failure per its kind, publishes the terminal event, and
// sends the user-facing reply when the failure is not silent.
func (p *Pipeline) report(ctx context.Context, msg bus.InboundMessage, failure *Failure) {
	switch failure.Kind {
	case KindInvalidInput, KindTooLarge:
		p.log.Info("Relay rejected",
			"chat_id", msg.ChatID, "request_id", msg.RequestID,
			"kind", failure.Kind, "reason", failure.Err,
		)
	case KindTimeout:
		p.log.Warn("Relay timed out",
			"chat_id", msg.ChatID, "request_id", msg.RequestID, "budget", p.budget,
		)
	default:
		p.log.Error("Relay failed",
			"chat_id", msg.ChatID, "request_id", msg.RequestID,
			"kind", failure.Kind, "error", failure.Err,
		)
	}

	eventType := bus.EventRelayFailed
	if failure.Rejected() {
		eventType = bus.EventRelayRejected
	}
	p.events.Publish(context.WithoutCancel(ctx), p.event(eventType, msg, failure))

	text := failure.UserMessage()
	if text == "" {
		return
	}

	replyCtx, cancel := detached(ctx)
	defer cancel()
	if _, err := p.gateway.Reply(replyCtx, msg.ChatID, text, msg.MessageID); err != nil {
		p.log.Warn("Failed to send failure reply", "chat_id", msg.ChatID, "error", err)
	}
}

func (p *Pipeline) event(eventType bus.EventType, msg bus.InboundMessage, failure *Failure) bus.Event {
	event := bus.Event{
		Type:       eventType,
		Channel:    msg.Channel,
		ChatID:     msg.ChatID,
		SessionKey: msg.SessionKey,
		RequestID:  msg.RequestID,
	}
	if failure != nil {
		event.Error = failure.Error()
		event.Payload = map[string]string{"kind": string(failure.Kind)}
	}

	return event
}

// classify normalizes any escaped error into a Failure. An expired budget
// wins over whichever step happened to surface it.
func classify(err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return fail(KindTimeout, err)
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	return fail(KindUpstream, err)
}

// classifyInput maps classifier errors onto the failure taxonomy. An
// oracle outage reads to the user exactly like a rejected link; only the
// logs tell the two apart.
func classifyInput(err error) *Failure {
	var oracleErr *shorts.OracleError
	if errors.As(err, &oracleErr) {
		return &Failure{Kind: KindUpstream, Err: err, userText: msgInvalidLink}
	}

	return fail(KindInvalidInput, err)
}

// detached returns a context that survives the pipeline budget so that
// terminal notices and cleanup can still reach the chat.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalReplyTimeout)
}
