// Package telegram bridges Telegram bot updates into the relay runtime and
// implements the outbound gateway the pipeline delivers through.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/losparviero/telesh/pkg/bus"
	"github.com/losparviero/telesh/pkg/channel"
	"github.com/losparviero/telesh/pkg/config"
	"github.com/losparviero/telesh/pkg/relay"
)

const channelName = "telegram"

const (
	msgWelcome = "*Welcome!* ✨ Send a YouTube shorts link."
	msgHelp    = "_This bot downloads YouTube shorts.\nSend a link to try it out!_"
)

// blockedMarker is the substring Telegram puts in the API error when the
// recipient has blocked the bot.
const blockedMarker = "bot was blocked by the user"

// Adapter bridges Telegram updates into inbound relay messages and sends
// the pipeline's replies back out.
type Adapter struct {
	cfg config.TelegramConfig
	bot *telego.Bot
	log *slog.Logger

	// wg tracks per-update handler goroutines so Run can drain them.
	wg sync.WaitGroup
}

// NewAdapter validates Telegram configuration and constructs an adapter
// instance with a live bot client.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg: cfg,
		bot: bot,
		log: log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and dispatches each text update to the
// handler on its own goroutine so unrelated chats never wait on each other.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")
	defer a.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				continue
			}

			text := strings.TrimSpace(message.Text)
			if text == "" {
				// Stickers, photos and the like carry no link to relay.
				continue
			}
			if message.From == nil {
				a.log.Debug("Ignoring message without sender")
				continue
			}

			if a.handleCommand(ctx, message, text) {
				continue
			}

			inbound := a.inbound(message, text)

			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.dispatch(ctx, handler, inbound)
			}()
		}
	}
}

// handleCommand answers /start and /help inline and reports whether the
// update was a command. Unknown commands are swallowed without a reply.
func (a *Adapter) handleCommand(ctx context.Context, message *telego.Message, text string) bool {
	if !strings.HasPrefix(text, "/") {
		return false
	}

	command := commandName(text)
	reply, known := commandReply(command)
	if !known {
		a.log.Debug("Ignoring unknown command", "command", command, "chat_id", message.Chat.ID)
		return true
	}

	switch command {
	case "/start":
		a.log.Info("New user started bot", "chat_id", message.Chat.ID, "user_id", message.From.ID)
	case "/help":
		a.log.Info("Help command sent", "user_id", message.From.ID)
	}

	if err := a.SendMessage(ctx, message.Chat.ID, reply); err != nil {
		a.log.Warn("Failed to answer command", "command", command, "chat_id", message.Chat.ID, "error", err)
	}

	return true
}

// commandName extracts the bare command token, dropping arguments and the
// "@botname" suffix used when addressing bots in groups.
func commandName(text string) string {
	command := strings.Fields(text)[0]
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}

	return command
}

// commandReply maps a command to its canned answer.
func commandReply(command string) (string, bool) {
	switch command {
	case "/start":
		return msgWelcome, true
	case "/help":
		return msgHelp, true
	default:
		return "", false
	}
}

// dispatch runs one inbound message through the handler. Pipeline failures
// already reached the user; anything else gets a defensive generic reply.
func (a *Adapter) dispatch(ctx context.Context, handler channel.Handler, inbound bus.InboundMessage) {
	err := handler(ctx, inbound)
	if err == nil {
		return
	}

	var failure *relay.Failure
	if errors.As(err, &failure) {
		a.log.Debug("Relay reported failure", "chat_id", inbound.ChatID, "request_id", inbound.RequestID, "kind", failure.Kind)
		return
	}

	a.log.Error("Failed to process inbound message", "chat_id", inbound.ChatID, "request_id", inbound.RequestID, "error", err)
	if sendErr := a.SendMessage(ctx, inbound.ChatID, "An error occurred"); sendErr != nil && !errors.Is(sendErr, relay.ErrBlockedByUser) {
		a.log.Warn("Failed to send fallback error reply", "chat_id", inbound.ChatID, "error", sendErr)
	}
}

func (a *Adapter) inbound(message *telego.Message, text string) bus.InboundMessage {
	displayName := strings.TrimSpace(message.From.FirstName + " " + message.From.LastName)

	return bus.InboundMessage{
		Channel:     channelName,
		ChatID:      message.Chat.ID,
		UserID:      message.From.ID,
		DisplayName: displayName,
		Username:    message.From.Username,
		MessageID:   message.MessageID,
		Text:        text,
		ReceivedAt:  time.Now().UTC(),
		SessionKey:  sessionKey(message.Chat.ID),
		RequestID:   uuid.NewString(),
	}
}

// Reply sends a Markdown text message, optionally linked to the message it
// answers, and returns the sent message's ID.
func (a *Adapter) Reply(ctx context.Context, chatID int64, text string, replyTo int) (int, error) {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown)
	if replyTo != 0 {
		params = params.WithReplyParameters(&telego.ReplyParameters{MessageID: replyTo})
	}

	sent, err := a.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, classifySendError(err)
	}

	return sent.MessageID, nil
}

// ReplyVideo uploads the video as a streamable reply to the requesting
// message.
func (a *Adapter) ReplyVideo(ctx context.Context, chatID int64, video relay.VideoUpload, replyTo int) error {
	params := tu.Video(tu.ID(chatID), tu.File(tu.NameReader(video.Reader, video.Name))).
		WithSupportsStreaming()
	if video.Width > 0 && video.Height > 0 {
		params = params.WithWidth(video.Width).WithHeight(video.Height)
	}
	if video.Duration > 0 {
		params = params.WithDuration(int(video.Duration.Seconds()))
	}
	if replyTo != 0 {
		params = params.WithReplyParameters(&telego.ReplyParameters{MessageID: replyTo})
	}

	if _, err := a.bot.SendVideo(ctx, params); err != nil {
		return classifySendError(err)
	}

	return nil
}

// SendUploadAction shows the "uploading a video" chat indicator.
func (a *Adapter) SendUploadAction(ctx context.Context, chatID int64) error {
	return a.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), telego.ChatActionUploadVideo))
}

// SendMessage sends a standalone Markdown text message.
func (a *Adapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown)
	if _, err := a.bot.SendMessage(ctx, params); err != nil {
		return classifySendError(err)
	}

	return nil
}

// ForwardMessage copies a message verbatim to another chat.
func (a *Adapter) ForwardMessage(ctx context.Context, toChatID int64, fromChatID int64, messageID int) error {
	_, err := a.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(toChatID),
		FromChatID: tu.ID(fromChatID),
		MessageID:  messageID,
	})
	if err != nil {
		return classifySendError(err)
	}

	return nil
}

// DeleteMessage removes a previously sent message, used to retire status
// notices once the relay settles.
func (a *Adapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return a.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	})
}

// sessionKey maps one Telegram chat to one relay session namespace.
func sessionKey(chatID int64) string {
	return fmt.Sprintf("telegram:%d", chatID)
}

// classifySendError maps the Telegram "blocked" API error onto the relay's
// sentinel so the pipeline can stay silent about it.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), blockedMarker) {
		return fmt.Errorf("%w: %v", relay.ErrBlockedByUser, err)
	}

	return err
}
