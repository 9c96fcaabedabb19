package relay

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrBlockedByUser marks delivery failures caused by the user blocking the
// bot; such failures are logged but never answered.
var ErrBlockedByUser = errors.New("bot was blocked by the user")

// VideoUpload is a downloaded payload ready for delivery.
type VideoUpload struct {
	Reader   io.Reader
	Name     string
	Size     int64
	Width    int
	Height   int
	Duration time.Duration
}

// Gateway is the outbound chat surface the pipeline relays through.
// Reply and SendMessage texts use the gateway's inline-markup convention.
type Gateway interface {
	Reply(ctx context.Context, chatID int64, text string, replyTo int) (messageID int, err error)
	ReplyVideo(ctx context.Context, chatID int64, video VideoUpload, replyTo int) error
	SendUploadAction(ctx context.Context, chatID int64) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	ForwardMessage(ctx context.Context, toChatID int64, fromChatID int64, messageID int) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
