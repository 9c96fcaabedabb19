package bus

import (
	"strings"
	"time"
)

type InboundMessage struct {
	Channel     string    `json:"channel"`
	ChatID      int64     `json:"chat_id"`
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Username    string    `json:"username,omitempty"`
	MessageID   int       `json:"message_id"`
	Text        string    `json:"text"`
	ReceivedAt  time.Time `json:"received_at"`
	SessionKey  string    `json:"session_key"`
	RequestID   string    `json:"request_id,omitempty"`
}

// IsCommand reports whether the message text is a bot command like /start.
func (m InboundMessage) IsCommand() bool {
	return strings.HasPrefix(strings.TrimSpace(m.Text), "/")
}
