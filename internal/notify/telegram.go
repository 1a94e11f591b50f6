package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// telegramTextLimit is the Bot API's maximum message length.
const telegramTextLimit = 4096

// TelegramSender delivers alerts to a Telegram chat.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a sender for the given bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the alert via sendMessage, title bolded, clipped to the API's
// length limit.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	return postJSON(ctx, t.client, "telegram", url, map[string]string{
		"chat_id":    t.chatID,
		"text":       truncate("*"+title+"*\n"+message, telegramTextLimit),
		"parse_mode": "Markdown",
	})
}

// Name returns the channel identifier.
func (t *TelegramSender) Name() string { return "telegram" }
