package notify

import (
	"context"
	"net/http"
	"time"
)

// discordContentLimit is the webhook's maximum content length.
const discordContentLimit = 2000

// DiscordSender delivers alerts through a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a sender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the alert to the webhook, title bolded, clipped to the content
// limit. Discord answers 204 No Content on success.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, d.client, "discord", d.webhookURL, map[string]string{
		"username": "atom-fleet",
		"content":  truncate("**"+title+"**\n"+message, discordContentLimit),
	})
}

// Name returns the channel identifier.
func (d *DiscordSender) Name() string { return "discord" }
