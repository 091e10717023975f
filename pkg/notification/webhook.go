package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const footerText = "OTP Server Health Monitor"

// DiscordWebhook posts messages as Discord embeds
type DiscordWebhook struct {
	url        string
	httpClient *http.Client
}

type discordEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       int           `json:"color"`
	Fields      []Field       `json:"fields"`
	Timestamp   string        `json:"timestamp"`
	Footer      discordFooter `json:"footer"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// NewDiscordWebhook returns nil when url is empty
func NewDiscordWebhook(url string, timeout time.Duration) *DiscordWebhook {
	if url == "" {
		return nil
	}
	return &DiscordWebhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (d *DiscordWebhook) Send(ctx context.Context, msg Message) error {
	if d == nil {
		return ErrNotConfigured
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fields := msg.Fields
	if fields == nil {
		fields = []Field{}
	}

	body, err := json.Marshal(map[string]any{
		"embeds": []discordEmbed{{
			Title:       msg.Title,
			Description: msg.Description,
			Color:       msg.Color,
			Fields:      fields,
			Timestamp:   ts.UTC().Format(time.RFC3339),
			Footer:      discordFooter{Text: footerText},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
