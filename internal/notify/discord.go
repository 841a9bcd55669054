package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DiscordSink delivers messages through a Discord webhook.
type DiscordSink struct {
	webhookURL string
	http       *http.Client
}

func NewDiscord(webhookURL string) *DiscordSink {
	return &DiscordSink{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DiscordSink) Name() string { return "discord" }

func (d *DiscordSink) Deliver(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL,
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
