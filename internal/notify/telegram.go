package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSink delivers messages through the Telegram bot sendMessage
// endpoint.
type TelegramSink struct {
	BaseURL string // overridable for tests
	token   string
	chatID  string
	http    *http.Client
}

func NewTelegram(token, chatID string) *TelegramSink {
	return &TelegramSink{
		BaseURL: telegramAPIBase,
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TelegramSink) Name() string { return "telegram" }

func (t *TelegramSink) Deliver(ctx context.Context, message string) error {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", message)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
