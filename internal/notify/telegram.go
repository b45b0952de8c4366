package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// TelegramOption customizes a Telegram notifier.
type TelegramOption func(*Telegram)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(baseURL string) TelegramOption {
	return func(t *Telegram) { t.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) TelegramOption {
	return func(t *Telegram) { t.client = client }
}

// NewTelegram creates a Telegram notifier for one chat.
func NewTelegram(token, chatID string, opts ...TelegramOption) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	t := &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: defaultTelegramBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send posts the message via the sendMessage method.
func (t *Telegram) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram responded %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
