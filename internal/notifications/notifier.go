package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	EventFriendRequestSent     = "friend_request.sent"
	EventFriendRequestAccepted = "friend_request.accepted"
	EventSeriesNewEpisodes     = "series.new_episodes"
)

type Message struct {
	Event   string         `json:"event"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	UserID  string         `json:"userId,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	SentAt  time.Time      `json:"sentAt"`
}

type Notifier interface {
	Notify(ctx context.Context, message Message) error
}

type NoopNotifier struct{}

func (n NoopNotifier) Notify(_ context.Context, _ Message) error {
	return nil
}

// LogNotifier writes every message to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, message Message) error {
	l.logger.Info("notification", "event", message.Event, "title", message.Title, "userId", message.UserID)
	return nil
}

type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(webhookURL string, client *http.Client) (*WebhookNotifier, error) {
	trimmed := strings.TrimSpace(webhookURL)
	if trimmed == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: trimmed, client: client}, nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, message Message) error {
	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event", message.Event)

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", res.StatusCode)
	}

	return nil
}

// MultiNotifier fans a message out to every notifier, even when one fails.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(items ...Notifier) *MultiNotifier {
	filtered := make([]Notifier, 0, len(items))
	for _, item := range items {
		if item != nil {
			filtered = append(filtered, item)
		}
	}
	return &MultiNotifier{notifiers: filtered}
}

func (m *MultiNotifier) Notify(ctx context.Context, message Message) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig logs every message and also posts it when webhookURL is set.
func FromConfig(webhookURL string, logger *slog.Logger) (Notifier, error) {
	logNotifier := NewLogNotifier(logger)
	if strings.TrimSpace(webhookURL) == "" {
		return logNotifier, nil
	}
	webhook, err := NewWebhookNotifier(webhookURL, nil)
	if err != nil {
		return nil, err
	}
	return NewMultiNotifier(logNotifier, webhook), nil
}

// Async sends the message in the background so request handlers do not wait
// on the webhook. Failures are logged.
func Async(notifier Notifier, logger *slog.Logger, message Message) {
	if notifier == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := notifier.Notify(ctx, message); err != nil {
			logger.Warn("notification failed", "event", message.Event, "error", err)
		}
	}()
}
