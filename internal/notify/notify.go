// Package notify provides operator notifications for treasury events.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"treasury-agent/internal/config"
	"treasury-agent/internal/logging"
)

// Level controls which events go out.
type Level string

const (
	LevelAll        Level = "all"
	LevelRiskOnly   Level = "risk_only"
	LevelErrorsOnly Level = "errors_only"
)

// Event is a single operator notification.
type Event struct {
	Kind       string    `json:"kind"` // tick, action, risk, error
	BorrowerID string    `json:"borrower_id,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier delivers events to one channel.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Dispatcher fans events out to the configured channels, filtered by
// level. Delivery failures are logged and swallowed; notifications
// never affect the tick loop.
type Dispatcher struct {
	level     Level
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewDispatcher builds a dispatcher from config. With notifications
// disabled it still works and simply drops everything.
func NewDispatcher(cfg config.NotificationConfig, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		level:  Level(cfg.Level),
		logger: logging.WithComponent(logger, "notify"),
	}
	if d.level == "" {
		d.level = LevelRiskOnly
	}
	if !cfg.Enabled {
		return d
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		d.notifiers = append(d.notifiers, NewWebhookNotifier(cfg.Webhook.URL))
	}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		d.notifiers = append(d.notifiers, NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	return d
}

// Dispatch sends the event to all channels if the level allows it.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if !d.shouldSend(event.Kind) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			d.logger.Warn().Err(err).Str("kind", event.Kind).Msg("Notification delivery failed")
		}
	}
}

func (d *Dispatcher) shouldSend(kind string) bool {
	switch d.level {
	case LevelAll:
		return true
	case LevelRiskOnly:
		return kind == "risk" || kind == "error"
	case LevelErrorsOnly:
		return kind == "error"
	}
	return false
}

// WebhookNotifier POSTs events as JSON to a webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    webhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify delivers the event.
func (w *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// TelegramNotifier sends events as Telegram bot messages.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify delivers the event.
func (t *TelegramNotifier) Notify(ctx context.Context, event Event) error {
	text := fmt.Sprintf("[%s] %s", event.Kind, event.Message)
	if event.BorrowerID != "" {
		text = fmt.Sprintf("[%s] %s: %s", event.Kind, event.BorrowerID, event.Message)
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}
