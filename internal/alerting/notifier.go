package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
)

// Notification carries the variation alerts raised for one day.
type Notification struct {
	Day           time.Time
	Alerts        []scanner.Alert
	ThresholdPct  float64
	Channels      []string
	AdditionalMsg string
}

// Notifier delivers notifications to a channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered alert summary.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("day", panel.FormatDay(note.Day)).
		Int("alerts", len(note.Alerts)).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert sent (telegram)")
	return nil
}

// RenderMessage formats a notification as plain text.
func RenderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Bank rate alert]\n")
	builder.WriteString(fmt.Sprintf("Day: %s\n", panel.FormatDay(note.Day)))
	builder.WriteString(fmt.Sprintf("Threshold: %s%% daily change\n", decimal.NewFromFloat(note.ThresholdPct).StringFixed(2)))
	for _, a := range note.Alerts {
		builder.WriteString(fmt.Sprintf("- %s %s: %s%% (%s) now %s\n",
			a.Bank,
			a.Metric.Label(),
			decimal.NewFromFloat(a.PercentChange).StringFixed(2),
			a.Direction(),
			formatValue(a.Metric, a.Value),
		))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

func formatValue(m panel.Metric, v float64) string {
	switch m {
	case panel.MaintenanceFee:
		return "$ " + decimal.NewFromFloat(v).StringFixed(0)
	case panel.PromoScore:
		return decimal.NewFromFloat(v).StringFixed(1)
	default:
		return decimal.NewFromFloat(v).StringFixed(2) + "%"
	}
}

var _ Notifier = (*TelegramNotifier)(nil)
