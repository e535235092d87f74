// Package notify delivers triggered alerts over the configured channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/config"
	"bist-takvim/internal/models"
	"bist-takvim/internal/resilience"
	"bist-takvim/pkg/utils"
)

// Notifier delivers a triggered alert.
type Notifier interface {
	Notify(ctx context.Context, alert *models.Alert) error
}

// Channel is one delivery channel of a MultiNotifier.
type Channel interface {
	Name() string
	Send(ctx context.Context, m Message) error
	IsEnabled() bool
}

// Message is a rendered alert notification.
type Message struct {
	Title     string
	Body      string
	Alert     *models.Alert
	Timestamp time.Time
}

// eventLabels holds the Turkish display name of each event type.
var eventLabels = map[models.EventType]string{
	models.EventBalanceSheet:       "Bilanço",
	models.EventShareholderMeeting: "Genel Kurul",
	models.EventDividend:           "Temettü",
	models.EventCapitalIncrease:    "Sermaye Artırımı",
	models.EventCorporateAction:    "Kurumsal İşlem",
	models.EventNews:               "Haber",
	models.EventOther:              "Diğer",
}

// EventLabel returns the display name of an event type.
func EventLabel(t models.EventType) string {
	if l, ok := eventLabels[t]; ok {
		return l
	}
	return string(t)
}

// Render builds the message for an alert as seen on the given date.
func Render(alert *models.Alert, now time.Time) Message {
	today := clock.DateOf(now)
	days := clock.DaysBetween(today, alert.EventDate)

	title := fmt.Sprintf("🔔 %s: %s", alert.Symbol, EventLabel(alert.EventType))

	var sb strings.Builder
	if alert.Description != "" {
		sb.WriteString(alert.Description)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Tarih: %s (%s)", utils.FormatTurkishDate(alert.EventDate), utils.FormatDaysUntil(days))

	return Message{
		Title:     title,
		Body:      sb.String(),
		Alert:     alert,
		Timestamp: now,
	}
}

// MultiNotifier sends every alert to all enabled channels.
type MultiNotifier struct {
	channels []Channel
	clock    clock.Clock
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the channels enabled in cfg.
func NewMultiNotifier(cfg config.NotificationConfig, clk clock.Clock, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{clock: clk}
	if !cfg.Enabled {
		return mn
	}

	if cfg.Log {
		mn.channels = append(mn.channels, NewLogChannel(logger))
	}
	if cfg.Terminal.Enabled {
		mn.channels = append(mn.channels, NewTerminalChannel(nil, cfg.Terminal.Bell))
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookChannel(cfg.Webhook, resilience.DefaultBackoff()))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramChannel(cfg.Telegram))
	}
	if cfg.Email.Enabled {
		mn.channels = append(mn.channels, NewEmailChannel(cfg.Email))
	}

	return mn
}

// AddChannel adds a delivery channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Channels returns the names of the enabled channels.
func (mn *MultiNotifier) Channels() []string {
	mn.mu.RLock()
	defer mn.mu.RUnlock()

	var names []string
	for _, ch := range mn.channels {
		if ch.IsEnabled() {
			names = append(names, ch.Name())
		}
	}
	return names
}

// Notify renders the alert and sends it to every enabled channel. A failing
// channel does not stop the others; their errors are joined.
func (mn *MultiNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	msg := Render(alert, mn.clock.Now())

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LogChannel writes alerts to the structured log.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log channel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With().Str("channel", "log").Logger()}
}

// Name returns the channel name.
func (l *LogChannel) Name() string { return "log" }

// IsEnabled always reports true.
func (l *LogChannel) IsEnabled() bool { return true }

// Send logs the message.
func (l *LogChannel) Send(_ context.Context, m Message) error {
	l.logger.Info().
		Str("alert_id", m.Alert.ID).
		Str("user_id", m.Alert.UserID).
		Str("symbol", m.Alert.Symbol).
		Str("title", m.Title).
		Msg(m.Body)
	return nil
}

// NoOp discards notifications.
type NoOp struct{}

// Notify does nothing.
func (NoOp) Notify(context.Context, *models.Alert) error { return nil }

// Func adapts a function to Notifier.
type Func func(ctx context.Context, alert *models.Alert) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, alert *models.Alert) error { return f(ctx, alert) }
