package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/config"
	"bist-takvim/internal/logging"
	"bist-takvim/internal/resilience"
)

const defaultTelegramAPI = "https://api.telegram.org"

// WebhookChannel posts alerts as JSON to a URL, retrying failed deliveries.
type WebhookChannel struct {
	url     string
	enabled bool
	client  *http.Client
	backoff resilience.Backoff
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(cfg config.WebhookConfig, backoff resilience.Backoff) *WebhookChannel {
	return &WebhookChannel{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: backoff,
	}
}

// Name returns the channel name.
func (w *WebhookChannel) Name() string { return "webhook" }

// IsEnabled returns whether the channel is enabled.
func (w *WebhookChannel) IsEnabled() bool { return w.enabled }

// webhookPayload is the JSON body posted for each alert.
type webhookPayload struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	AlertID     string `json:"alert_id"`
	UserID      string `json:"user_id"`
	Symbol      string `json:"symbol"`
	EventType   string `json:"event_type"`
	EventDate   string `json:"event_date"`
	AlertDate   string `json:"alert_date"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// Send posts the message.
func (w *WebhookChannel) Send(ctx context.Context, m Message) error {
	if !w.enabled {
		return nil
	}

	body, err := json.Marshal(webhookPayload{
		Title:       m.Title,
		Message:     m.Body,
		AlertID:     m.Alert.ID,
		UserID:      m.Alert.UserID,
		Symbol:      m.Alert.Symbol,
		EventType:   string(m.Alert.EventType),
		EventDate:   clock.FormatDate(m.Alert.EventDate),
		AlertDate:   clock.FormatDate(m.Alert.AlertDate),
		Description: m.Alert.Description,
		Timestamp:   m.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return w.backoff.Retry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "bist-takvim/1.0")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}

// TelegramChannel sends alerts through a Telegram bot.
type TelegramChannel struct {
	apiBase  string
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewTelegramChannel creates a Telegram channel.
func NewTelegramChannel(cfg config.TelegramConfig) *TelegramChannel {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultTelegramAPI
	}
	return &TelegramChannel{
		apiBase:  strings.TrimRight(apiBase, "/"),
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the channel name.
func (t *TelegramChannel) Name() string { return "telegram" }

// IsEnabled returns whether the channel is enabled.
func (t *TelegramChannel) IsEnabled() bool { return t.enabled }

// Send sends the message via the bot API.
func (t *TelegramChannel) Send(ctx context.Context, m Message) error {
	if !t.enabled {
		return nil
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(m.Title), escapeHTML(m.Body))
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	body, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The request URL carries the bot token
		return fmt.Errorf("sending telegram message: %s", logging.Redact(err.Error(), t.botToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// escapeHTML escapes the characters Telegram's HTML mode reserves.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EmailChannel sends alerts by SMTP.
type EmailChannel struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	to       string
	enabled  bool
}

// NewEmailChannel creates an email channel.
func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	return &EmailChannel{
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
		enabled:  cfg.Enabled && cfg.SMTPHost != "" && cfg.From != "" && cfg.To != "",
	}
}

// Name returns the channel name.
func (e *EmailChannel) Name() string { return "email" }

// IsEnabled returns whether the channel is enabled.
func (e *EmailChannel) IsEnabled() bool { return e.enabled }

// Send mails the message. net/smtp does not take a context, so ctx only
// guards the start of the exchange.
func (e *EmailChannel) Send(ctx context.Context, m Message) error {
	if !e.enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildEmail(e.from, e.to, m)
	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)

	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}

	// Implicit TLS on 465, STARTTLS or plain otherwise
	if e.smtpPort == 465 {
		return e.sendWithTLS(addr, auth, msg)
	}
	return smtp.SendMail(addr, auth, e.from, []string{e.to}, []byte(msg))
}

func buildEmail(from, to string, m Message) string {
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		from, to, m.Title, strings.ReplaceAll(m.Body, "\n", "\r\n"))
}

func (e *EmailChannel) sendWithTLS(addr string, auth smtp.Auth, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: e.smtpHost})
	if err != nil {
		return fmt.Errorf("TLS dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}
	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}
	if err := client.Rcpt(e.to); err != nil {
		return fmt.Errorf("SMTP RCPT command failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
