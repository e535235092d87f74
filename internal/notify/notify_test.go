package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/config"
	"bist-takvim/internal/models"
	"bist-takvim/internal/resilience"
)

func testAlert() *models.Alert {
	return &models.Alert{
		ID:          "a-1",
		UserID:      "u1",
		Symbol:      "THYAO",
		EventType:   models.EventDividend,
		EventDate:   clock.Date(2025, 8, 10),
		AlertDate:   clock.Date(2025, 8, 9),
		Description: "2024 Yılı Temettü <Ödemesi>",
		Status:      models.AlertTriggered,
	}
}

func fastBackoff() resilience.Backoff {
	return resilience.Backoff{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

type recordingChannel struct {
	name string
	err  error
	got  []Message
}

func (r *recordingChannel) Name() string { return r.name }
func (r *recordingChannel) IsEnabled() bool { return true }
func (r *recordingChannel) Send(_ context.Context, m Message) error {
	r.got = append(r.got, m)
	return r.err
}

func TestRender(t *testing.T) {
	msg := Render(testAlert(), time.Date(2025, 8, 9, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "🔔 THYAO: Temettü", msg.Title)
	assert.Equal(t, "2024 Yılı Temettü <Ödemesi>\nTarih: 10 Ağustos 2025 (yarın)", msg.Body)
}

func TestMultiNotifierContinuesPastFailures(t *testing.T) {
	mn := NewMultiNotifier(config.NotificationConfig{}, clock.NewFixed(clock.Date(2025, 8, 9)), zerolog.Nop())
	failing := &recordingChannel{name: "broken", err: errors.New("boom")}
	ok := &recordingChannel{name: "ok"}
	mn.AddChannel(failing)
	mn.AddChannel(ok)

	err := mn.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.Len(t, ok.got, 1)
	assert.Equal(t, []string{"broken", "ok"}, mn.Channels())
}

func TestNewMultiNotifierFromConfig(t *testing.T) {
	clk := clock.NewFixed(clock.Date(2025, 8, 9))
	mn := NewMultiNotifier(config.NotificationConfig{
		Enabled:  true,
		Log:      true,
		Webhook:  config.WebhookConfig{Enabled: true, URL: "http://example.invalid"},
		Telegram: config.TelegramConfig{Enabled: true}, // no token: stays disabled
	}, clk, zerolog.Nop())
	assert.Equal(t, []string{"log", "webhook"}, mn.Channels())

	off := NewMultiNotifier(config.NotificationConfig{Enabled: false, Log: true}, clk, zerolog.Nop())
	assert.Empty(t, off.Channels())
}

func TestWebhookRetriesUntilSuccess(t *testing.T) {
	var calls int32
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: srv.URL}, fastBackoff())
	require.NoError(t, ch.Send(context.Background(), Render(testAlert(), time.Now())))

	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, "a-1", payload.AlertID)
	assert.Equal(t, "2025-08-10", payload.EventDate)
	assert.Equal(t, "dividend", payload.EventType)
}

func TestWebhookGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: srv.URL}, fastBackoff())
	err := ch.Send(context.Background(), Render(testAlert(), time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestTelegramEscapesHTML(t *testing.T) {
	var body map[string]interface{}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewTelegramChannel(config.TelegramConfig{Enabled: true, BotToken: "tok", ChatID: "42", APIBase: srv.URL})
	require.True(t, ch.IsEnabled())
	require.NoError(t, ch.Send(context.Background(), Render(testAlert(), time.Now())))

	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Contains(t, body["text"], "&lt;Ödemesi&gt;")
	assert.Equal(t, "HTML", body["parse_mode"])
}

func TestTelegramErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	token := "123456:SecretTokenValue"
	ch := NewTelegramChannel(config.TelegramConfig{Enabled: true, BotToken: token, ChatID: "42", APIBase: srv.URL})

	err := ch.Send(context.Background(), Render(testAlert(), time.Now()))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.NotContains(t, err.Error(), "SecretToken")
}

func TestEmailChannel(t *testing.T) {
	assert.False(t, NewEmailChannel(config.EmailConfig{Enabled: true, SMTPHost: "smtp.example.com"}).IsEnabled())

	msg := buildEmail("a@example.com", "b@example.com", Render(testAlert(), time.Now()))
	assert.True(t, strings.HasPrefix(msg, "From: a@example.com\r\nTo: b@example.com\r\nSubject: 🔔 THYAO: Temettü\r\n"))
	assert.Contains(t, msg, "\r\nTarih: 10 Ağustos 2025")
}

func TestTerminalChannel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	ch := NewTerminalChannel(&buf, false)

	msg := Render(testAlert(), time.Date(2025, 8, 9, 9, 30, 0, 0, time.UTC))
	require.NoError(t, ch.Send(context.Background(), msg))
	assert.True(t, strings.HasPrefix(buf.String(), "[09:30:00] 🔔 THYAO: Temettü 2025-08-10\n    → "))
}

func TestFuncAndNoOp(t *testing.T) {
	var got string
	n := Func(func(_ context.Context, a *models.Alert) error {
		got = a.ID
		return nil
	})
	require.NoError(t, n.Notify(context.Background(), testAlert()))
	assert.Equal(t, "a-1", got)
	assert.NoError(t, NoOp{}.Notify(context.Background(), testAlert()))
}
