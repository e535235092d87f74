package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/models"
)

var testToday = clock.Date(2025, 3, 1)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "takvim.db"),
		WithClock(clock.NewFixed(testToday.Add(9*time.Hour))))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func event(symbol string, typ models.EventType, date time.Time, desc string) models.FinancialEvent {
	return models.FinancialEvent{
		Symbol:      symbol,
		Type:        typ,
		Date:        date,
		Description: desc,
		Source:      "test",
		Status:      models.StatusFor(date, testToday),
	}
}

func newAlert(user, symbol string, eventDate time.Time) *models.Alert {
	return &models.Alert{
		UserID:      user,
		Symbol:      symbol,
		EventType:   models.EventDividend,
		EventDate:   eventDate,
		AlertDate:   eventDate.AddDate(0, 0, -1),
		Description: symbol + " temettü",
	}
}

func TestUpsertCalendarReplacesEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := &models.CompanyCalendar{
		Symbol:      "THYAO",
		CompanyName: "Türk Hava Yolları",
		LastUpdate:  testToday,
		Events: []models.FinancialEvent{
			event("THYAO", models.EventBalanceSheet, clock.Date(2025, 3, 31), "1. Çeyrek Bilanço"),
			event("THYAO", models.EventDividend, clock.Date(2025, 8, 10), "Temettü"),
		},
	}
	require.NoError(t, s.UpsertCalendar(ctx, first))

	second := &models.CompanyCalendar{
		Symbol:      "THYAO",
		CompanyName: "Türk Hava Yolları",
		LastUpdate:  testToday.AddDate(0, 0, 1),
		Events: []models.FinancialEvent{
			event("THYAO", models.EventShareholderMeeting, clock.Date(2025, 5, 15), "Genel Kurul"),
		},
	}
	require.NoError(t, s.UpsertCalendar(ctx, second))

	got, err := s.GetCalendar(ctx, "THYAO")
	require.NoError(t, err)
	assert.Equal(t, "Türk Hava Yolları", got.CompanyName)
	assert.Equal(t, testToday.AddDate(0, 0, 1), got.LastUpdate)
	require.Len(t, got.Events, 1)
	assert.Equal(t, models.EventShareholderMeeting, got.Events[0].Type)
	assert.Equal(t, clock.Date(2025, 5, 15), got.Events[0].Date)
}

func TestGetCalendarUnknownSymbol(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCalendar(context.Background(), "NOPE")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
}

func TestAddEventCreatesCalendarAndAppends(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := event("ASELS", models.EventOther, clock.Date(2025, 4, 1), "Yatırımcı günü")
	require.NoError(t, s.AddEvent(ctx, "ASELS", "", e))
	require.NoError(t, s.AddEvent(ctx, "ASELS", "ignored", e))

	got, err := s.GetCalendar(ctx, "ASELS")
	require.NoError(t, err)
	assert.Equal(t, "ASELS", got.CompanyName)
	assert.Equal(t, testToday, got.LastUpdate)
	assert.Len(t, got.Events, 2, "manual additions are not deduplicated")
}

func TestUpcomingWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cal := &models.CompanyCalendar{
		Symbol:      "GARAN",
		CompanyName: "Garanti BBVA",
		LastUpdate:  testToday,
		Events: []models.FinancialEvent{
			event("GARAN", models.EventOther, testToday.AddDate(0, 0, 31), "dışarıda"),
			event("GARAN", models.EventOther, testToday.AddDate(0, 0, 30), "sınırda"),
			event("GARAN", models.EventOther, testToday.AddDate(0, 0, -1), "geçmiş"),
			event("GARAN", models.EventOther, testToday.AddDate(0, 0, 5), "yakın"),
		},
	}
	require.NoError(t, s.UpsertCalendar(ctx, cal))

	got, err := s.Upcoming(ctx, testToday, 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "yakın", got[0].Event.Description)
	assert.Equal(t, "sınırda", got[1].Event.Description)
	assert.Equal(t, "Garanti BBVA", got[0].CompanyName)
}

func TestUpcomingSkipsUnparseableDates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddEvent(ctx, "AKBNK", "Akbank", event("AKBNK", models.EventDividend, testToday.AddDate(0, 0, 3), "temettü")))
	_, err := s.db.Exec(`INSERT INTO calendar_events (symbol, position, type, date, description, source, status)
		VALUES ('AKBNK', 9, 'other', '2025-03-1x', 'bozuk', 'test', 'pending')`)
	require.NoError(t, err)

	got, err := s.Upcoming(ctx, testToday, 30)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "temettü", got[0].Event.Description)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddEvent(ctx, "ISCTR", "Türkiye İş Bankası", event("ISCTR", models.EventDividend, clock.Date(2025, 7, 25), "2024 Yılı Temettü Ödemesi")))
	require.NoError(t, s.AddEvent(ctx, "KCHOL", "Koç Holding", event("KCHOL", models.EventShareholderMeeting, clock.Date(2025, 5, 15), "Genel Kurul")))

	byCompany, err := s.Search(ctx, "iş bankası")
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "ISCTR", byCompany[0].Symbol)

	byDescription, err := s.Search(ctx, "TEMETTÜ")
	require.NoError(t, err)
	assert.Len(t, byDescription, 1)

	byType, err := s.Search(ctx, "shareholder")
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "KCHOL", byType[0].Symbol)
}

func TestCreateAlertRejectsDuplicateActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newAlert("u1", "GARAN", clock.Date(2025, 7, 15))
	require.NoError(t, s.CreateAlert(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, models.AlertActive, a.Status)

	err := s.CreateAlert(ctx, newAlert("u1", "GARAN", clock.Date(2025, 7, 15)))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateAlert)

	// another user may hold the same alert
	require.NoError(t, s.CreateAlert(ctx, newAlert("u2", "GARAN", clock.Date(2025, 7, 15))))

	// once cancelled, the event is free again
	ok, err := s.CancelAlert(ctx, a.ID, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.CreateAlert(ctx, newAlert("u1", "GARAN", clock.Date(2025, 7, 15))))
}

func TestFindActiveAlert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newAlert("u1", "AKBNK", clock.Date(2025, 7, 20))
	require.NoError(t, s.CreateAlert(ctx, a))

	found, err := s.FindActiveAlert(ctx, "u1", "AKBNK", models.EventDividend, clock.Date(2025, 7, 20))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.ID, found.ID)

	missing, err := s.FindActiveAlert(ctx, "u1", "AKBNK", models.EventDividend, clock.Date(2025, 7, 21))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newAlert("u1", "THYAO", clock.Date(2025, 8, 10))
	require.NoError(t, s.CreateAlert(ctx, a))

	at := testToday.Add(10 * time.Hour)
	ok, err := s.MarkTriggered(ctx, a.ID, at)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.CancelAlert(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MarkTriggered(ctx, a.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertTriggered, got.Status)
	require.NotNil(t, got.TriggeredAt)
	assert.True(t, got.TriggeredAt.Equal(at), "triggered_at is set once")
}

func TestCancelAndDeleteAreScopedByUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newAlert("owner", "EREGL", clock.Date(2025, 6, 1))
	require.NoError(t, s.CreateAlert(ctx, a))

	_, err := s.CancelAlert(ctx, a.ID, "intruder")
	assert.ErrorIs(t, err, apperrors.ErrAlertNotFound)

	err = s.DeleteAlert(ctx, a.ID, "intruder")
	assert.ErrorIs(t, err, apperrors.ErrAlertNotFound)

	require.NoError(t, s.DeleteAlert(ctx, a.ID, "owner"))
	_, err = s.GetAlert(ctx, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlertNotFound)
}

func TestPendingDueAndListOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	late := newAlert("u1", "SAHOL", clock.Date(2025, 3, 10))
	early := newAlert("u1", "KCHOL", clock.Date(2025, 3, 2))
	future := newAlert("u1", "ASELS", clock.Date(2025, 4, 30))
	for _, a := range []*models.Alert{late, early, future} {
		require.NoError(t, s.CreateAlert(ctx, a))
	}

	due, err := s.PendingDue(ctx, clock.Date(2025, 3, 9).Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	all, err := s.ListAlerts(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, future.ID, all[2].ID)

	summary, err := s.AlertSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ActiveCount)
	assert.Equal(t, 3, summary.TotalCount)
	require.NotNil(t, summary.NextAlert)
	assert.Equal(t, early.ID, summary.NextAlert.ID)
}

func TestPendingDueSkipsMalformedAlert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	good := newAlert("u1", "KCHOL", clock.Date(2025, 3, 2))
	require.NoError(t, s.CreateAlert(ctx, good))
	_, err := s.db.Exec(`INSERT INTO financial_alerts (id, user_id, symbol, event_type, event_date, alert_date, description, status, created_at)
		VALUES ('bad-1', 'u1', 'SAHOL', 'dividend', '2025-03-0x', '2025-03-01', 'bozuk', 'active', ?)`, testToday)
	require.NoError(t, err)

	due, err := s.PendingDue(ctx, testToday.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, good.ID, due[0].ID)

	all, err := s.ListAlerts(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestConcurrentCancelAndTriggerExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 20; i++ {
		a := newAlert("racer", "GARAN", clock.Date(2025, 3, 2).AddDate(0, 0, i))
		require.NoError(t, s.CreateAlert(ctx, a))

		var wg sync.WaitGroup
		var triggered, cancelled bool
		var triggerErr, cancelErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			triggered, triggerErr = s.MarkTriggered(ctx, a.ID, testToday)
		}()
		go func() {
			defer wg.Done()
			cancelled, cancelErr = s.CancelAlert(ctx, a.ID, "racer")
		}()
		wg.Wait()

		require.NoError(t, triggerErr)
		require.NoError(t, cancelErr)
		assert.True(t, triggered != cancelled, "exactly one transition must win (triggered=%v cancelled=%v)", triggered, cancelled)

		got, err := s.GetAlert(ctx, a.ID)
		require.NoError(t, err)
		if triggered {
			assert.Equal(t, models.AlertTriggered, got.Status)
		} else {
			assert.Equal(t, models.AlertCancelled, got.Status)
		}
	}
}
