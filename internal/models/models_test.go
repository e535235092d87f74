package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseEventType(t *testing.T) {
	got, ok := ParseEventType(" Dividend ")
	assert.True(t, ok)
	assert.Equal(t, EventDividend, got)

	_, ok = ParseEventType("split")
	assert.False(t, ok)
}

func TestStatusFor(t *testing.T) {
	today := day(2025, 3, 14)
	assert.Equal(t, EventCompleted, StatusFor(day(2025, 3, 13), today))
	assert.Equal(t, EventCompleted, StatusFor(today, today), "an event today is no longer ahead")
	assert.Equal(t, EventPending, StatusFor(day(2025, 3, 15), today))
}

func TestEventKeyIgnoresSourceAndLongTails(t *testing.T) {
	base := strings.Repeat("Olağan Genel Kurul Toplantısı ", 3)
	a := FinancialEvent{Symbol: "KCHOL", Type: EventShareholderMeeting, Date: day(2025, 4, 10), Description: base + "A", Source: "kap"}
	b := a
	b.Source = "news"
	b.Description = base + "B"

	assert.Equal(t, a.Key(), b.Key())

	b.Date = day(2025, 4, 11)
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestCalendarStatuses(t *testing.T) {
	cal := CompanyCalendar{Events: []FinancialEvent{
		{Date: day(2025, 3, 1), Status: EventPending},
		{Date: day(2025, 6, 30), Status: EventPending},
	}}

	cal.RefreshStatuses(day(2025, 3, 14))

	assert.Equal(t, EventCompleted, cal.Events[0].Status)
	pending := cal.PendingEvents()
	assert.Len(t, pending, 1)
	assert.Equal(t, day(2025, 6, 30), pending[0].Date)
}

func TestAlertStatus(t *testing.T) {
	assert.False(t, AlertActive.IsTerminal())
	assert.True(t, AlertTriggered.IsTerminal())
	assert.True(t, AlertCancelled.IsTerminal())

	s, ok := ParseAlertStatus("cancelled")
	assert.True(t, ok)
	assert.Equal(t, AlertCancelled, s)
	_, ok = ParseAlertStatus("paused")
	assert.False(t, ok)
}
