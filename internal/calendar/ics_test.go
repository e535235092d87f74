package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/models"
)

func icsFixture() []models.CompanyCalendar {
	return []models.CompanyCalendar{{
		Symbol:      "THYAO",
		CompanyName: "Türk Hava Yolları",
		Events: []models.FinancialEvent{
			{Symbol: "THYAO", Type: models.EventDividend, Date: clock.Date(2025, 8, 10), Description: "Temettü Ödemesi", Source: "KAP"},
			{Symbol: "THYAO", Type: models.EventBalanceSheet, Date: clock.Date(2025, 3, 31), Description: "1. Çeyrek Bilanço", Source: "KAP"},
		},
	}}
}

func TestExportICS(t *testing.T) {
	var buf bytes.Buffer
	stamp := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ExportICS(&buf, icsFixture(), stamp, 2))

	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20250810")
	assert.Contains(t, out, "TRIGGER:-P2D")

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "THYAO: Temettü Ödemesi", events[0].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "dividend", events[0].GetProperty(ics.ComponentPropertyCategories).Value)
}

func TestExportICSStableUIDs(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, ExportICS(&first, icsFixture(), time.Now(), 0))
	require.NoError(t, ExportICS(&second, icsFixture(), time.Now(), 0))

	uids := func(s string) []string {
		cal, err := ics.ParseCalendar(strings.NewReader(s))
		require.NoError(t, err)
		var ids []string
		for _, e := range cal.Events() {
			ids = append(ids, e.Id())
		}
		return ids
	}
	a, b := uids(first.String()), uids(second.String())
	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0], a[1])
	assert.NotContains(t, first.String(), "BEGIN:VALARM")
}
