package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/models"
)

// DefaultSource tags synthesized events.
const DefaultSource = "Varsayılan"

// quarterEndRule yields the last day of every fiscal quarter.
const quarterEndRule = "FREQ=YEARLY;BYMONTH=3,6,9,12;BYMONTHDAY=-1"

// shareholderMeetingDay is when the annual general assembly is assumed to
// take place when no source reports it.
var shareholderMeetingDay = struct {
	month time.Month
	day   int
}{time.May, 15}

// dividendDays holds heuristic dividend payment days for a few well-known
// symbols.
var dividendDays = map[string]struct {
	month time.Month
	day   int
}{
	"GARAN": {time.July, 15},
	"AKBNK": {time.July, 20},
	"ISCTR": {time.July, 25},
	"KCHOL": {time.August, 5},
	"THYAO": {time.August, 10},
}

// DefaultEvents synthesizes a best-effort event set for symbol. It always
// contains at least the next quarter-end balance sheet.
func DefaultEvents(symbol string, today time.Time) []models.FinancialEvent {
	today = clock.DateOf(today)
	year := today.Year()

	var events []models.FinancialEvent
	add := func(t models.EventType, date time.Time, desc string) {
		events = append(events, models.FinancialEvent{
			Symbol:      symbol,
			Type:        t,
			Date:        date,
			Description: desc,
			Source:      DefaultSource,
			Status:      models.StatusFor(date, today),
		})
	}

	for _, d := range quarterEnds(today) {
		add(models.EventBalanceSheet, d, fmt.Sprintf("%d Yılı %d. Çeyrek Bilanço", d.Year(), int(d.Month())/3))
	}

	if today.Month() < shareholderMeetingDay.month {
		add(models.EventShareholderMeeting,
			clock.Date(year, shareholderMeetingDay.month, shareholderMeetingDay.day),
			fmt.Sprintf("%d Yılı Genel Kurul Toplantısı", year-1))
	}

	if day, ok := dividendDays[symbol]; ok {
		add(models.EventDividend,
			clock.Date(year, day.month, day.day),
			fmt.Sprintf("%d Yılı Temettü Ödemesi", year-1))
	}

	return events
}

// quarterEnds returns the quarter ends after today within today's year, or
// the first quarter end of next year once the year's last one has passed.
func quarterEnds(today time.Time) []time.Time {
	r, err := rrule.StrToRRule(quarterEndRule)
	if err != nil {
		// constant rule; unreachable
		panic(err)
	}
	r.DTStart(clock.Date(today.Year(), time.January, 1))

	dates := r.Between(today.AddDate(0, 0, 1), clock.Date(today.Year(), time.December, 31), true)
	if len(dates) == 0 {
		dates = []time.Time{r.After(today, false)}
	}

	for i, d := range dates {
		dates[i] = clock.DateOf(d)
	}
	return dates
}
