package calendar

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"bist-takvim/internal/models"
)

const icsProductID = "-//bist-takvim//Finansal Takvim//TR"

// ExportICS writes the calendars as one iCalendar document with an all-day
// VEVENT per event. UIDs derive from the event identity key, so re-exporting
// the same event yields the same UID. A positive leadDays adds a display
// alarm that many days before each event.
func ExportICS(w io.Writer, calendars []models.CompanyCalendar, stamp time.Time, leadDays int) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName("BIST Finansal Takvim")

	for _, c := range calendars {
		for _, e := range c.Events {
			uid := uuid.NewSHA1(uuid.NameSpaceOID, []byte(e.Key())).String() + "@bist-takvim"

			ev := cal.AddEvent(uid)
			ev.SetDtStampTime(stamp)
			ev.SetAllDayStartAt(e.Date)
			ev.SetAllDayEndAt(e.Date.AddDate(0, 0, 1))
			ev.SetSummary(fmt.Sprintf("%s: %s", c.Symbol, e.Description))
			ev.SetDescription(fmt.Sprintf("%s (%s)\nKaynak: %s", c.CompanyName, e.Type, e.Source))
			ev.AddProperty(ics.ComponentPropertyCategories, string(e.Type))

			if leadDays > 0 {
				alarm := ev.AddAlarm()
				alarm.SetAction(ics.ActionDisplay)
				alarm.SetTrigger(fmt.Sprintf("-P%dD", leadDays))
				alarm.SetDescription(e.Description)
			}
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("failed to write ics: %w", err)
	}
	return nil
}
