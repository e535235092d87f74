package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"bist-takvim/internal/clock"
	"bist-takvim/pkg/utils"
)

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return clock.FormatDate(t)
}

// FormatLongDate formats a date the Turkish way, e.g. "15 Mart 2025".
func FormatLongDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return utils.FormatTurkishDate(t)
}

// FormatRelative describes date relative to today.
func FormatRelative(date, today time.Time) string {
	return utils.FormatDaysUntil(clock.DaysBetween(today, date))
}

// FormatDateTime formats a timestamp in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// TruncateString truncates s to maxLen runes with an ellipsis.
func TruncateString(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// PadRight pads s with spaces to length runes.
func PadRight(s string, length int) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

// PadLeft pads s with leading spaces to length runes.
func PadLeft(s string, length int) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(" ", length-n) + s
}
