// Package utils provides shared text and formatting helpers.
package utils

import (
	"fmt"
	"time"
)

var turkishMonthNames = [...]string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

// FormatTurkishDate formats a date as "15 Mart 2025".
func FormatTurkishDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), turkishMonthNames[t.Month()-1], t.Year())
}

// FormatDaysUntil describes how far away a date is, in days.
func FormatDaysUntil(days int) string {
	switch {
	case days == 0:
		return "bugün"
	case days == 1:
		return "yarın"
	case days < 0:
		return fmt.Sprintf("%d gün önce", -days)
	default:
		return fmt.Sprintf("%d gün kaldı", days)
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
