package cli

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"bist-takvim/internal/clock"
)

func TestFormatRelative(t *testing.T) {
	today := clock.Date(2025, 3, 14)

	tests := []struct {
		date time.Time
		want string
	}{
		{clock.Date(2025, 3, 14), "bugün"},
		{clock.Date(2025, 3, 15), "yarın"},
		{clock.Date(2025, 3, 24), "10 gün kaldı"},
		{clock.Date(2025, 3, 11), "3 gün önce"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRelative(tt.date, today), clock.FormatDate(tt.date))
	}
}

func TestFormatLongDate(t *testing.T) {
	assert.Equal(t, "15 Mart 2025", FormatLongDate(clock.Date(2025, 3, 15)))
	assert.Equal(t, "1 Ağustos 2025", FormatLongDate(clock.Date(2025, 8, 1)))
	assert.Equal(t, "-", FormatLongDate(time.Time{}))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5*time.Minute + 3*time.Second, "5m 3s"},
		{2*time.Hour + 30*time.Minute, "2h 30m"},
		{50 * time.Hour, "2d 2h"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestPadHandlesTurkishLetters(t *testing.T) {
	assert.Equal(t, "Ereğli  |", PadRight("Ereğli", 8)+"|")
	assert.Equal(t, "|  Şubat", "|"+PadLeft("Şubat", 7))
	assert.Equal(t, "İş Bankası", PadRight("İş Bankası", 4), "longer strings are kept")
}

func TestVisibleWidthIgnoresColor(t *testing.T) {
	colored := "\x1b[32mAkbank\x1b[0m"
	assert.Equal(t, 6, visibleWidth(colored))
}

func turkishText() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf('a', 'k', 'ş', 'ğ', 'İ', 'ı', 'ö', ' ')).
		Map(func(rs []rune) string {
			var b strings.Builder
			for _, r := range rs {
				b.WriteRune(r)
			}
			return b.String()
		})
}

func TestProperty_PadRightWidth(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("PadRight reaches the width and keeps the prefix", prop.ForAll(
		func(s string, width int) bool {
			padded := PadRight(s, width)
			n := utf8.RuneCountInString(s)
			if !strings.HasPrefix(padded, s) {
				return false
			}
			if n >= width {
				return padded == s
			}
			return utf8.RuneCountInString(padded) == width
		},
		turkishText(),
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}

func TestProperty_TruncateStringBound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("TruncateString never exceeds the limit", prop.ForAll(
		func(s string, limit int) bool {
			out := TruncateString(s, limit)
			if utf8.RuneCountInString(s) <= limit {
				return out == s
			}
			return utf8.RuneCountInString(out) == limit
		},
		turkishText(),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}
