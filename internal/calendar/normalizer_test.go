package calendar

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/models"
)

func TestParseDateSupportedFormats(t *testing.T) {
	want := clock.Date(2025, 3, 15)

	inputs := []string{
		"15.03.2025",
		"15/03/2025",
		"15-03-2025",
		"2025-03-15",
		"15 Mart 2025",
		"15 MART 2025",
		"Açıklama tarihi: 15.3.2025 saat 18:00",
		"Bilanço 15 mart 2025 tarihinde",
	}

	for _, in := range inputs {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseDateTurkishMonths(t *testing.T) {
	tests := map[string]time.Time{
		"1 Ocak 2025":     clock.Date(2025, 1, 1),
		"28 Şubat 2025":   clock.Date(2025, 2, 28),
		"9 Mayıs 2025":    clock.Date(2025, 5, 9),
		"31 Ağustos 2025": clock.Date(2025, 8, 31),
		"30 EYLÜL 2025":   clock.Date(2025, 9, 30),
		"4 Kasim 2025":    clock.Date(2025, 11, 4),
		"31 ARALIK 2025":  clock.Date(2025, 12, 31),
	}

	for in, want := range tests {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseDateRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "yarın", "31.02.2025", "15 Foo 2025", "2025/13/01"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, apperrors.ErrParse, in)
	}
}

func TestParseDateFirstPatternWins(t *testing.T) {
	got, err := ParseDate("01.04.2025 (ertelendi: 2025-05-02)")
	require.NoError(t, err)
	assert.Equal(t, clock.Date(2025, 4, 1), got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		title, hint string
		want        models.EventType
	}{
		{"2024 Yılı Finansal Rapor", "", models.EventBalanceSheet},
		{"Olağan Genel Kurul Toplantısı", "", models.EventShareholderMeeting},
		{"TEMETTÜ DAĞITIMI", "", models.EventDividend},
		{"Bedelsiz Sermaye Artırımı", "", models.EventCapitalIncrease},
		{"Şirket Birleşmesi Hakkında", "", models.EventCorporateAction},
		{"Dividend Payment", "", models.EventDividend},
		{"Yatırımcı günü", "", models.EventOther},
		{"Yatırımcı günü", "news", models.EventNews},
		{"Yatırımcı günü", "Özel Durum Açıklaması (Temettü)", models.EventDividend},
		// balance sheet keywords take priority over later rules
		{"Genel Kurul ve Bilanço Onayı", "", models.EventBalanceSheet},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.title, tt.hint), "%q / %q", tt.title, tt.hint)
	}
}

func TestNormalize(t *testing.T) {
	today := clock.Date(2025, 3, 1)

	e, err := Normalize("THYAO", models.RawRecord{
		Title:      "  2024 Yılı\n Temettü   Ödemesi ",
		DateText:   "10.08.2025",
		SourceName: "KAP",
	}, today)
	require.NoError(t, err)
	assert.Equal(t, "2024 Yılı Temettü Ödemesi", e.Description)
	assert.Equal(t, models.EventDividend, e.Type)
	assert.Equal(t, models.EventPending, e.Status)
	assert.Equal(t, "KAP", e.Source)

	past, err := Normalize("THYAO", models.RawRecord{Title: "Genel Kurul", DateText: "01.03.2025"}, today)
	require.NoError(t, err)
	assert.Equal(t, models.EventCompleted, past.Status, "an event dated today is completed")

	_, err = Normalize("THYAO", models.RawRecord{Title: "", DateText: "01.03.2025"}, today)
	assert.ErrorIs(t, err, apperrors.ErrParse)

	_, err = Normalize("THYAO", models.RawRecord{Title: "Genel Kurul", DateText: "yakında"}, today)
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestNormalizeSymbol(t *testing.T) {
	s, err := NormalizeSymbol(" thyao ")
	require.NoError(t, err)
	assert.Equal(t, "THYAO", s)

	for _, bad := range []string{"", "X", "THY AO", "THYAO;DROP", "ABCDEFGHIJKLMN"} {
		_, err := NormalizeSymbol(bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol, bad)
	}
}

// Property: every supported numeric layout of a valid date parses back to
// the same calendar date.
func TestProperty_DateRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	layouts := []func(time.Time) string{
		func(d time.Time) string { return fmt.Sprintf("%02d.%02d.%d", d.Day(), d.Month(), d.Year()) },
		func(d time.Time) string { return fmt.Sprintf("%d/%d/%d", d.Day(), d.Month(), d.Year()) },
		func(d time.Time) string { return fmt.Sprintf("%02d-%02d-%d", d.Day(), d.Month(), d.Year()) },
		func(d time.Time) string { return d.Format("2006-01-02") },
		func(d time.Time) string {
			return fmt.Sprintf("%d %s %d", d.Day(), monthNames[d.Month()-1], d.Year())
		},
	}

	properties.Property("formatted date parses to the same day", prop.ForAll(
		func(offset int, layout int) bool {
			d := clock.Date(2000, 1, 1).AddDate(0, 0, offset)
			got, err := ParseDate("Tarih: " + layouts[layout](d))
			return err == nil && got.Equal(d)
		},
		gen.IntRange(0, 365*50),
		gen.IntRange(0, len(layouts)-1),
	))

	properties.TestingRun(t)
}

var monthNames = []string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}
