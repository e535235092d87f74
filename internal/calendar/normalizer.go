// Package calendar turns raw source records into per-company event calendars
// and serves calendar queries.
package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/models"
	"bist-takvim/pkg/utils"
)

// numericDatePattern is one numeric date layout, tried in order.
type numericDatePattern struct {
	re        *regexp.Regexp
	yearFirst bool
}

var numericDatePatterns = []numericDatePattern{
	{re: regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)}, // 15.03.2025
	{re: regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)},   // 15/03/2025
	{re: regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)},   // 15-03-2025
	{re: regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), yearFirst: true},
}

// monthNamePattern matches "15 Mart 2025".
var monthNamePattern = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)

var turkishMonths = map[string]time.Month{
	"ocak":    time.January,
	"şubat":   time.February,
	"subat":   time.February,
	"mart":    time.March,
	"nisan":   time.April,
	"mayıs":   time.May,
	"mayis":   time.May,
	"haziran": time.June,
	"temmuz":  time.July,
	"ağustos": time.August,
	"agustos": time.August,
	"eylül":   time.September,
	"eylul":   time.September,
	"ekim":    time.October,
	"kasım":   time.November,
	"kasim":   time.November,
	"aralık":  time.December,
	"aralik":  time.December,
}

// ParseDate extracts a calendar date from free text. Numeric layouts are
// tried before month names; the first pattern that matches decides.
func ParseDate(text string) (time.Time, error) {
	for _, p := range numericDatePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, month, day := m[3], m[2], m[1]
		if p.yearFirst {
			year, day = m[1], m[3]
		}
		return buildDate(text, year, month, day)
	}

	for _, m := range monthNamePattern.FindAllStringSubmatch(text, -1) {
		for _, name := range utils.FoldCase(m[2]) {
			if month, ok := turkishMonths[name]; ok {
				return buildDate(text, m[3], strconv.Itoa(int(month)), m[1])
			}
		}
	}

	return time.Time{}, apperrors.NewParseError("date", text, "no supported date pattern")
}

func buildDate(text, year, month, day string) (time.Time, error) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)

	t := clock.Date(y, time.Month(m), d)
	// time.Date normalizes 31.02 into March; reject instead
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, apperrors.NewParseError("date", text, "day or month out of range")
	}
	return t, nil
}

// classificationRule maps a keyword set to an event type.
type classificationRule struct {
	eventType models.EventType
	keywords  []string
}

// classificationRules is checked in order; the first matching rule wins.
var classificationRules = []classificationRule{
	{models.EventBalanceSheet, []string{"bilanço", "finansal", "gelir", "kar", "zarar", "balance sheet", "earnings"}},
	{models.EventShareholderMeeting, []string{"genel kurul", "gk", "toplantı", "general assembly"}},
	{models.EventDividend, []string{"temettü", "kar payı", "dividend"}},
	{models.EventCapitalIncrease, []string{"hisse", "sermaye", "artırım", "bedelsiz", "bedelli"}},
	{models.EventCorporateAction, []string{"birleşme", "devralma", "satın alma", "merger", "acquisition"}},
}

// Classify returns the event type for a title. When the title matches no
// rule the category hint is used, either as an explicit type name or as
// text run through the same rules.
func Classify(title, categoryHint string) models.EventType {
	if t := classifyText(title); t != models.EventOther {
		return t
	}
	if t, ok := models.ParseEventType(categoryHint); ok {
		return t
	}
	return classifyText(categoryHint)
}

func classifyText(text string) models.EventType {
	if strings.TrimSpace(text) == "" {
		return models.EventOther
	}
	variants := utils.FoldCase(text)
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			for _, v := range variants {
				if strings.Contains(v, kw) {
					return rule.eventType
				}
			}
		}
	}
	return models.EventOther
}

// Normalize converts a raw record into a FinancialEvent for symbol.
func Normalize(symbol string, rec models.RawRecord, today time.Time) (models.FinancialEvent, error) {
	title := utils.NormalizeSpace(rec.Title)
	if title == "" {
		return models.FinancialEvent{}, apperrors.NewParseError("title", rec.Title, "empty title")
	}

	date, err := ParseDate(rec.DateText)
	if err != nil {
		return models.FinancialEvent{}, err
	}

	return models.FinancialEvent{
		Symbol:      symbol,
		Type:        Classify(title, rec.CategoryHint),
		Date:        date,
		Description: title,
		Source:      rec.SourceName,
		Status:      models.StatusFor(date, clock.DateOf(today)),
	}, nil
}

var validate = validator.New()

// NormalizeSymbol upper-cases and validates a ticker symbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if err := validate.Var(s, "required,min=2,max=12,alphanum"); err != nil {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidSymbol, symbol)
	}
	return s, nil
}
