package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/models"
)

// CSVRow is one event in the calendar CSV format.
type CSVRow struct {
	Symbol      string `csv:"symbol"`
	CompanyName string `csv:"company_name"`
	Type        string `csv:"type"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Source      string `csv:"source"`
	Status      string `csv:"status"`
}

// ImportResult reports the outcome of a CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ExportCSV writes every stored event as one CSV row.
func ExportCSV(ctx context.Context, es EventStore, w io.Writer) (int, error) {
	calendars, err := es.ListCalendars(ctx)
	if err != nil {
		return 0, err
	}

	rows := make([]*CSVRow, 0)
	for _, c := range calendars {
		for _, e := range c.Events {
			rows = append(rows, &CSVRow{
				Symbol:      c.Symbol,
				CompanyName: c.CompanyName,
				Type:        string(e.Type),
				Date:        clock.FormatDate(e.Date),
				Description: e.Description,
				Source:      e.Source,
				Status:      string(e.Status),
			})
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}
	return len(rows), nil
}

// ImportCSV appends every row of r through AddEvent. Rows are not
// deduplicated against stored events. Malformed rows are skipped and
// reported; today derives the status of rows that carry none.
func ImportCSV(ctx context.Context, es EventStore, r io.Reader, today time.Time) (*ImportResult, error) {
	var rows []*CSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		line := i + 2 // header is line 1

		event, err := row.event(today)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if err := es.AddEvent(ctx, event.Symbol, strings.TrimSpace(row.CompanyName), event); err != nil {
			return result, fmt.Errorf("line %d: %w", line, err)
		}
		result.Imported++
	}

	return result, nil
}

func (r *CSVRow) event(today time.Time) (models.FinancialEvent, error) {
	symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
	if symbol == "" {
		return models.FinancialEvent{}, fmt.Errorf("missing symbol")
	}

	date, err := clock.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return models.FinancialEvent{}, fmt.Errorf("bad date %q", r.Date)
	}

	eventType, ok := models.ParseEventType(r.Type)
	if !ok {
		eventType = models.EventOther
	}

	status := models.EventStatus(strings.TrimSpace(r.Status))
	if status != models.EventPending && status != models.EventCompleted {
		status = models.StatusFor(date, clock.DateOf(today))
	}

	return models.FinancialEvent{
		Symbol:      symbol,
		Type:        eventType,
		Date:        date,
		Description: r.Description,
		Source:      r.Source,
		Status:      status,
	}, nil
}
