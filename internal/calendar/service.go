package calendar

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/logging"
	"bist-takvim/internal/models"
	"bist-takvim/internal/store"
)

// summaryWindowDays is the upcoming window counted by Summary.
const summaryWindowDays = 30

// CompanyInfo describes one stored calendar without its events.
type CompanyInfo struct {
	Symbol      string    `json:"symbol"`
	CompanyName string    `json:"company_name"`
	EventCount  int       `json:"event_count"`
	LastUpdate  time.Time `json:"last_update"`
}

// Service answers calendar queries on top of the event store.
type Service struct {
	store      store.EventStore
	aggregator *Aggregator
	clock      clock.Clock
	logger     zerolog.Logger
}

// NewService creates a calendar service.
func NewService(es store.EventStore, agg *Aggregator, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		store:      es,
		aggregator: agg,
		clock:      clk,
		logger:     logging.WithComponent(logger, "calendar"),
	}
}

// CompanyCalendar returns the calendar for symbol, refreshing it first when
// nothing is stored yet. Events come back sorted by date with statuses
// recomputed for today.
func (s *Service) CompanyCalendar(ctx context.Context, symbol string) (*models.CompanyCalendar, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	cal, err := s.store.GetCalendar(ctx, symbol)
	if errors.Is(err, apperrors.ErrSymbolNotFound) {
		s.logger.Debug().Str("symbol", symbol).Msg("No stored calendar, refreshing")
		res, rerr := s.aggregator.Refresh(ctx, symbol, false)
		if rerr != nil {
			return nil, rerr
		}
		cal, err = res.Calendar, nil
	}
	if err != nil {
		return nil, err
	}

	cal.RefreshStatuses(clock.Today(s.clock))
	sort.SliceStable(cal.Events, func(i, j int) bool { return cal.Events[i].Date.Before(cal.Events[j].Date) })
	return cal, nil
}

// Refresh re-aggregates symbol.
func (s *Service) Refresh(ctx context.Context, symbol string, force bool) (*RefreshResult, error) {
	return s.aggregator.Refresh(ctx, symbol, force)
}

// Search returns events whose type, description or company name contains
// query, ignoring case.
func (s *Service) Search(ctx context.Context, query string) ([]models.EventMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query", query, "must not be empty")
	}

	matches, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	s.refreshMatchStatuses(matches)
	return matches, nil
}

// Upcoming returns events within windowDays of today, ascending by date.
func (s *Service) Upcoming(ctx context.Context, windowDays int) ([]models.EventMatch, error) {
	if windowDays < 0 {
		return nil, apperrors.NewValidationError("days", windowDays, "must not be negative")
	}

	matches, err := s.store.Upcoming(ctx, clock.Today(s.clock), windowDays)
	if err != nil {
		return nil, err
	}
	s.refreshMatchStatuses(matches)
	return matches, nil
}

// AddEventRequest is a manually entered event.
type AddEventRequest struct {
	Symbol      string
	Type        string
	Date        string // YYYY-MM-DD or any format ParseDate accepts
	Description string
	Source      string
}

// AddEvent validates and appends a manual event. It does not deduplicate.
func (s *Service) AddEvent(ctx context.Context, req AddEventRequest) (*models.FinancialEvent, error) {
	symbol, err := NormalizeSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}

	eventType, ok := models.ParseEventType(req.Type)
	if !ok {
		return nil, apperrors.NewValidationError("type", req.Type, "unknown event type")
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.NewValidationError("date", req.Date, "unrecognized date")
	}

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, apperrors.NewValidationError("description", req.Description, "must not be empty")
	}

	source := req.Source
	if source == "" {
		source = "Manuel"
	}

	event := models.FinancialEvent{
		Symbol:      symbol,
		Type:        eventType,
		Date:        date,
		Description: desc,
		Source:      source,
		Status:      models.StatusFor(date, clock.Today(s.clock)),
	}

	if err := s.store.AddEvent(ctx, symbol, s.aggregator.CompanyName(symbol), event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Summary describes the whole stored calendar.
func (s *Service) Summary(ctx context.Context) (*models.CalendarSummary, error) {
	calendars, err := s.store.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.CalendarSummary{
		TotalCompanies: len(calendars),
		EventTypes:     make(map[models.EventType]int),
	}
	for _, c := range calendars {
		summary.TotalEvents += len(c.Events)
		for _, e := range c.Events {
			summary.EventTypes[e.Type]++
		}
		if c.LastUpdate.After(summary.LastUpdated) {
			summary.LastUpdated = c.LastUpdate
		}
	}

	upcoming, err := s.store.Upcoming(ctx, clock.Today(s.clock), summaryWindowDays)
	if err != nil {
		return nil, err
	}
	summary.UpcomingEvents = len(upcoming)

	return summary, nil
}

// EventTypes returns the event types present in the stored calendar.
func (s *Service) EventTypes(ctx context.Context) ([]models.EventType, error) {
	calendars, err := s.store.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[models.EventType]bool)
	for _, c := range calendars {
		for _, e := range c.Events {
			present[e.Type] = true
		}
	}

	var types []models.EventType
	for _, t := range models.EventTypes {
		if present[t] {
			types = append(types, t)
		}
	}
	return types, nil
}

// Companies lists every stored calendar.
func (s *Service) Companies(ctx context.Context) ([]CompanyInfo, error) {
	calendars, err := s.store.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]CompanyInfo, 0, len(calendars))
	for _, c := range calendars {
		infos = append(infos, CompanyInfo{
			Symbol:      c.Symbol,
			CompanyName: c.CompanyName,
			EventCount:  len(c.Events),
			LastUpdate:  c.LastUpdate,
		})
	}
	return infos, nil
}

func (s *Service) refreshMatchStatuses(matches []models.EventMatch) {
	today := clock.Today(s.clock)
	for i := range matches {
		matches[i].Event.Status = models.StatusFor(matches[i].Event.Date, today)
	}
}
