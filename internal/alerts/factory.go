// Package alerts derives alerts from calendar events and fires them when due.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/logging"
	"bist-takvim/internal/models"
	"bist-takvim/internal/store"
)

// DefaultLeadDays is the lead time of a directly created alert.
const DefaultLeadDays = 1

// AlertDate returns when an alert for eventDate should fire: leadDays before
// the event, but never before today.
func AlertDate(eventDate, today time.Time, leadDays int) time.Time {
	eventDate, today = clock.DateOf(eventDate), clock.DateOf(today)
	naive := eventDate.AddDate(0, 0, -leadDays)
	if naive.Before(today) {
		return today
	}
	return naive
}

// Factory creates alerts. It holds no state beyond its dependencies.
type Factory struct {
	store  store.AlertStore
	clock  clock.Clock
	logger zerolog.Logger
}

// NewFactory creates an alert factory.
func NewFactory(as store.AlertStore, clk clock.Clock, logger zerolog.Logger) *Factory {
	return &Factory{
		store:  as,
		clock:  clk,
		logger: logging.WithComponent(logger, "alert_factory"),
	}
}

// CreateRequest describes a directly created alert.
type CreateRequest struct {
	UserID      string
	Symbol      string
	EventType   models.EventType
	EventDate   time.Time
	Description string
	LeadDays    *int // nil means DefaultLeadDays
}

// CreateAlert validates and stores one alert. The event must not lie before
// today. A second active alert for the same user and event fails with
// ErrDuplicateAlert.
func (f *Factory) CreateAlert(ctx context.Context, req CreateRequest) (*models.Alert, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperrors.NewValidationError("user_id", req.UserID, "must not be empty")
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, apperrors.NewValidationError("symbol", req.Symbol, "must not be empty")
	}
	if _, ok := models.ParseEventType(string(req.EventType)); !ok {
		return nil, apperrors.NewValidationError("event_type", req.EventType, "unknown event type")
	}
	if req.EventDate.IsZero() {
		return nil, apperrors.NewValidationError("event_date", req.EventDate, "must be set")
	}
	today := clock.Today(f.clock)
	if clock.DateOf(req.EventDate).Before(today) {
		return nil, apperrors.NewValidationError("event_date", clock.FormatDate(req.EventDate), "must not be in the past")
	}

	lead := DefaultLeadDays
	if req.LeadDays != nil {
		lead = *req.LeadDays
	}
	if lead < 0 {
		return nil, apperrors.NewValidationError("lead_days", lead, "must not be negative")
	}

	alert := &models.Alert{
		UserID:      req.UserID,
		Symbol:      symbol,
		EventType:   req.EventType,
		EventDate:   clock.DateOf(req.EventDate),
		AlertDate:   AlertDate(req.EventDate, today, lead),
		Description: req.Description,
		Status:      models.AlertActive,
	}
	if err := f.store.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	l := logging.WithAlertID(f.logger, alert.ID)
	l.Info().
		Str("user_id", alert.UserID).
		Str("symbol", alert.Symbol).
		Str("alert_date", clock.FormatDate(alert.AlertDate)).
		Msg("Alert created")
	return alert, nil
}

// CreateFromEvents creates one alert per pending event unless the user
// already has an active alert for it. Per-event failures are collected and do
// not stop the remaining events.
func (f *Factory) CreateFromEvents(ctx context.Context, userID, symbol string, events []models.FinancialEvent, leadDays int) (*models.CreateResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("user_id", userID, "must not be empty")
	}
	if leadDays < 0 {
		return nil, apperrors.NewValidationError("lead_days", leadDays, "must not be negative")
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	today := clock.Today(f.clock)
	result := &models.CreateResult{Errors: []string{}}

	for _, e := range events {
		if e.Status != models.EventPending {
			continue
		}

		existing, err := f.store.FindActiveAlert(ctx, userID, symbol, e.Type, e.Date)
		if err != nil {
			result.Errors = append(result.Errors, eventError(e, err))
			continue
		}
		if existing != nil {
			result.SkippedCount++
			continue
		}

		alert := &models.Alert{
			UserID:      userID,
			Symbol:      symbol,
			EventType:   e.Type,
			EventDate:   e.Date,
			AlertDate:   AlertDate(e.Date, today, leadDays),
			Description: e.Description,
			Status:      models.AlertActive,
		}
		err = f.store.CreateAlert(ctx, alert)
		switch {
		case errors.Is(err, apperrors.ErrDuplicateAlert):
			// Lost a race with a concurrent creation
			result.SkippedCount++
		case err != nil:
			result.Errors = append(result.Errors, eventError(e, err))
		default:
			result.CreatedCount++
			result.Created = append(result.Created, *alert)
		}
	}

	f.logger.Info().
		Str("user_id", userID).
		Str("symbol", symbol).
		Int("created", result.CreatedCount).
		Int("skipped", result.SkippedCount).
		Int("errors", len(result.Errors)).
		Msg("Alerts created from calendar")
	return result, nil
}

func eventError(e models.FinancialEvent, err error) string {
	return fmt.Sprintf("%s %s: %v", e.Type, clock.FormatDate(e.Date), err)
}
