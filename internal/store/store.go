// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"bist-takvim/internal/models"
)

// EventStore persists company calendars, one per symbol.
type EventStore interface {
	// UpsertCalendar replaces the whole calendar for cal.Symbol atomically.
	UpsertCalendar(ctx context.Context, cal *models.CompanyCalendar) error
	// GetCalendar returns the stored calendar or ErrSymbolNotFound.
	GetCalendar(ctx context.Context, symbol string) (*models.CompanyCalendar, error)
	// ListCalendars returns every stored calendar ordered by symbol.
	ListCalendars(ctx context.Context) ([]models.CompanyCalendar, error)
	// AddEvent appends one event without deduplication, creating the
	// calendar when the symbol is unknown.
	AddEvent(ctx context.Context, symbol, companyName string, event models.FinancialEvent) error
	// Search matches query against event type, description and company name.
	Search(ctx context.Context, query string) ([]models.EventMatch, error)
	// Upcoming returns events dated within [today, today+windowDays],
	// ascending by date.
	Upcoming(ctx context.Context, today time.Time, windowDays int) ([]models.EventMatch, error)
}

// AlertStore persists alerts and guards their state machine.
type AlertStore interface {
	// CreateAlert inserts an active alert and assigns its ID. It returns
	// ErrDuplicateAlert when an identical active alert already exists.
	CreateAlert(ctx context.Context, alert *models.Alert) error
	// GetAlert returns the alert or ErrAlertNotFound.
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	// FindActiveAlert returns the active alert for the given event, or nil.
	FindActiveAlert(ctx context.Context, userID, symbol string, eventType models.EventType, eventDate time.Time) (*models.Alert, error)
	// ListAlerts returns a user's alerts ordered by alert date. An empty
	// status returns all of them.
	ListAlerts(ctx context.Context, userID string, status models.AlertStatus) ([]models.Alert, error)
	// PendingDue returns every active alert whose alert date is on or before now.
	PendingDue(ctx context.Context, now time.Time) ([]models.Alert, error)
	// MarkTriggered moves an alert from active to triggered. It reports
	// false when the alert was no longer active.
	MarkTriggered(ctx context.Context, id string, at time.Time) (bool, error)
	// CancelAlert moves a user's alert from active to cancelled. It reports
	// false when the alert was no longer active.
	CancelAlert(ctx context.Context, id, userID string) (bool, error)
	// DeleteAlert removes a user's alert in any state.
	DeleteAlert(ctx context.Context, id, userID string) error
	// AlertSummary returns per-status counts and the next active alert.
	AlertSummary(ctx context.Context, userID string) (*models.AlertSummary, error)
}

// Store combines both stores with lifecycle management.
type Store interface {
	EventStore
	AlertStore
	Close() error
}
