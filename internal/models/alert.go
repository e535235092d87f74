package models

import "time"

// AlertStatus represents the lifecycle state of an alert.
type AlertStatus string

const (
	AlertActive    AlertStatus = "active"
	AlertTriggered AlertStatus = "triggered"
	AlertCancelled AlertStatus = "cancelled"
)

// IsTerminal reports whether no transition can leave the status.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertTriggered || s == AlertCancelled
}

// ParseAlertStatus maps a status name to an AlertStatus.
func ParseAlertStatus(s string) (AlertStatus, bool) {
	switch AlertStatus(s) {
	case AlertActive, AlertTriggered, AlertCancelled:
		return AlertStatus(s), true
	}
	return "", false
}

// Alert represents a user reminder derived from a financial event.
type Alert struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Symbol      string      `json:"symbol"`
	EventType   EventType   `json:"event_type"`
	EventDate   time.Time   `json:"event_date"`
	AlertDate   time.Time   `json:"alert_date"`
	Description string      `json:"description"`
	Status      AlertStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	TriggeredAt *time.Time  `json:"triggered_at,omitempty"`
}

// AlertSummary holds per-status counts for one user.
type AlertSummary struct {
	UserID         string `json:"user_id"`
	ActiveCount    int    `json:"active_count"`
	TriggeredCount int    `json:"triggered_count"`
	CancelledCount int    `json:"cancelled_count"`
	TotalCount     int    `json:"total_count"`
	NextAlert      *Alert `json:"next_alert,omitempty"`
}

// CreateResult reports the outcome of bulk alert creation.
type CreateResult struct {
	CreatedCount int      `json:"created_count"`
	SkippedCount int      `json:"skipped_count"`
	Errors       []string `json:"errors"`
	Created      []Alert  `json:"created,omitempty"`
}
