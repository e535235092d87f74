// Package models provides domain models for the financial-event calendar.
package models

import (
	"strings"
	"time"
)

// EventType represents the category of a company event.
type EventType string

const (
	EventBalanceSheet       EventType = "balance_sheet"
	EventShareholderMeeting EventType = "shareholder_meeting"
	EventDividend           EventType = "dividend"
	EventCapitalIncrease    EventType = "capital_increase"
	EventCorporateAction    EventType = "corporate_action"
	EventNews               EventType = "news"
	EventOther              EventType = "other"
)

// EventTypes lists every event type in classification priority order.
var EventTypes = []EventType{
	EventBalanceSheet,
	EventShareholderMeeting,
	EventDividend,
	EventCapitalIncrease,
	EventCorporateAction,
	EventNews,
	EventOther,
}

// ParseEventType maps a type name to an EventType. The second return value
// is false for unknown names.
func ParseEventType(s string) (EventType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range EventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// EventStatus represents whether an event is still ahead.
type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventCompleted EventStatus = "completed"
)

// StatusFor derives an event status: completed once the date is today or
// earlier, pending otherwise.
func StatusFor(date, today time.Time) EventStatus {
	if date.After(today) {
		return EventPending
	}
	return EventCompleted
}

// descriptionKeyLength is the number of description runes that take part in
// the identity key.
const descriptionKeyLength = 50

// FinancialEvent represents a dated company event.
type FinancialEvent struct {
	Symbol      string      `json:"symbol"`
	Type        EventType   `json:"type"`
	Date        time.Time   `json:"date"`
	Description string      `json:"description"`
	Source      string      `json:"source"`
	Status      EventStatus `json:"status"`
}

// Key returns the identity key: two events with the same key are the same
// event regardless of source.
func (e FinancialEvent) Key() string {
	desc := []rune(e.Description)
	if len(desc) > descriptionKeyLength {
		desc = desc[:descriptionKeyLength]
	}
	return strings.Join([]string{
		e.Symbol,
		string(e.Type),
		e.Date.Format("2006-01-02"),
		string(desc),
	}, "|")
}

// CompanyCalendar holds every known event for one symbol.
type CompanyCalendar struct {
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"company_name"`
	Events      []FinancialEvent `json:"events"`
	LastUpdate  time.Time        `json:"last_update"`
}

// RefreshStatuses recomputes every event status against today.
func (c *CompanyCalendar) RefreshStatuses(today time.Time) {
	for i := range c.Events {
		c.Events[i].Status = StatusFor(c.Events[i].Date, today)
	}
}

// PendingEvents returns the events whose status is pending.
func (c *CompanyCalendar) PendingEvents() []FinancialEvent {
	var pending []FinancialEvent
	for _, e := range c.Events {
		if e.Status == EventPending {
			pending = append(pending, e)
		}
	}
	return pending
}

// EventMatch is an event flattened together with its company.
type EventMatch struct {
	Symbol      string         `json:"symbol"`
	CompanyName string         `json:"company_name"`
	Event       FinancialEvent `json:"event"`
}

// RawRecord is an unnormalized event as returned by a source adapter.
type RawRecord struct {
	Title        string
	DateText     string
	CategoryHint string
	SourceName   string
}

// CalendarSummary describes the whole stored calendar.
type CalendarSummary struct {
	TotalCompanies int               `json:"total_companies"`
	TotalEvents    int               `json:"total_events"`
	EventTypes     map[EventType]int `json:"event_types"`
	UpcomingEvents int               `json:"upcoming_events"`
	LastUpdated    time.Time         `json:"last_updated"`
}
