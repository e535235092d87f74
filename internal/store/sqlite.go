package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/models"
	"bist-takvim/pkg/utils"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	clock  clock.Clock
	logger zerolog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the clock used for creation timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *SQLiteStore) { s.clock = c }
}

// WithLogger sets the logger used to report skipped rows.
func WithLogger(l zerolog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	// Immediate transactions take the write lock up front so concurrent
	// writers wait on busy_timeout instead of failing on lock upgrade.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		clock:  clock.System{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per symbol
	CREATE TABLE IF NOT EXISTS calendars (
		symbol TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		last_update TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Events keep their calendar order through position
	CREATE TABLE IF NOT EXISTS calendar_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		FOREIGN KEY (symbol) REFERENCES calendars(symbol)
	);

	CREATE INDEX IF NOT EXISTS idx_calendar_events_symbol ON calendar_events(symbol, position);
	CREATE INDEX IF NOT EXISTS idx_calendar_events_date ON calendar_events(date);

	-- User alerts
	CREATE TABLE IF NOT EXISTS financial_alerts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_date TEXT NOT NULL,
		alert_date TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		triggered_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_user ON financial_alerts(user_id, status, alert_date);
	CREATE INDEX IF NOT EXISTS idx_alerts_due ON financial_alerts(status, alert_date);

	-- At most one active alert per user and event
	CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_active_event
		ON financial_alerts(user_id, symbol, event_type, event_date)
		WHERE status = 'active';
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Calendar Methods
// ============================================================================

// UpsertCalendar replaces the calendar for cal.Symbol in one transaction.
func (s *SQLiteStore) UpsertCalendar(ctx context.Context, cal *models.CompanyCalendar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("upsert calendar", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calendars (symbol, company_name, last_update, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			company_name = excluded.company_name,
			last_update = excluded.last_update,
			updated_at = excluded.updated_at
	`, cal.Symbol, cal.CompanyName, clock.FormatDate(cal.LastUpdate), s.clock.Now())
	if err != nil {
		return apperrors.NewStoreError("upsert calendar", fmt.Errorf("failed to save calendar: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE symbol = ?`, cal.Symbol); err != nil {
		return apperrors.NewStoreError("upsert calendar", fmt.Errorf("failed to clear events: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calendar_events (symbol, position, type, date, description, source, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewStoreError("upsert calendar", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer stmt.Close()

	for i, e := range cal.Events {
		_, err := stmt.ExecContext(ctx, cal.Symbol, i, string(e.Type), clock.FormatDate(e.Date),
			e.Description, e.Source, string(e.Status))
		if err != nil {
			return apperrors.NewStoreError("upsert calendar", fmt.Errorf("failed to insert event: %w", err))
		}
	}

	return apperrors.NewStoreError("upsert calendar", tx.Commit())
}

// GetCalendar returns the calendar stored for symbol.
func (s *SQLiteStore) GetCalendar(ctx context.Context, symbol string) (*models.CompanyCalendar, error) {
	cal := &models.CompanyCalendar{Symbol: symbol}
	var lastUpdate string

	err := s.db.QueryRowContext(ctx, `
		SELECT company_name, last_update FROM calendars WHERE symbol = ?
	`, symbol).Scan(&cal.CompanyName, &lastUpdate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, symbol)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get calendar", err)
	}
	cal.LastUpdate = s.parseDateOrZero(lastUpdate)

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, type, date, description, source, status
		FROM calendar_events WHERE symbol = ? ORDER BY position ASC
	`, symbol)
	if err != nil {
		return nil, apperrors.NewStoreError("get calendar", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, ok, err := s.scanEvent(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("get calendar", err)
		}
		if ok {
			cal.Events = append(cal.Events, e)
		}
	}

	return cal, apperrors.NewStoreError("get calendar", rows.Err())
}

// ListCalendars returns every stored calendar ordered by symbol.
func (s *SQLiteStore) ListCalendars(ctx context.Context) ([]models.CompanyCalendar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, company_name, last_update FROM calendars ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, apperrors.NewStoreError("list calendars", err)
	}

	var calendars []models.CompanyCalendar
	index := make(map[string]int)
	for rows.Next() {
		var c models.CompanyCalendar
		var lastUpdate string
		if err := rows.Scan(&c.Symbol, &c.CompanyName, &lastUpdate); err != nil {
			rows.Close()
			return nil, apperrors.NewStoreError("list calendars", fmt.Errorf("failed to scan calendar: %w", err))
		}
		c.LastUpdate = s.parseDateOrZero(lastUpdate)
		index[c.Symbol] = len(calendars)
		calendars = append(calendars, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("list calendars", err)
	}

	eventRows, err := s.db.QueryContext(ctx, `
		SELECT symbol, type, date, description, source, status
		FROM calendar_events ORDER BY symbol ASC, position ASC
	`)
	if err != nil {
		return nil, apperrors.NewStoreError("list calendars", err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		e, ok, err := s.scanEvent(eventRows)
		if err != nil {
			return nil, apperrors.NewStoreError("list calendars", err)
		}
		i, known := index[e.Symbol]
		if !ok || !known {
			continue
		}
		calendars[i].Events = append(calendars[i].Events, e)
	}

	return calendars, apperrors.NewStoreError("list calendars", eventRows.Err())
}

// AddEvent appends event to the symbol's calendar. A missing calendar is
// created with today's date as its last update.
func (s *SQLiteStore) AddEvent(ctx context.Context, symbol, companyName string, event models.FinancialEvent) error {
	if companyName == "" {
		companyName = symbol
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("add event", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calendars (symbol, company_name, last_update, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO NOTHING
	`, symbol, companyName, clock.FormatDate(clock.Today(s.clock)), s.clock.Now())
	if err != nil {
		return apperrors.NewStoreError("add event", fmt.Errorf("failed to create calendar: %w", err))
	}

	var position int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM calendar_events WHERE symbol = ?
	`, symbol).Scan(&position)
	if err != nil {
		return apperrors.NewStoreError("add event", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calendar_events (symbol, position, type, date, description, source, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, symbol, position, string(event.Type), clock.FormatDate(event.Date), event.Description, event.Source, string(event.Status))
	if err != nil {
		return apperrors.NewStoreError("add event", fmt.Errorf("failed to insert event: %w", err))
	}

	return apperrors.NewStoreError("add event", tx.Commit())
}

// Search returns events whose type, description or company name contains
// query. Matching folds case in both the generic and the Turkish sense, so it
// runs in Go rather than in SQL.
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]models.EventMatch, error) {
	calendars, err := s.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	var matches []models.EventMatch
	for _, c := range calendars {
		for _, e := range c.Events {
			if utils.ContainsFold(string(e.Type), query) ||
				utils.ContainsFold(e.Description, query) ||
				utils.ContainsFold(c.CompanyName, query) {
				matches = append(matches, models.EventMatch{Symbol: c.Symbol, CompanyName: c.CompanyName, Event: e})
			}
		}
	}
	return matches, nil
}

// Upcoming returns events dated from today through today+windowDays.
func (s *SQLiteStore) Upcoming(ctx context.Context, today time.Time, windowDays int) ([]models.EventMatch, error) {
	if windowDays < 0 {
		return nil, nil
	}
	from := clock.DateOf(today)
	to := from.AddDate(0, 0, windowDays)

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.symbol, c.company_name, e.type, e.date, e.description, e.source, e.status
		FROM calendar_events e
		JOIN calendars c ON c.symbol = e.symbol
		WHERE e.date >= ? AND e.date <= ?
		ORDER BY e.date ASC, e.symbol ASC, e.position ASC
	`, clock.FormatDate(from), clock.FormatDate(to))
	if err != nil {
		return nil, apperrors.NewStoreError("upcoming events", err)
	}
	defer rows.Close()

	var matches []models.EventMatch
	for rows.Next() {
		var m models.EventMatch
		var eventType, date, status string
		if err := rows.Scan(&m.Symbol, &m.CompanyName, &eventType, &date, &m.Event.Description, &m.Event.Source, &status); err != nil {
			return nil, apperrors.NewStoreError("upcoming events", fmt.Errorf("failed to scan event: %w", err))
		}
		d, err := clock.ParseDate(date)
		if err != nil || d.Before(from) || d.After(to) {
			// text range filtering lets odd strings like "2025-3-1" through
			s.logger.Debug().Str("symbol", m.Symbol).Str("date", date).Msg("Skipping event with unparseable date")
			continue
		}
		m.Event.Symbol = m.Symbol
		m.Event.Type = models.EventType(eventType)
		m.Event.Date = d
		m.Event.Status = models.EventStatus(status)
		matches = append(matches, m)
	}

	return matches, apperrors.NewStoreError("upcoming events", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

// scanEvent reads one event row. ok is false for rows whose date cannot be
// parsed.
func (s *SQLiteStore) scanEvent(row scanner) (models.FinancialEvent, bool, error) {
	var e models.FinancialEvent
	var eventType, date, status string
	if err := row.Scan(&e.Symbol, &eventType, &date, &e.Description, &e.Source, &status); err != nil {
		return e, false, fmt.Errorf("failed to scan event: %w", err)
	}

	d, err := clock.ParseDate(date)
	if err != nil {
		s.logger.Debug().Str("symbol", e.Symbol).Str("date", date).Msg("Skipping event with unparseable date")
		return e, false, nil
	}

	e.Type = models.EventType(eventType)
	e.Date = d
	e.Status = models.EventStatus(status)
	return e, true, nil
}

func (s *SQLiteStore) parseDateOrZero(v string) time.Time {
	d, err := clock.ParseDate(v)
	if err != nil {
		return time.Time{}
	}
	return d
}

// ============================================================================
// Alert Methods
// ============================================================================

const alertColumns = `id, user_id, symbol, event_type, event_date, alert_date, description, status, created_at, triggered_at`

// CreateAlert inserts an alert, assigning its ID and creation time.
func (s *SQLiteStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Status == "" {
		alert.Status = models.AlertActive
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.clock.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.UserID, alert.Symbol, string(alert.EventType),
		clock.FormatDate(alert.EventDate), clock.FormatDate(alert.AlertDate),
		alert.Description, string(alert.Status), alert.CreatedAt, alert.TriggeredAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s %s %s", apperrors.ErrDuplicateAlert,
				alert.Symbol, alert.EventType, clock.FormatDate(alert.EventDate))
		}
		return apperrors.NewStoreError("create alert", fmt.Errorf("failed to save alert: %w", err))
	}
	return nil
}

// GetAlert returns one alert by ID.
func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM financial_alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAlertNotFound, id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get alert", err)
	}
	return a, nil
}

// FindActiveAlert returns the active alert for an event, or nil.
func (s *SQLiteStore) FindActiveAlert(ctx context.Context, userID, symbol string, eventType models.EventType, eventDate time.Time) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM financial_alerts
		WHERE user_id = ? AND symbol = ? AND event_type = ? AND event_date = ? AND status = 'active'
	`, userID, symbol, string(eventType), clock.FormatDate(eventDate))
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("find active alert", err)
	}
	return a, nil
}

// ListAlerts returns a user's alerts ordered by alert date.
func (s *SQLiteStore) ListAlerts(ctx context.Context, userID string, status models.AlertStatus) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM financial_alerts WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY alert_date ASC, created_at ASC`

	return s.queryAlerts(ctx, "list alerts", query, args...)
}

// PendingDue returns active alerts whose alert date has been reached.
func (s *SQLiteStore) PendingDue(ctx context.Context, now time.Time) ([]models.Alert, error) {
	return s.queryAlerts(ctx, "pending alerts", `
		SELECT `+alertColumns+` FROM financial_alerts
		WHERE status = 'active' AND alert_date <= ?
		ORDER BY alert_date ASC, created_at ASC
	`, clock.FormatDate(clock.DateOf(now)))
}

// MarkTriggered sets an active alert to triggered. The status check and the
// write are one statement, so a concurrent cancel makes this a no-op.
func (s *SQLiteStore) MarkTriggered(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE financial_alerts SET status = 'triggered', triggered_at = ?
		WHERE id = ? AND status = 'active'
	`, at, id)
	if err != nil {
		return false, apperrors.NewStoreError("trigger alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("trigger alert", err)
	}
	return rows == 1, nil
}

// CancelAlert sets a user's active alert to cancelled.
func (s *SQLiteStore) CancelAlert(ctx context.Context, id, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE financial_alerts SET status = 'cancelled'
		WHERE id = ? AND user_id = ? AND status = 'active'
	`, id, userID)
	if err != nil {
		return false, apperrors.NewStoreError("cancel alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("cancel alert", err)
	}
	if rows == 1 {
		return true, nil
	}

	// Distinguish "already terminal" from "no such alert"
	var status string
	err = s.db.QueryRowContext(ctx, `
		SELECT status FROM financial_alerts WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", apperrors.ErrAlertNotFound, id)
	}
	if err != nil {
		return false, apperrors.NewStoreError("cancel alert", err)
	}
	return false, nil
}

// DeleteAlert removes a user's alert regardless of its status.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM financial_alerts WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return apperrors.NewStoreError("delete alert", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrAlertNotFound, id)
	}
	return nil
}

// AlertSummary returns per-status counts and the earliest active alert.
func (s *SQLiteStore) AlertSummary(ctx context.Context, userID string) (*models.AlertSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM financial_alerts WHERE user_id = ? GROUP BY status
	`, userID)
	if err != nil {
		return nil, apperrors.NewStoreError("alert summary", err)
	}
	defer rows.Close()

	summary := &models.AlertSummary{UserID: userID}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.NewStoreError("alert summary", err)
		}
		switch models.AlertStatus(status) {
		case models.AlertActive:
			summary.ActiveCount = count
		case models.AlertTriggered:
			summary.TriggeredCount = count
		case models.AlertCancelled:
			summary.CancelledCount = count
		}
		summary.TotalCount += count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("alert summary", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM financial_alerts
		WHERE user_id = ? AND status = 'active'
		ORDER BY alert_date ASC, created_at ASC LIMIT 1
	`, userID)
	next, err := scanAlert(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, apperrors.NewStoreError("alert summary", err)
	default:
		summary.NextAlert = next
	}

	return summary, nil
}

// errBadAlertRow marks a stored alert whose dates cannot be parsed.
var errBadAlertRow = errors.New("malformed alert row")

// queryAlerts reads alert rows. A row with unparseable dates is logged and
// skipped so it cannot block the others.
func (s *SQLiteStore) queryAlerts(ctx context.Context, op, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError(op, err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if errors.Is(err, errBadAlertRow) {
			s.logger.Warn().Err(err).Str("op", op).Msg("Skipping malformed alert")
			continue
		}
		if err != nil {
			return nil, apperrors.NewStoreError(op, err)
		}
		alerts = append(alerts, *a)
	}

	return alerts, apperrors.NewStoreError(op, rows.Err())
}

func scanAlert(row scanner) (*models.Alert, error) {
	var a models.Alert
	var eventType, eventDate, alertDate, status string
	var triggeredAt sql.NullTime

	err := row.Scan(&a.ID, &a.UserID, &a.Symbol, &eventType, &eventDate, &alertDate,
		&a.Description, &status, &a.CreatedAt, &triggeredAt)
	if err != nil {
		return nil, err
	}

	if a.EventDate, err = clock.ParseDate(eventDate); err != nil {
		return nil, fmt.Errorf("%w: alert %s: bad event_date %q: %v", errBadAlertRow, a.ID, eventDate, err)
	}
	if a.AlertDate, err = clock.ParseDate(alertDate); err != nil {
		return nil, fmt.Errorf("%w: alert %s: bad alert_date %q: %v", errBadAlertRow, a.ID, alertDate, err)
	}
	a.EventType = models.EventType(eventType)
	a.Status = models.AlertStatus(status)
	if triggeredAt.Valid {
		t := triggeredAt.Time
		a.TriggeredAt = &t
	}
	return &a, nil
}
