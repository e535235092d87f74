package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/singleflight"

	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/logging"
	"bist-takvim/internal/models"
	"bist-takvim/internal/resilience"
	"bist-takvim/internal/store"
)

// Source fetches raw event records for a symbol. Implementations must be safe
// for concurrent use.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) ([]models.RawRecord, error)
}

// SourceOutcome reports what one source contributed to a refresh.
type SourceOutcome struct {
	Source     string `json:"source"`
	Records    int    `json:"records"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Unparsed   int    `json:"unparsed"`
	Error      string `json:"error,omitempty"`
}

// RefreshResult is the outcome of refreshing one symbol.
type RefreshResult struct {
	Symbol       string                  `json:"symbol"`
	Calendar     *models.CompanyCalendar `json:"calendar"`
	Skipped      bool                    `json:"skipped"` // calendar was fresh
	UsedDefaults bool                    `json:"used_defaults"`
	Sources      []SourceOutcome         `json:"sources,omitempty"`
}

// AggregatorConfig holds aggregator settings.
type AggregatorConfig struct {
	// Freshness is how long a stored calendar is reused without a refetch,
	// counted in whole days.
	Freshness time.Duration
	// SourceTimeout bounds a single source call.
	SourceTimeout time.Duration
	// Companies maps symbols to display names.
	Companies map[string]string
}

// Aggregator merges the records of all sources into a company calendar.
type Aggregator struct {
	store    store.EventStore
	sources  []Source
	breakers *resilience.CircuitBreakerRegistry
	clock    clock.Clock
	config   AggregatorConfig
	logger   zerolog.Logger

	inflight singleflight.Group
}

// NewAggregator creates an aggregator. Source order is the merge priority:
// when two sources report the same event, the earlier source wins.
func NewAggregator(es store.EventStore, sources []Source, clk clock.Clock, config AggregatorConfig, logger zerolog.Logger) *Aggregator {
	cbConfig := resilience.DefaultCircuitBreakerConfig()
	cbConfig.CallTimeout = config.SourceTimeout

	return &Aggregator{
		store:    es,
		sources:  sources,
		breakers: resilience.NewCircuitBreakerRegistry(cbConfig),
		clock:    clk,
		config:   config,
		logger:   logging.WithComponent(logger, "aggregator"),
	}
}

// Breakers exposes per-source circuit statistics.
func (a *Aggregator) Breakers() []resilience.CircuitBreakerStats {
	return a.breakers.AllStats()
}

// CompanyName returns the display name configured for symbol.
func (a *Aggregator) CompanyName(symbol string) string {
	if name, ok := a.config.Companies[symbol]; ok && name != "" {
		return name
	}
	return symbol
}

// Refresh rebuilds the calendar for symbol from all sources and stores it.
// A fresh calendar is returned as-is unless force is set. Source failures
// never fail the refresh; only an invalid symbol or a store error does.
// Concurrent refreshes of the same symbol share one fetch.
func (a *Aggregator) Refresh(ctx context.Context, symbol string, force bool) (*RefreshResult, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	key := symbol
	if force {
		key += "!"
	}
	v, err, shared := a.inflight.Do(key, func() (interface{}, error) {
		return a.refresh(ctx, symbol, force)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		a.logger.Debug().Str("symbol", symbol).Msg("Joined in-flight refresh")
	}

	// Each caller gets its own events slice
	res := *v.(*RefreshResult)
	if res.Calendar != nil {
		cal := *res.Calendar
		cal.Events = append([]models.FinancialEvent(nil), cal.Events...)
		res.Calendar = &cal
	}
	return &res, nil
}

func (a *Aggregator) refresh(ctx context.Context, symbol string, force bool) (*RefreshResult, error) {
	today := clock.Today(a.clock)
	start := a.clock.Now()

	if !force {
		existing, err := a.store.GetCalendar(ctx, symbol)
		switch {
		case err == nil:
			if a.isFresh(existing, today) {
				existing.RefreshStatuses(today)
				return &RefreshResult{Symbol: symbol, Calendar: existing, Skipped: true}, nil
			}
		case !errors.Is(err, apperrors.ErrSymbolNotFound):
			return nil, err
		}
	}

	results := a.fetchAll(ctx, symbol)
	events, outcomes := a.merge(symbol, results, today)

	result := &RefreshResult{Symbol: symbol, Sources: outcomes}
	if len(events) == 0 {
		events = DefaultEvents(symbol, today)
		result.UsedDefaults = true
	}

	cal := &models.CompanyCalendar{
		Symbol:      symbol,
		CompanyName: a.CompanyName(symbol),
		Events:      events,
		LastUpdate:  today,
	}
	if err := a.store.UpsertCalendar(ctx, cal); err != nil {
		return nil, err
	}
	result.Calendar = cal

	logging.LogRefresh(a.logger, symbol, len(events), result.UsedDefaults, a.clock.Now().Sub(start))
	return result, nil
}

func (a *Aggregator) isFresh(cal *models.CompanyCalendar, today time.Time) bool {
	if cal.LastUpdate.IsZero() {
		return false
	}
	days := int(a.config.Freshness / (24 * time.Hour))
	return clock.DaysBetween(cal.LastUpdate, today) < days
}

// fetched holds one source's raw result.
type fetched struct {
	records []models.RawRecord
	err     error
}

// fetchAll queries every source concurrently. Results are indexed by source
// position so the merge order does not depend on completion order.
func (a *Aggregator) fetchAll(ctx context.Context, symbol string) []fetched {
	results := make([]fetched, len(a.sources))

	var wg conc.WaitGroup
	for i, src := range a.sources {
		wg.Go(func() {
			results[i] = a.fetchOne(ctx, src, symbol)
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		a.logger.Error().Str("panic", r.String()).Msg("Source fan-out panicked")
	}

	return results
}

func (a *Aggregator) fetchOne(ctx context.Context, src Source, symbol string) fetched {
	cb := a.breakers.Get(src.Name())
	start := a.clock.Now()

	records, err := resilience.ExecuteWithResult(cb, ctx, func(ctx context.Context) ([]models.RawRecord, error) {
		var records []models.RawRecord
		var fetchErr error
		var pc panics.Catcher
		pc.Try(func() {
			records, fetchErr = src.Fetch(ctx, symbol)
		})
		if r := pc.Recovered(); r != nil {
			return nil, r.AsError()
		}
		return records, fetchErr
	})

	logging.LogSourceCall(a.logger, src.Name(), symbol, len(records), a.clock.Now().Sub(start), err)
	if err != nil {
		return fetched{err: apperrors.NewSourceError(src.Name(), symbol, err)}
	}
	return fetched{records: records}
}

// merge normalizes records in source order and keeps the first event for
// every identity key.
func (a *Aggregator) merge(symbol string, results []fetched, today time.Time) ([]models.FinancialEvent, []SourceOutcome) {
	seen := make(map[string]bool)
	var events []models.FinancialEvent
	outcomes := make([]SourceOutcome, len(results))

	for i, res := range results {
		out := SourceOutcome{Source: a.sources[i].Name(), Records: len(res.records)}
		if res.err != nil {
			out.Error = res.err.Error()
		}

		for _, rec := range res.records {
			if rec.SourceName == "" {
				rec.SourceName = out.Source
			}
			e, err := Normalize(symbol, rec, today)
			if err != nil {
				out.Unparsed++
				a.logger.Debug().Err(err).Str("source", out.Source).Str("symbol", symbol).Msg("Dropping record")
				continue
			}
			key := e.Key()
			if seen[key] {
				out.Duplicates++
				continue
			}
			seen[key] = true
			events = append(events, e)
			out.Accepted++
		}
		outcomes[i] = out
	}

	return events, outcomes
}
