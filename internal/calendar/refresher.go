package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bist-takvim/internal/logging"
)

// SymbolRefresh is the outcome for one symbol of a bulk refresh.
type SymbolRefresh struct {
	Symbol       string `json:"symbol"`
	OK           bool   `json:"ok"`
	Events       int    `json:"events"`
	Skipped      bool   `json:"skipped"`
	UsedDefaults bool   `json:"used_defaults"`
	Error        string `json:"error,omitempty"`
}

// Refresher refreshes a watchlist, either on demand or on a cron schedule.
type Refresher struct {
	aggregator *Aggregator
	watchlist  []string
	interval   time.Duration
	cron       *cron.Cron
	logger     zerolog.Logger

	running sync.Mutex
}

// NewRefresher creates a refresher that pauses interval between symbols.
func NewRefresher(agg *Aggregator, watchlist []string, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		aggregator: agg,
		watchlist:  watchlist,
		interval:   interval,
		cron:       cron.New(),
		logger:     logging.WithComponent(logger, "refresher"),
	}
}

// Watchlist returns the configured symbols.
func (r *Refresher) Watchlist() []string {
	return r.watchlist
}

// RefreshAll refreshes symbols one after another, or the watchlist when
// symbols is empty. A failing symbol does not stop the others.
func (r *Refresher) RefreshAll(ctx context.Context, symbols []string, force bool) []SymbolRefresh {
	if len(symbols) == 0 {
		symbols = r.watchlist
	}

	limit := rate.Inf
	if r.interval > 0 {
		limit = rate.Every(r.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]SymbolRefresh, 0, len(symbols))
	for _, symbol := range symbols {
		if err := limiter.Wait(ctx); err != nil {
			results = append(results, SymbolRefresh{Symbol: symbol, Error: err.Error()})
			continue
		}

		res, err := r.aggregator.Refresh(ctx, symbol, force)
		if err != nil {
			r.logger.Warn().Err(err).Str("symbol", symbol).Msg("Refresh failed")
			results = append(results, SymbolRefresh{Symbol: symbol, Error: err.Error()})
			continue
		}

		results = append(results, SymbolRefresh{
			Symbol:       res.Symbol,
			OK:           true,
			Events:       len(res.Calendar.Events),
			Skipped:      res.Skipped,
			UsedDefaults: res.UsedDefaults,
		})
	}

	return results
}

// Start schedules a watchlist refresh on the cron spec.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		// Skip a run while the previous one is still pacing through symbols
		if !r.running.TryLock() {
			r.logger.Warn().Msg("Previous watchlist refresh still running, skipping")
			return
		}
		defer r.running.Unlock()

		start := time.Now()
		results := r.RefreshAll(ctx, nil, false)

		failed := 0
		for _, res := range results {
			if !res.OK {
				failed++
			}
		}
		r.logger.Info().
			Int("symbols", len(results)).
			Int("failed", failed).
			Dur("duration", time.Since(start)).
			Msg("Scheduled watchlist refresh completed")
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info().Str("schedule", spec).Msg("Watchlist refresh scheduled")
	return nil
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info().Msg("Watchlist refresh stopped")
}
