package alerts

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/logging"
	"bist-takvim/internal/models"
	"bist-takvim/internal/notify"
	"bist-takvim/internal/store"
)

// SchedulerConfig holds scheduler timing.
type SchedulerConfig struct {
	PollInterval  time.Duration
	RetryInterval time.Duration // used after a tick that could not read the store
	NotifyTimeout time.Duration
}

// DefaultSchedulerConfig returns the default timing.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval:  5 * time.Minute,
		RetryInterval: time.Minute,
		NotifyTimeout: 10 * time.Second,
	}
}

// TickResult reports one scheduler pass.
type TickResult struct {
	Due       int `json:"due"`
	Triggered int `json:"triggered"`
	Lost      int `json:"lost"` // cancelled or triggered elsewhere in between
	Errors    int `json:"errors"`
}

// SchedulerStats holds counters since the scheduler was created.
type SchedulerStats struct {
	Ticks          int64 `json:"ticks"`
	Triggered      int64 `json:"triggered"`
	NotifyFailures int64 `json:"notify_failures"`
}

// Scheduler polls for due alerts, triggers each one at most once and hands
// it to the notifier. Notification runs in the background and its failure
// never reverts the trigger.
type Scheduler struct {
	store    store.AlertStore
	notifier notify.Notifier
	clock    clock.Clock
	config   SchedulerConfig
	logger   zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	notifyW conc.WaitGroup

	ticks          atomic.Int64
	triggered      atomic.Int64
	notifyFailures atomic.Int64
}

// NewScheduler creates a scheduler. A nil notifier discards notifications.
func NewScheduler(as store.AlertStore, notifier notify.Notifier, clk clock.Clock, config SchedulerConfig, logger zerolog.Logger) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = defaults.NotifyTimeout
	}
	if notifier == nil {
		notifier = notify.NoOp{}
	}

	return &Scheduler{
		store:    as,
		notifier: notifier,
		clock:    clk,
		config:   config,
		logger:   logging.WithComponent(logger, "scheduler"),
	}
}

// Tick triggers every alert that is due now. The error is non-nil only when
// the due alerts could not be read; per-alert failures are counted.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	s.ticks.Add(1)
	now := s.clock.Now()

	due, err := s.store.PendingDue(ctx, now)
	if err != nil {
		return TickResult{}, err
	}

	result := TickResult{Due: len(due)}
	for i := range due {
		alert := due[i]

		ok, err := s.store.MarkTriggered(ctx, alert.ID, now)
		if err != nil {
			result.Errors++
			l := logging.WithAlertID(s.logger, alert.ID)
			l.Error().Err(err).Msg("Failed to trigger alert")
			continue
		}
		if !ok {
			result.Lost++
			continue
		}

		result.Triggered++
		s.triggered.Add(1)
		alert.Status = models.AlertTriggered
		alert.TriggeredAt = &now
		logging.LogAlertTriggered(s.logger, alert.ID, alert.UserID, alert.Symbol, string(alert.EventType), alert.EventDate)

		s.dispatch(alert)
	}

	return result, nil
}

// dispatch notifies in the background, bounded by NotifyTimeout.
func (s *Scheduler) dispatch(alert models.Alert) {
	s.notifyW.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.NotifyTimeout)
		defer cancel()

		var err error
		var pc panics.Catcher
		pc.Try(func() { err = s.notifier.Notify(ctx, &alert) })
		if r := pc.Recovered(); r != nil {
			err = r.AsError()
		}

		if err != nil {
			s.notifyFailures.Add(1)
			l := logging.WithAlertID(s.logger, alert.ID)
			l.Warn().Err(err).Msg("Notification failed")
		}
	})
}

// Run ticks immediately and then every PollInterval until ctx is done. A
// tick that fails to read the store is retried after RetryInterval.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("poll_interval", s.config.PollInterval).
		Dur("retry_interval", s.config.RetryInterval).
		Msg("Alert scheduler started")

	for {
		wait := s.config.PollInterval
		res, err := s.Tick(ctx)
		switch {
		case ctx.Err() != nil:
		case err != nil:
			wait = s.config.RetryInterval
			s.logger.Error().Err(err).Dur("retry_in", wait).Msg("Scheduler tick failed")
		case res.Due > 0:
			s.logger.Info().
				Int("due", res.Due).
				Int("triggered", res.Triggered).
				Int("lost", res.Lost).
				Int("errors", res.Errors).
				Msg("Scheduler tick")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Alert scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

// Start runs the scheduler in a goroutine. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()
}

// Stop cancels the loop and waits for it and for in-flight notifications.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.Wait()
}

// Wait blocks until in-flight notifications have finished.
func (s *Scheduler) Wait() {
	s.notifyW.Wait()
}

// Stats returns the scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Ticks:          s.ticks.Load(),
		Triggered:      s.triggered.Load(),
		NotifyFailures: s.notifyFailures.Load(),
	}
}
