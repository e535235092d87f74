package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bist-takvim/internal/alerts"
	"bist-takvim/internal/notify"
)

func schedulerConfig(app *App) alerts.SchedulerConfig {
	cfg := alerts.DefaultSchedulerConfig()
	a := app.Config.Alerts
	if a.PollInterval > 0 {
		cfg.PollInterval = a.PollInterval
	}
	if a.RetryInterval > 0 {
		cfg.RetryInterval = a.RetryInterval
	}
	if a.NotifyTimeout > 0 {
		cfg.NotifyTimeout = a.NotifyTimeout
	}
	return cfg
}

func newServeCmd(app *App) *cobra.Command {
	var (
		noRefresh  bool
		refreshNow bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the alert scheduler and scheduled calendar refresh",
		Long: `Run in the foreground until interrupted:

  - the alert scheduler polls for due alerts and delivers them to every
    enabled notification channel
  - the watchlist is refreshed on calendar.refresh_cron

Press Ctrl+C to stop. In-flight notifications are allowed to finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			logger := app.Logger

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			notifier := notify.NewMultiNotifier(app.Config.Notifications, app.Clock, logger)
			channels := notifier.Channels()

			cfg := schedulerConfig(app)
			scheduler := alerts.NewScheduler(app.Store, notifier, app.Clock, cfg, logger)

			if refreshNow {
				output.Info("Refreshing %d watchlist symbols...", len(app.Refresher.Watchlist()))
				app.Refresher.RefreshAll(ctx, nil, false)
			}

			if !noRefresh {
				if err := app.Refresher.Start(ctx, app.Config.Calendar.RefreshCron); err != nil {
					return err
				}
				defer app.Refresher.Stop()
			}

			scheduler.Start(ctx)

			logger.Info().
				Strs("channels", channels).
				Dur("poll_interval", cfg.PollInterval).
				Bool("scheduled_refresh", !noRefresh).
				Msg("Serving")

			output.Success("✓ Scheduler running, polling every %s", FormatDuration(cfg.PollInterval))
			if !noRefresh {
				output.Dim("Watchlist refresh: %s", app.Config.Calendar.RefreshCron)
			}
			output.Dim("Channels: %v", channels)
			output.Println("Press Ctrl+C to stop")

			<-ctx.Done()

			logger.Info().Msg("Shutting down...")
			scheduler.Stop()

			stats := scheduler.Stats()
			logger.Info().
				Int64("ticks", stats.Ticks).
				Int64("triggered", stats.Triggered).
				Int64("notify_failures", stats.NotifyFailures).
				Msg("Scheduler stopped")

			output.Println()
			output.Info("Stopped after %d ticks, %d alerts triggered", stats.Ticks, stats.Triggered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "do not run the scheduled watchlist refresh")
	cmd.Flags().BoolVar(&refreshNow, "refresh-now", false, "refresh the watchlist once before starting")
	return cmd
}
