package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bist-takvim/internal/alerts"
	"bist-takvim/internal/calendar"
	"bist-takvim/internal/clock"
	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/models"
	"bist-takvim/internal/notify"
)

func addAlertCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "alerts",
		Aliases: []string{"alert", "alarm"},
		Short:   "Event reminders",
		Long: `Create and manage reminders for calendar events.

An alert fires on its alert date, lead days before the event but never before
the day it was created. Use 'takvim serve' to deliver alerts as they come due.`,
	}

	cmd.PersistentFlags().StringP("user", "u", "", "user id (default: alerts.default_user)")

	cmd.AddCommand(newAlertCreateCmd(app))
	cmd.AddCommand(newAlertFromCalendarCmd(app))
	cmd.AddCommand(newAlertListCmd(app))
	cmd.AddCommand(newAlertCancelCmd(app))
	cmd.AddCommand(newAlertDeleteCmd(app))
	cmd.AddCommand(newAlertSummaryCmd(app))
	cmd.AddCommand(newAlertCheckCmd(app))

	rootCmd.AddCommand(cmd)
}

// userFlag returns the --user value or the configured default user.
func userFlag(cmd *cobra.Command, app *App) string {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = app.Config.Alerts.DefaultUser
	}
	return user
}

func newAlertCreateCmd(app *App) *cobra.Command {
	var (
		eventType   string
		date        string
		description string
		leadDays    int
	)

	cmd := &cobra.Command{
		Use:   "create <symbol>",
		Short: "Create an alert for a single event",
		Example: `  takvim alerts create THYAO --type dividend --date 2025-05-20
  takvim alerts create GARAN --type balance_sheet --date 2025-03-31 --lead-days 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			t, ok := models.ParseEventType(eventType)
			if !ok {
				return apperrors.NewValidationError("type", eventType, "unknown event type")
			}
			eventDate, err := calendar.ParseDate(date)
			if err != nil {
				return apperrors.NewValidationError("date", date, "unrecognized date")
			}

			req := alerts.CreateRequest{
				UserID:      userFlag(cmd, app),
				Symbol:      args[0],
				EventType:   t,
				EventDate:   eventDate,
				Description: description,
			}
			if cmd.Flags().Changed("lead-days") {
				req.LeadDays = &leadDays
			}

			alert, err := app.Alerts.CreateAlert(cmd.Context(), req)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(alert)
			}
			output.Success("✓ Alert created: %s", alert.ID)
			output.Printf("  %s %s on %s, fires %s\n",
				alert.Symbol, alert.EventType, FormatDate(alert.EventDate), FormatDate(alert.AlertDate))
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventType, "type", "t", "", "event type")
	cmd.Flags().StringVar(&date, "date", "", "event date")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.Flags().IntVar(&leadDays, "lead-days", alerts.DefaultLeadDays, "days before the event to fire")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func newAlertFromCalendarCmd(app *App) *cobra.Command {
	var leadDays int

	cmd := &cobra.Command{
		Use:   "from-calendar <symbol>",
		Short: "Create alerts for every pending event of a company",
		Long: `Create one alert per pending calendar event of a company. Events that
already have an active alert for the user are skipped, so running the command
again is harmless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if !cmd.Flags().Changed("lead-days") {
				leadDays = app.Config.Alerts.LeadDays
			}

			cal, err := app.Calendar.CompanyCalendar(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res, err := app.Alerts.CreateFromEvents(cmd.Context(), userFlag(cmd, app), cal.Symbol, cal.Events, leadDays)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			output.Success("✓ %d alerts created, %d skipped", res.CreatedCount, res.SkippedCount)
			for _, a := range res.Created {
				output.Printf("  %s  %-20s %s → %s\n",
					a.ID[:8], a.EventType, FormatDate(a.AlertDate), FormatDate(a.EventDate))
			}
			for _, e := range res.Errors {
				output.Error("  %s", e)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&leadDays, "lead-days", 0, "days before each event to fire (default: alerts.lead_days)")
	return cmd
}

func newAlertListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var filter models.AlertStatus
			if status != "" && status != "all" {
				s, ok := models.ParseAlertStatus(status)
				if !ok {
					return apperrors.NewValidationError("status", status, "must be active, triggered, cancelled or all")
				}
				filter = s
			}

			list, err := app.Store.ListAlerts(cmd.Context(), userFlag(cmd, app), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(list)
			}
			if len(list) == 0 {
				output.Info("No alerts")
				return nil
			}

			today := clock.Today(app.Clock)
			table := NewTable(output, "ID", "Symbol", "Type", "Event", "Fires", "Status", "Description")
			for _, a := range list {
				table.AddRow(
					a.ID[:8],
					a.Symbol,
					string(a.EventType),
					FormatDate(a.EventDate),
					FormatRelative(a.AlertDate, today),
					output.AlertStatus(a.Status),
					TruncateString(a.Description, 36),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "active", "filter by status (active, triggered, cancelled, all)")
	return cmd
}

// resolveAlertID expands an id prefix shown by 'alerts list'.
func resolveAlertID(cmd *cobra.Command, app *App, prefix string) (string, error) {
	list, err := app.Store.ListAlerts(cmd.Context(), userFlag(cmd, app), "")
	if err != nil {
		return "", err
	}

	var match string
	for _, a := range list {
		if a.ID == prefix {
			return a.ID, nil
		}
		if len(prefix) >= 4 && strings.HasPrefix(a.ID, prefix) {
			if match != "" {
				return "", apperrors.NewValidationError("id", prefix, "ambiguous prefix")
			}
			match = a.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", apperrors.ErrAlertNotFound, prefix)
	}
	return match, nil
}

func newAlertCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an active alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			id, err := resolveAlertID(cmd, app, args[0])
			if err != nil {
				return err
			}
			cancelled, err := app.Store.CancelAlert(cmd.Context(), id, userFlag(cmd, app))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": id, "cancelled": cancelled})
			}
			if !cancelled {
				output.Warning("Alert %s is not active, nothing to cancel", id)
				return nil
			}
			output.Success("✓ Alert %s cancelled", id)
			return nil
		},
	}
}

func newAlertDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			id, err := resolveAlertID(cmd, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Store.DeleteAlert(cmd.Context(), id, userFlag(cmd, app)); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": id, "deleted": true})
			}
			output.Success("✓ Alert %s deleted", id)
			return nil
		},
	}
}

func newAlertSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize alerts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			summary, err := app.Store.AlertSummary(cmd.Context(), userFlag(cmd, app))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Alerts for %s", summary.UserID)
			output.Printf("  Active:     %s\n", output.Green(fmt.Sprintf("%d", summary.ActiveCount)))
			output.Printf("  Triggered:  %s\n", output.Yellow(fmt.Sprintf("%d", summary.TriggeredCount)))
			output.Printf("  Cancelled:  %s\n", output.DimText(fmt.Sprintf("%d", summary.CancelledCount)))
			output.Printf("  Total:      %d\n", summary.TotalCount)
			if next := summary.NextAlert; next != nil {
				output.Println()
				output.Info("Next: %s %s on %s (fires %s)",
					next.Symbol, next.EventType, FormatDate(next.EventDate),
					FormatRelative(next.AlertDate, clock.Today(app.Clock)))
			}
			return nil
		},
	}
}

func newAlertCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fire due alerts once and exit",
		Long: `Run a single scheduler pass: every active alert whose alert date has
been reached is marked triggered and sent to the configured notification
channels. Useful from an external cron when 'serve' is not running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			notifier := notify.NewMultiNotifier(app.Config.Notifications, app.Clock, app.Logger)
			scheduler := alerts.NewScheduler(app.Store, notifier, app.Clock, schedulerConfig(app), app.Logger)

			res, err := scheduler.Tick(cmd.Context())
			scheduler.Wait()
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			if res.Due == 0 {
				output.Info("No alerts due")
				return nil
			}
			output.Success("✓ %d of %d due alerts triggered", res.Triggered, res.Due)
			if stats := scheduler.Stats(); stats.NotifyFailures > 0 {
				output.Warning("%d notifications failed, see the log", stats.NotifyFailures)
			}
			return nil
		},
	}
}
