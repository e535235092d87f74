package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bist-takvim/internal/calendar"
	"bist-takvim/internal/clock"
	"bist-takvim/internal/models"
	"bist-takvim/internal/store"
)

func addCalendarCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal", "takvim"},
		Short:   "Company event calendars",
		Long: `Query and maintain per-company financial event calendars.

Events are collected from the configured sources. When no source yields
anything for a symbol, estimated quarter-end balance sheets, a general
assembly and a dividend are synthesized so the calendar is never empty.`,
	}

	cmd.AddCommand(newCalendarShowCmd(app))
	cmd.AddCommand(newCalendarRefreshCmd(app))
	cmd.AddCommand(newCalendarSearchCmd(app))
	cmd.AddCommand(newCalendarUpcomingCmd(app))
	cmd.AddCommand(newCalendarAddCmd(app))
	cmd.AddCommand(newCalendarImportCmd(app))
	cmd.AddCommand(newCalendarExportCmd(app))
	cmd.AddCommand(newCalendarICSCmd(app))
	cmd.AddCommand(newCalendarSummaryCmd(app))
	cmd.AddCommand(newCalendarTypesCmd(app))
	cmd.AddCommand(newCalendarCompaniesCmd(app))
	cmd.AddCommand(newCalendarSourcesCmd(app))

	rootCmd.AddCommand(cmd)
}

func newCalendarShowCmd(app *App) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "show <symbol>",
		Short: "Show the event calendar of a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			cal, err := app.Calendar.CompanyCalendar(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events := cal.Events
			if pendingOnly {
				events = cal.PendingEvents()
			}

			if output.IsJSON() {
				view := *cal
				view.Events = events
				return output.JSON(view)
			}

			output.Bold("%s - %s", cal.Symbol, cal.CompanyName)
			output.Dim("Last update: %s", FormatDate(cal.LastUpdate))
			output.Println()

			if len(events) == 0 {
				output.Info("No events")
				return nil
			}

			today := clock.Today(app.Clock)
			table := NewTable(output, "Date", "When", "Type", "Description", "Source", "Status")
			for _, e := range events {
				table.AddRow(
					FormatDate(e.Date),
					FormatRelative(e.Date, today),
					string(e.Type),
					TruncateString(e.Description, 50),
					TruncateString(e.Source, 20),
					output.EventStatus(e.Status),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "show pending events only")
	return cmd
}

func newCalendarRefreshCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh [symbols...]",
		Short: "Re-collect events from all sources",
		Long: `Re-collect events for the given symbols, or for the whole watchlist
when no symbol is given. A calendar refreshed within the freshness window is
kept unless --force is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if len(args) == 1 {
				res, err := app.Aggregator.Refresh(cmd.Context(), args[0], force)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(res)
				}
				printRefreshResult(output, res)
				return nil
			}

			results := app.Refresher.RefreshAll(cmd.Context(), args, force)
			if output.IsJSON() {
				return output.JSON(results)
			}

			table := NewTable(output, "Symbol", "Events", "Result")
			failed := 0
			for _, r := range results {
				var state string
				switch {
				case !r.OK:
					failed++
					state = output.Red(TruncateString(r.Error, 50))
				case r.Skipped:
					state = output.DimText("fresh, kept")
				case r.UsedDefaults:
					state = output.Yellow("estimated")
				default:
					state = output.Green("refreshed")
				}
				table.AddRow(r.Symbol, fmt.Sprintf("%d", r.Events), state)
			}
			table.Render()

			if failed > 0 {
				output.Warning("%d of %d symbols failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "refetch even when the calendar is fresh")
	return cmd
}

func printRefreshResult(output *Output, res *calendar.RefreshResult) {
	switch {
	case res.Skipped:
		output.Info("%s is fresh (updated %s), use --force to refetch", res.Symbol, FormatDate(res.Calendar.LastUpdate))
	case res.UsedDefaults:
		output.Warning("%s: no source returned events, %d estimated events stored", res.Symbol, len(res.Calendar.Events))
	default:
		output.Success("✓ %s: %d events stored", res.Symbol, len(res.Calendar.Events))
	}

	if len(res.Sources) == 0 {
		return
	}
	output.Println()
	table := NewTable(output, "Source", "Records", "Accepted", "Duplicates", "Unparsed", "Error")
	for _, s := range res.Sources {
		table.AddRow(
			s.Source,
			fmt.Sprintf("%d", s.Records),
			fmt.Sprintf("%d", s.Accepted),
			fmt.Sprintf("%d", s.Duplicates),
			fmt.Sprintf("%d", s.Unparsed),
			output.Red(TruncateString(s.Error, 40)),
		)
	}
	table.Render()
}

func newCalendarSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search events by type, description or company",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			matches, err := app.Calendar.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printMatches(output, app, matches)
		},
	}
}

func newCalendarUpcomingCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List events in the coming days",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			matches, err := app.Calendar.Upcoming(cmd.Context(), days)
			if err != nil {
				return err
			}
			return printMatches(output, app, matches)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, "window in days")
	return cmd
}

func printMatches(output *Output, app *App, matches []models.EventMatch) error {
	if output.IsJSON() {
		return output.JSON(matches)
	}
	if len(matches) == 0 {
		output.Info("No events found")
		return nil
	}

	today := clock.Today(app.Clock)
	table := NewTable(output, "Symbol", "Company", "Date", "When", "Type", "Description")
	for _, m := range matches {
		table.AddRow(
			m.Symbol,
			TruncateString(m.CompanyName, 24),
			FormatDate(m.Event.Date),
			FormatRelative(m.Event.Date, today),
			string(m.Event.Type),
			TruncateString(m.Event.Description, 40),
		)
	}
	table.Render()
	output.Dim("%d events", len(matches))
	return nil
}

func newCalendarAddCmd(app *App) *cobra.Command {
	var (
		eventType   string
		date        string
		description string
		source      string
	)

	cmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Add an event manually",
		Example: `  takvim calendar add THYAO --type dividend --date 2025-05-20 --desc "Nakit temettü"
  takvim calendar add ASELS --type shareholder_meeting --date "15 Nisan 2025" --desc "Olağan Genel Kurul"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			event, err := app.Calendar.AddEvent(cmd.Context(), calendar.AddEventRequest{
				Symbol:      args[0],
				Type:        eventType,
				Date:        date,
				Description: description,
				Source:      source,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(event)
			}
			output.Success("✓ Added %s %s on %s", event.Symbol, event.Type, FormatLongDate(event.Date))
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventType, "type", "t", "", "event type (see 'calendar types --all')")
	cmd.Flags().StringVar(&date, "date", "", "event date")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.Flags().StringVar(&source, "source", "", "source label (default: Manuel)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("desc")

	return cmd
}

func newCalendarImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append events from a CSV file",
		Long: `Append events from a CSV file with the columns
symbol,company_name,type,date,description,source,status.

Rows are appended without deduplication. Unknown types are stored as "other";
rows without a symbol or with an unreadable date are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			res, err := store.ImportCSV(cmd.Context(), app.Store, f, clock.Today(app.Clock))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			output.Success("✓ Imported %d events", res.Imported)
			if res.Skipped > 0 {
				output.Warning("Skipped %d rows", res.Skipped)
				for _, e := range res.Errors {
					output.Dim("  %s", e)
				}
			}
			return nil
		},
	}
}

func newCalendarExportCmd(app *App) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all events as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			w, closeFn, err := openOutput(cmd, file)
			if err != nil {
				return err
			}
			n, err := store.ExportCSV(cmd.Context(), app.Store, w)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			if file != "" {
				output.Success("✓ Exported %d events to %s", n, file)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newCalendarICSCmd(app *App) *cobra.Command {
	var (
		file     string
		leadDays int
	)

	cmd := &cobra.Command{
		Use:   "ics [symbols...]",
		Short: "Export calendars as an iCalendar file",
		Long: `Export stored calendars as an iCalendar (.ics) document that can be
subscribed to from any calendar application. Without symbols every stored
calendar is exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var calendars []models.CompanyCalendar
			if len(args) == 0 {
				all, err := app.Store.ListCalendars(cmd.Context())
				if err != nil {
					return err
				}
				calendars = all
			}
			for _, symbol := range args {
				cal, err := app.Calendar.CompanyCalendar(cmd.Context(), symbol)
				if err != nil {
					return err
				}
				calendars = append(calendars, *cal)
			}

			w, closeFn, err := openOutput(cmd, file)
			if err != nil {
				return err
			}
			err = calendar.ExportICS(w, calendars, app.Clock.Now(), leadDays)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			if file != "" {
				output.Success("✓ Wrote %d calendars to %s", len(calendars), file)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().IntVar(&leadDays, "lead-days", 1, "add a reminder this many days before each event (0 disables)")
	return cmd
}

// openOutput returns the file to write to, or stdout when path is empty.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}

func newCalendarSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize the stored calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			summary, err := app.Calendar.Summary(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Calendar Summary")
			output.Printf("  Companies:        %d\n", summary.TotalCompanies)
			output.Printf("  Events:           %d\n", summary.TotalEvents)
			output.Printf("  Next 30 days:     %d\n", summary.UpcomingEvents)
			if !summary.LastUpdated.IsZero() {
				output.Printf("  Last updated:     %s\n", FormatDate(summary.LastUpdated))
			}
			if len(summary.EventTypes) > 0 {
				output.Println()
				table := NewTable(output, "Type", "Events")
				for _, t := range models.EventTypes {
					if n := summary.EventTypes[t]; n > 0 {
						table.AddRow(string(t), fmt.Sprintf("%d", n))
					}
				}
				table.Render()
			}
			return nil
		},
	}
}

func newCalendarTypesCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List event types present in the calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			types := models.EventTypes
			if !all {
				present, err := app.Calendar.EventTypes(cmd.Context())
				if err != nil {
					return err
				}
				types = present
			}

			if output.IsJSON() {
				return output.JSON(types)
			}
			for _, t := range types {
				output.Println(string(t))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every known type")
	return cmd
}

func newCalendarCompaniesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "companies",
		Short: "List companies with a stored calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			companies, err := app.Calendar.Companies(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(companies)
			}
			if len(companies) == 0 {
				output.Info("No calendars stored yet, run 'takvim calendar refresh'")
				return nil
			}

			table := NewTable(output, "Symbol", "Company", "Events", "Updated")
			for _, c := range companies {
				table.AddRow(c.Symbol, TruncateString(c.CompanyName, 32), fmt.Sprintf("%d", c.EventCount), FormatDate(c.LastUpdate))
			}
			table.Render()
			return nil
		},
	}
}

func newCalendarSourcesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show configured sources",
		Long: `Show the configured event sources. Circuit statistics only cover calls
made by the current process, so they are mostly useful from a long-running
'serve'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"sources":  app.Config.Sources,
					"breakers": app.Aggregator.Breakers(),
				})
			}

			if len(app.Config.Sources) == 0 {
				output.Info("No sources configured, calendars use estimated events")
				return nil
			}

			table := NewTable(output, "Name", "Kind", "State", "Min Interval", "URL")
			for _, s := range app.Config.Sources {
				state := output.Green("enabled")
				if !s.Enabled {
					state = output.DimText("disabled")
				}
				table.AddRow(s.Name, s.Kind, state, FormatDuration(s.MinInterval), TruncateString(s.URL, 50))
			}
			table.Render()

			for _, st := range app.Aggregator.Breakers() {
				output.Dim("%s: %s, %d calls, %d failures", st.Name, st.State, st.TotalCalls, st.TotalFailures)
			}
			return nil
		},
	}
}
