// Package cli provides the command-line interface for the calendar and
// alert scheduler.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newExamplesCmd())
	rootCmd.AddCommand(newQuickstartCmd())
}

type commandHelp struct {
	cmd  string
	desc string
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "commands",
		Short:       "List all commands by category",
		Long:        "Display all available commands organized by category.",
		Annotations: map[string]string{skipInit: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("BIST Takvim Commands")
			output.Println()

			categories := []struct {
				name     string
				commands []commandHelp
			}{
				{
					name: "Calendar",
					commands: []commandHelp{
						{"calendar show <symbol>", "Company event calendar"},
						{"calendar refresh [symbols...]", "Re-collect events (watchlist by default)"},
						{"calendar upcoming -d 14", "Events in the coming days"},
						{"calendar search <query>", "Search by type, description or company"},
						{"calendar add <symbol>", "Add an event manually"},
						{"calendar summary", "Totals per type"},
						{"calendar types", "Event types in use"},
						{"calendar companies", "Stored calendars"},
						{"calendar sources", "Configured sources"},
					},
				},
				{
					name: "Import / Export",
					commands: []commandHelp{
						{"calendar import <file.csv>", "Append events from CSV"},
						{"calendar export -o events.csv", "Export events as CSV"},
						{"calendar ics -o bist.ics", "Export as iCalendar"},
					},
				},
				{
					name: "Alerts",
					commands: []commandHelp{
						{"alerts create <symbol>", "Alert for a single event"},
						{"alerts from-calendar <symbol>", "Alerts for all pending events"},
						{"alerts list", "List alerts"},
						{"alerts cancel <id>", "Cancel an active alert"},
						{"alerts delete <id>", "Delete an alert"},
						{"alerts summary", "Counts per status"},
						{"alerts check", "Fire due alerts once"},
					},
				},
				{
					name: "Service",
					commands: []commandHelp{
						{"serve", "Scheduler and scheduled refresh"},
						{"config show/path/validate", "Configuration"},
					},
				},
				{
					name: "Help",
					commands: []commandHelp{
						{"help <command>", "Detailed help"},
						{"commands", "List all commands"},
						{"examples", "Common workflows"},
						{"quickstart", "New user guide"},
						{"version", "Version information"},
					},
				},
			}

			for _, cat := range categories {
				output.Bold("%s", cat.name)
				for _, c := range cat.commands {
					output.Printf("  %s %s\n", output.Cyan(PadRight(c.cmd, 34)), c.desc)
				}
				output.Println()
			}

			output.Dim("Use 'takvim help <command>' for detailed help on any command")

			return nil
		},
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "examples",
		Short:       "Show common workflow examples",
		Long:        "Display examples of common calendar and alert workflows.",
		Annotations: map[string]string{skipInit: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Morning Check",
					commands: []string{
						"takvim calendar refresh            # Refresh the watchlist",
						"takvim calendar upcoming -d 7      # What happens this week",
						"takvim alerts summary              # Next alert",
					},
				},
				{
					title: "Follow a Company",
					commands: []string{
						"takvim calendar show THYAO         # Fetches on first use",
						"takvim alerts from-calendar THYAO --lead-days 3",
						"takvim alerts list                 # Verify alerts",
					},
				},
				{
					title: "Dividend Season",
					commands: []string{
						"takvim calendar search temettü     # All dividend events",
						"takvim calendar search dividend    # Same, by type",
						"takvim alerts create GARAN --type dividend --date 2025-05-20",
					},
				},
				{
					title: "Keep Your Calendar App in Sync",
					commands: []string{
						"takvim calendar ics -o ~/bist.ics  # All stored calendars",
						"takvim calendar ics THYAO ASELS --lead-days 2 -o portfolio.ics",
					},
				},
				{
					title: "Maintain Events by Hand",
					commands: []string{
						"takvim calendar add KCHOL --type shareholder_meeting --date 2025-04-10 --desc 'Genel Kurul'",
						"takvim calendar export -o events.csv",
						"takvim calendar import events.csv",
					},
				},
				{
					title: "Run the Scheduler",
					commands: []string{
						"takvim serve                       # Until Ctrl+C",
						"takvim serve --refresh-now         # Refresh once on start",
						"takvim alerts check                # From an external cron",
					},
				},
			}

			for _, ex := range examples {
				output.Bold("%s", ex.title)
				for _, c := range ex.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}

func newQuickstartCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "quickstart",
		Short:       "New user guide",
		Long:        "Step-by-step guide for new users.",
		Annotations: map[string]string{skipInit: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("BIST Takvim - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{
					title: "Review the Configuration",
					desc:  "A config.toml template is written on first run. Set your watchlist and sources.",
					cmd:   "takvim config path  # Shows config directory",
				},
				{
					title: "Build the Calendar",
					desc:  "Collect events for every watchlist symbol.",
					cmd:   "takvim calendar refresh",
				},
				{
					title: "Look Ahead",
					desc:  "See the events of the coming month.",
					cmd:   "takvim calendar upcoming",
				},
				{
					title: "Create Alerts",
					desc:  "Get reminded before each pending event of a company.",
					cmd:   "takvim alerts from-calendar THYAO",
				},
				{
					title: "Enable Notifications",
					desc:  "Turn on terminal, webhook, Telegram or email in [notifications].",
					cmd:   "takvim config validate",
				},
				{
					title: "Start the Scheduler",
					desc:  "Deliver alerts as they come due and refresh the watchlist daily.",
					cmd:   "takvim serve",
				},
			}

			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Cyan("→"), i+1, output.BoldText(s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Configuration Files")
			output.Println()
			output.Printf("  %s - Watchlist, sources, alert and notification settings\n", output.Cyan("config.toml"))
			output.Printf("  %s - Telegram bot token, SMTP password\n", output.Cyan("credentials.toml"))
			output.Printf("  %s - Optional environment overrides\n", output.Cyan(".env"))
			output.Println()

			output.Bold("Important Notes")
			output.Println()
			output.Printf("  %s Without sources, calendars hold estimated dates only\n", output.Yellow("⚠"))
			output.Printf("  %s Alerts fire once; a notification that fails is not sent again\n", output.Yellow("⚠"))
			output.Printf("  %s Keep credentials.toml private\n", output.Yellow("⚠"))

			return nil
		},
	}
}
