package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bist-takvim/internal/alerts"
	"bist-takvim/internal/calendar"
	"bist-takvim/internal/clock"
	"bist-takvim/internal/config"
	"bist-takvim/internal/logging"
	"bist-takvim/internal/sources"
	"bist-takvim/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-03-01"
)

// skipInit marks commands that run without config or database.
const skipInit = "skip-init"

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Clock      clock.Clock
	Store      *store.SQLiteStore
	Aggregator *calendar.Aggregator
	Calendar   *calendar.Service
	Refresher  *calendar.Refresher
	Alerts     *alerts.Factory
}

// NewRootCmd creates the root command for the CLI. Configuration and the
// database are opened before any command that needs them runs.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{
		Logger: logger,
		Clock:  clock.System{},
	})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "takvim",
		Short: "BIST financial event calendar and alert scheduler",
		Long: `takvim collects balance sheet, general assembly, dividend and other
company events for Borsa Istanbul symbols, keeps them in a local calendar and
reminds you before they happen.

Use 'takvim examples' to see common workflows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipInit] == "true" {
				return nil
			}
			configDir, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")
			return app.open(configDir, debug)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/bist-takvim)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addCalendarCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	rootCmd.AddCommand(newServeCmd(app))
	addHelpCommands(rootCmd)

	return rootCmd
}

// open loads configuration and wires the store and services.
func (app *App) open(configDir string, debug bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if configDir == "" {
		configDir = config.DefaultConfigDir()
	}
	app.Config = cfg
	app.ConfigDir = configDir

	app.Logger = logging.NewLoggerWithConfig(cfg.Logging)
	if debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Storage.Path, store.WithClock(app.Clock), store.WithLogger(app.Logger))
	if err != nil {
		return err
	}
	app.Store = st
	app.Logger.Debug().Str("path", cfg.Storage.Path).Msg("SQLite store initialized")

	srcs, err := sources.FromConfig(cfg.EnabledSources(), nil)
	if err != nil {
		return err
	}

	app.Aggregator = calendar.NewAggregator(st, srcs, app.Clock, calendar.AggregatorConfig{
		Freshness:     cfg.Calendar.Freshness,
		SourceTimeout: cfg.Calendar.SourceTimeout,
		Companies:     cfg.Calendar.CompanyNames(),
	}, app.Logger)
	app.Calendar = calendar.NewService(st, app.Aggregator, app.Clock, app.Logger)
	app.Refresher = calendar.NewRefresher(app.Aggregator, watchlist(cfg), cfg.Calendar.RefreshInterval, app.Logger)
	app.Alerts = alerts.NewFactory(st, app.Clock, app.Logger)

	return nil
}

// Close releases the store.
func (app *App) Close() error {
	if app.Store == nil {
		return nil
	}
	err := app.Store.Close()
	app.Store = nil
	return err
}

func watchlist(cfg *config.Config) []string {
	if len(cfg.Calendar.Watchlist) == 0 {
		return config.DefaultWatchlist
	}
	symbols := make([]string, 0, len(cfg.Calendar.Watchlist))
	for _, s := range cfg.Calendar.Watchlist {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(s)))
	}
	return symbols
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipInit: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("BIST Takvim v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Annotations: map[string]string{skipInit: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": dir})
			}
			output.Println(dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, app *App) {
	cfg := app.Config

	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.Storage.Path)
	output.Println()

	output.Bold("Calendar")
	output.Printf("  Watchlist:       %s\n", strings.Join(watchlist(cfg), ", "))
	output.Printf("  Refresh cron:    %s\n", cfg.Calendar.RefreshCron)
	output.Printf("  Symbol pause:    %s\n", cfg.Calendar.RefreshInterval)
	output.Printf("  Source timeout:  %s\n", cfg.Calendar.SourceTimeout)
	output.Printf("  Freshness:       %s\n", cfg.Calendar.Freshness)
	output.Println()

	output.Bold("Sources")
	if len(cfg.Sources) == 0 {
		output.Dim("  none configured, defaults are synthesized")
	}
	for _, s := range cfg.Sources {
		state := output.Green("enabled")
		if !s.Enabled {
			state = output.DimText("disabled")
		}
		output.Printf("  %-16s %-5s %s  %s\n", s.Name, s.Kind, state, s.URL)
	}
	output.Println()

	output.Bold("Alerts")
	output.Printf("  Default user:    %s\n", cfg.Alerts.DefaultUser)
	output.Printf("  Lead days:       %d\n", cfg.Alerts.LeadDays)
	output.Printf("  Poll interval:   %s\n", cfg.Alerts.PollInterval)
	output.Printf("  Retry interval:  %s\n", cfg.Alerts.RetryInterval)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Log:             %v\n", cfg.Notifications.Log)
	output.Printf("  Terminal:        %v\n", cfg.Notifications.Terminal.Enabled)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Email:           %v\n", cfg.Notifications.Email.Enabled)
}
