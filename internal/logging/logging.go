// Package logging sets up zerolog with an optional rotating log file and
// holds the structured log helpers shared by the calendar and alert code.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size" validate:"min=0"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAge     int    `mapstructure:"max_age" validate:"min=0"` // days
}

// DefaultLogConfig logs info and above to stderr only. The config file
// enables the rotating file under the config directory.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		FilePath:   filepath.Join(home, ".config", "bist-takvim", "logs", "takvim.log"),
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     30,
	}
}

// NewLogger creates a logger with the default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a logger writing to stderr, the rotating file,
// or both. It also sets the global level.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, consoleWriter(os.Stderr))
	}
	if cfg.File && cfg.FilePath != "" {
		if w, err := fileWriter(cfg); err == nil {
			writers = append(writers, w)
		}
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(out).With().Timestamp()
	if level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

var levelLabels = map[string]struct {
	label string
	color *color.Color
}{
	"debug": {"DBG", color.New(color.FgCyan)},
	"info":  {"INF", color.New(color.FgGreen)},
	"warn":  {"WRN", color.New(color.FgYellow)},
	"error": {"ERR", color.New(color.FgRed, color.Bold)},
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    color.NoColor,
		FormatLevel: func(i interface{}) string {
			ll, ok := i.(string)
			if !ok {
				return "???"
			}
			l, ok := levelLabels[ll]
			if !ok {
				return strings.ToUpper(ll)
			}
			if color.NoColor {
				return l.label
			}
			return l.color.Sprint(l.label)
		},
	}
}

func fileWriter(cfg LogConfig) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}, nil
}

func parseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithAlertID adds an alert ID to the logger context.
func WithAlertID(logger zerolog.Logger, alertID string) zerolog.Logger {
	return logger.With().Str("alert_id", alertID).Logger()
}

// WithComponent adds a component name to the logger context.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogRefresh logs the outcome of a calendar refresh.
func LogRefresh(logger zerolog.Logger, symbol string, events int, defaulted bool, duration time.Duration) {
	logger.Info().
		Str("event", "calendar_refresh").
		Str("symbol", symbol).
		Int("events", events).
		Bool("defaulted", defaulted).
		Dur("duration", duration).
		Msg("Calendar refreshed")
}

// LogAlertTriggered logs an alert trigger.
func LogAlertTriggered(logger zerolog.Logger, alertID, userID, symbol, eventType string, eventDate time.Time) {
	logger.Info().
		Str("event", "alert").
		Str("alert_id", alertID).
		Str("user_id", userID).
		Str("symbol", symbol).
		Str("event_type", eventType).
		Str("event_date", eventDate.Format("2006-01-02")).
		Msg("Alert triggered")
}

// LogSourceCall logs a source adapter call. Failures log at warn so they show
// without debug output.
func LogSourceCall(logger zerolog.Logger, source, symbol string, records int, duration time.Duration, err error) {
	if err != nil {
		logger.Warn().
			Str("event", "source_call").
			Str("source", source).
			Str("symbol", symbol).
			Dur("duration", duration).
			Err(err).
			Msg("Source call failed")
		return
	}
	logger.Debug().
		Str("event", "source_call").
		Str("source", source).
		Str("symbol", symbol).
		Int("records", records).
		Dur("duration", duration).
		Msg("Source call completed")
}
