// Package config provides configuration management for the calendar application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "bist-takvim/internal/errors"
	"bist-takvim/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Storage       StorageConfig      `mapstructure:"storage"`
	Calendar      CalendarConfig     `mapstructure:"calendar"`
	Sources       []SourceConfig     `mapstructure:"sources" validate:"dive"`
	Alerts        AlertsConfig       `mapstructure:"alerts"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       logging.LogConfig  `mapstructure:"logging"`
	Credentials   Credentials        `mapstructure:"-" json:"-"` // Loaded separately
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// CalendarConfig holds calendar refresh configuration.
type CalendarConfig struct {
	Watchlist       []string          `mapstructure:"watchlist"`
	Companies       map[string]string `mapstructure:"companies"` // keys are lower-cased by viper
	RefreshCron     string            `mapstructure:"refresh_cron"`
	RefreshInterval time.Duration     `mapstructure:"refresh_interval"` // pause between symbols
	SourceTimeout   time.Duration     `mapstructure:"source_timeout"`
	Freshness       time.Duration     `mapstructure:"freshness"`
}

// SourceConfig describes one event source adapter.
type SourceConfig struct {
	Name             string        `mapstructure:"name" validate:"required"`
	Kind             string        `mapstructure:"kind" validate:"oneof=html feed"`
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url" validate:"required"` // %s is replaced by the symbol
	ItemSelector     string        `mapstructure:"item_selector" validate:"required_if=Kind html"`
	TitleSelector    string        `mapstructure:"title_selector"`
	DateSelector     string        `mapstructure:"date_selector"`
	CategorySelector string        `mapstructure:"category_selector"`
	Category         string        `mapstructure:"category"`
	MinInterval      time.Duration `mapstructure:"min_interval"`
}

// AlertsConfig holds alert creation and scheduling configuration.
type AlertsConfig struct {
	DefaultUser   string        `mapstructure:"default_user" validate:"required"`
	LeadDays      int           `mapstructure:"lead_days" validate:"min=0,max=365"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Log      bool           `mapstructure:"log"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// TerminalConfig holds terminal notification configuration.
type TerminalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Bell    bool `mapstructure:"bell"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" validate:"required_if=Enabled true"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token" json:"-"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" validate:"min=0,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password" json:"-"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Credentials holds secrets kept out of config.toml.
type Credentials struct {
	Telegram TelegramCredentials `mapstructure:"telegram"`
	SMTP     SMTPCredentials     `mapstructure:"smtp"`
}

// TelegramCredentials holds the Telegram bot secret.
type TelegramCredentials struct {
	BotToken string `mapstructure:"bot_token"`
}

// SMTPCredentials holds the SMTP password.
type SMTPCredentials struct {
	Password string `mapstructure:"password"`
}

// DefaultWatchlist is refreshed when no watchlist is configured.
var DefaultWatchlist = []string{"THYAO", "KCHOL", "GARAN", "AKBNK", "ISCTR", "SAHOL", "ASELS", "EREGL"}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/bist-takvim"
	}
	return filepath.Join(home, ".config", "bist-takvim")
}

// Default returns a configuration populated only with defaults.
func Default(configDir string) *Config {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	v := viper.New()
	setDefaults(v, configDir)

	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}
	cfg.applyCredentials()

	// .env values only fill variables that are not already set
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("storage.path", filepath.Join(configDir, "takvim.db"))

	v.SetDefault("calendar.watchlist", DefaultWatchlist)
	v.SetDefault("calendar.refresh_cron", "0 7 * * *")
	v.SetDefault("calendar.refresh_interval", 2*time.Second)
	v.SetDefault("calendar.source_timeout", 20*time.Second)
	v.SetDefault("calendar.freshness", 24*time.Hour)

	v.SetDefault("alerts.default_user", "default")
	v.SetDefault("alerts.lead_days", 1)
	v.SetDefault("alerts.poll_interval", 5*time.Minute)
	v.SetDefault("alerts.retry_interval", time.Minute)
	v.SetDefault("alerts.notify_timeout", 10*time.Second)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.log", true)
	v.SetDefault("notifications.terminal.enabled", true)
	v.SetDefault("notifications.email.smtp_port", 587)

	logCfg := logging.DefaultLogConfig()
	v.SetDefault("logging.level", logCfg.Level)
	v.SetDefault("logging.console", logCfg.Console)
	v.SetDefault("logging.file", logCfg.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "takvim.log"))
	v.SetDefault("logging.max_size", logCfg.MaxSize)
	v.SetDefault("logging.max_backups", logCfg.MaxBackups)
	v.SetDefault("logging.max_age", logCfg.MaxAge)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// First run: write the template and continue with it
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func (c *Config) applyCredentials() {
	if c.Credentials.Telegram.BotToken != "" {
		c.Notifications.Telegram.BotToken = c.Credentials.Telegram.BotToken
	}
	if c.Credentials.SMTP.Password != "" {
		c.Notifications.Email.Password = c.Credentials.SMTP.Password
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TAKVIM_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TAKVIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TAKVIM_USER"); v != "" {
		cfg.Alerts.DefaultUser = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Notifications.Email.Password = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}

	if c.Alerts.PollInterval <= 0 {
		return fmt.Errorf("%w: alerts.poll_interval must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Alerts.RetryInterval <= 0 {
		return fmt.Errorf("%w: alerts.retry_interval must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Alerts.NotifyTimeout <= 0 {
		return fmt.Errorf("%w: alerts.notify_timeout must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Calendar.SourceTimeout <= 0 {
		return fmt.Errorf("%w: calendar.source_timeout must be positive", apperrors.ErrConfigInvalid)
	}

	seen := make(map[string]bool)
	for _, s := range c.Sources {
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", apperrors.ErrConfigInvalid, s.Name)
		}
		seen[s.Name] = true
	}

	return nil
}

// CompanyName returns the configured display name for a symbol, or the
// symbol itself.
func (c *CalendarConfig) CompanyName(symbol string) string {
	if name, ok := c.Companies[strings.ToLower(symbol)]; ok && name != "" {
		return name
	}
	return symbol
}

// CompanyNames returns the configured display names keyed by upper-case symbol.
func (c *CalendarConfig) CompanyNames() map[string]string {
	names := make(map[string]string, len(c.Companies))
	for symbol, name := range c.Companies {
		names[strings.ToUpper(symbol)] = name
	}
	return names
}

// EnabledSources returns the enabled sources in configured order.
func (c *Config) EnabledSources() []SourceConfig {
	var enabled []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}
