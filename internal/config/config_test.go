package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bist-takvim/internal/errors"
)

func TestLoadCreatesTemplatesOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.FileExists(t, filepath.Join(dir, "credentials.toml"))

	assert.Equal(t, filepath.Join(dir, "takvim.db"), cfg.Storage.Path)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.PollInterval)
	assert.Equal(t, time.Minute, cfg.Alerts.RetryInterval)
	assert.Equal(t, 1, cfg.Alerts.LeadDays)
	assert.Equal(t, DefaultWatchlist, cfg.Calendar.Watchlist)
	assert.Equal(t, "Türk Hava Yolları", cfg.Calendar.CompanyName("THYAO"))
	assert.Equal(t, "XYZ", cfg.Calendar.CompanyName("XYZ"))

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "disclosures", cfg.Sources[0].Name)
	assert.Empty(t, cfg.EnabledSources())
}

func TestLoadAppliesCredentialsAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[alerts]
default_user = "ayse"
poll_interval = "30s"

[notifications.telegram]
enabled = true
chat_id = "42"
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(`
[telegram]
bot_token = "from-file"
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TELEGRAM_CHAT_ID=99\n"), 0600))

	t.Setenv("TAKVIM_DB_PATH", filepath.Join(dir, "other.db"))
	// registers restoration of the variable, then leaves it unset for .env
	t.Setenv("TELEGRAM_CHAT_ID", "")
	require.NoError(t, os.Unsetenv("TELEGRAM_CHAT_ID"))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ayse", cfg.Alerts.DefaultUser)
	assert.Equal(t, 30*time.Second, cfg.Alerts.PollInterval)
	assert.Equal(t, "from-file", cfg.Notifications.Telegram.BotToken)
	assert.Equal(t, "99", cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, filepath.Join(dir, "other.db"), cfg.Storage.Path)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default(t.TempDir())
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Alerts.PollInterval = 0
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid)

	bad = *cfg
	bad.Sources = []SourceConfig{{Name: "x", Kind: "ftp", URL: "ftp://x"}}
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid)

	bad = *cfg
	bad.Sources = []SourceConfig{{Name: "x", Kind: "html", URL: "http://x"}}
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid, "html source needs an item selector")

	bad = *cfg
	bad.Sources = []SourceConfig{
		{Name: "x", Kind: "feed", URL: "http://x"},
		{Name: "x", Kind: "feed", URL: "http://y"},
	}
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid)

	bad = *cfg
	bad.Alerts.LeadDays = -1
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid)
}
