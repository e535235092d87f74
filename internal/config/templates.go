package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# BIST Takvim Configuration

[storage]
# SQLite database holding calendars and alerts (defaults to <config dir>/takvim.db)
# path = "/var/lib/bist-takvim/takvim.db"

[calendar]
# Symbols refreshed by "calendar refresh" and the scheduled refresh job
watchlist = ["THYAO", "KCHOL", "GARAN", "AKBNK", "ISCTR", "SAHOL", "ASELS", "EREGL"]
# Cron spec for the scheduled watchlist refresh (minute hour dom month dow)
refresh_cron = "0 7 * * *"
# Pause between symbols during a watchlist refresh
refresh_interval = "2s"
# Upper bound for a single source call
source_timeout = "20s"
# Calendars younger than this are not re-fetched unless forced
freshness = "24h"

[calendar.companies]
THYAO = "Türk Hava Yolları"
KCHOL = "Koç Holding"
GARAN = "Garanti BBVA"
AKBNK = "Akbank"
ISCTR = "Türkiye İş Bankası"
SAHOL = "Sabancı Holding"
ASELS = "Aselsan"
EREGL = "Ereğli Demir Çelik"

# Event sources are queried in the order listed. When two sources report the
# same event, the earlier source wins.
#
# kind = "html" scrapes a page with CSS selectors; kind = "feed" reads RSS/Atom
# and keeps items that mention the symbol.

[[sources]]
name = "disclosures"
kind = "html"
enabled = false
url = "https://example.com/companies/%s/disclosures"
item_selector = "table.disclosures tbody tr"
title_selector = "td.subject"
date_selector = "td.date"
category_selector = "td.category"
min_interval = "1s"

[[sources]]
name = "news"
kind = "feed"
enabled = false
url = "https://example.com/rss/economy.xml"
category = "news"
min_interval = "1s"

[alerts]
# User id used when --user is not given
default_user = "default"
# Days before an event that its alert fires
lead_days = 1
# How often the scheduler checks for due alerts
poll_interval = "5m"
# Retry interval after a failed scheduler tick
retry_interval = "1m"
# Upper bound for delivering a single notification
notify_timeout = "10s"

[notifications]
# Enable notifications
enabled = true
# Write triggered alerts to the log
log = true

[notifications.terminal]
# Print triggered alerts to the terminal running "takvim serve"
enabled = true
bell = false

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
chat_id = ""

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
from = ""
to = ""

[logging]
level = "info"
console = true
file = true
`

const credentialsTemplate = `# BIST Takvim Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[telegram]
bot_token = ""

[smtp]
password = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
