package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		CookieCloud
		WeRead
		WeReadSync
		Database
		Markdown
		Audit
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	CookieCloud struct {
		URL      string // Relay base URL
		UUID     string // Relay user id (CC_ID)
		Password string // Relay passphrase, empty for unencrypted relays
	}
	WeRead struct {
		Cookie       string // Direct cookie header, wins over CookieCloud
		BaseURL      string
		Timeout      time.Duration
		RetryCount   int
		RetryDelay   time.Duration
		BrowserTLS   bool
		BookIDs      []string // Only sync these books when set
		SkipProgress bool
	}
	WeReadSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}
	Database struct {
		Path string
	}
	Markdown struct {
		OutputDir string // Empty disables markdown export
	}
	Audit struct {
		Dir           string // Raw per-run snapshots are kept here, empty disables them
		RetentionDays int    // Days to keep audit events
	}
)

// HasCookieCloud reports whether relay settings are complete enough to try.
func (c CookieCloud) HasCookieCloud() bool {
	return c.UUID != ""
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("cc_url", DefaultCookieCloudURL)
	v.SetDefault("weread_base_url", DefaultWeReadBaseURL)
	v.SetDefault("weread_timeout", "60s")
	v.SetDefault("weread_retry_count", 3)
	v.SetDefault("weread_retry_delay", "5s")
	v.SetDefault("weread_browser_tls", false)
	v.SetDefault("weread_skip_progress", false)
	v.SetDefault("weread_sync_enabled", false)
	v.SetDefault("weread_sync_schedule", "0 */6 * * *") // Every 6 hours
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("output_dir", "")
	v.SetDefault("audit_dir", "")
	v.SetDefault("audit_retention_days", 30)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		CookieCloud: CookieCloud{
			URL:      v.GetString("CC_URL"),
			UUID:     v.GetString("CC_ID"),
			Password: v.GetString("CC_PASSWORD"),
		},
		WeRead: WeRead{
			Cookie:       v.GetString("WEREAD_COOKIE"),
			BaseURL:      v.GetString("WEREAD_BASE_URL"),
			Timeout:      v.GetDuration("WEREAD_TIMEOUT"),
			RetryCount:   v.GetInt("WEREAD_RETRY_COUNT"),
			RetryDelay:   v.GetDuration("WEREAD_RETRY_DELAY"),
			BrowserTLS:   v.GetBool("WEREAD_BROWSER_TLS"),
			BookIDs:      splitList(v.GetString("WEREAD_BOOK_IDS")),
			SkipProgress: v.GetBool("WEREAD_SKIP_PROGRESS"),
		},
		WeReadSync: WeReadSync{
			Enabled:  v.GetBool("WEREAD_SYNC_ENABLED"),
			Schedule: v.GetString("WEREAD_SYNC_SCHEDULE"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Markdown: Markdown{
			OutputDir: v.GetString("OUTPUT_DIR"),
		},
		Audit: Audit{
			Dir:           v.GetString("AUDIT_DIR"),
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
	}
}
