// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Storage StorageConfig `mapstructure:"storage"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	DB      DBConfig      `mapstructure:"db"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlConfig governs the crawl run itself.
type CrawlConfig struct {
	RabbiURL          string `mapstructure:"rabbi_url"`
	Subject           string `mapstructure:"subject"`
	Retries           int    `mapstructure:"retries"`
	UserAgent         string `mapstructure:"user_agent"`
	AcceptLanguage    string `mapstructure:"accept_language"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// StorageConfig selects where snapshot versions are persisted.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifyConfig configures the outbound notification channels.
type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID string `mapstructure:"telegram_chat_id"`
	PubSubProject  string `mapstructure:"pubsub_project"`
	PubSubTopic    string `mapstructure:"pubsub_topic"`
}

// DBConfig controls the optional Postgres run ledger.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ServerConfig controls the status/metrics HTTP listener (0 disables it).
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and file rotation.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LESSONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal; Viper only consults the environment for keys it knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.rabbi_url", "")
	v.SetDefault("crawl.subject", "rabbi-fireman")
	v.SetDefault("crawl.retries", 3)
	v.SetDefault("crawl.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/95.0.4638.69 Safari/537.36")
	v.SetDefault("crawl.accept_language", "he-IL,he;q=0.9,en-US;q=0.8,en;q=0.7")
	v.SetDefault("crawl.nav_timeout_seconds", 45)
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "snapshots")
	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.telegram_chat_id", "")
	v.SetDefault("notify.pubsub_project", "")
	v.SetDefault("notify.pubsub_topic", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "crawl_runs")
	v.SetDefault("server.port", 0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.RabbiURL == "" {
		return fmt.Errorf("crawl.rabbi_url is required")
	}
	if c.Crawl.Subject == "" {
		return fmt.Errorf("crawl.subject is required")
	}
	if c.Crawl.Retries < 1 {
		return fmt.Errorf("crawl.retries must be >= 1")
	}
	if c.Crawl.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.nav_timeout_seconds must be > 0")
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		return fmt.Errorf("notify.telegram_token and notify.telegram_chat_id must be set together")
	}
	if (c.Notify.PubSubProject == "") != (c.Notify.PubSubTopic == "") {
		return fmt.Errorf("notify.pubsub_project and notify.pubsub_topic must be set together")
	}
	return nil
}

// NavTimeout converts the configured navigation budget into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Crawl.NavTimeoutSeconds) * time.Second
}
