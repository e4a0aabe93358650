// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Checks   ChecksConfig   `mapstructure:"checks"`
	DB       DBConfig       `mapstructure:"db"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FetchConfig governs static page acquisition.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// OracleConfig configures the summarization oracle. An empty APIKey disables
// the oracle entirely; the deterministic fallback classifier runs instead.
type OracleConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxDiffChars   int    `mapstructure:"max_diff_chars"`
}

// ChecksConfig governs the check pipeline and batch fan-out.
type ChecksConfig struct {
	Concurrency    int  `mapstructure:"concurrency"`
	SnapshotAlways bool `mapstructure:"snapshot_always"`
	MaxTracked     int  `mapstructure:"max_tracked"`
	HistoryDepth   int  `mapstructure:"history_depth"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ArchiveConfig selects where raw fetched HTML is archived.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	Prefix    string `mapstructure:"prefix"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// NotifyConfig holds metadata for change-event notifications.
type NotifyConfig struct {
	ProjectID     string `mapstructure:"project_id"`
	TopicName     string `mapstructure:"topic_name"`
	ImportantOnly bool   `mapstructure:"important_only"`
}

// LoggingConfig toggles zap development features and the level threshold.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WATCHER")
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.user_agent", "competitor-watch/0.1")
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("oracle.endpoint", "https://api.openai.com")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.timeout_seconds", 15)
	v.SetDefault("oracle.max_diff_chars", 8000)
	v.SetDefault("checks.concurrency", 4)
	v.SetDefault("checks.snapshot_always", true)
	v.SetDefault("checks.max_tracked", 10)
	v.SetDefault("checks.history_depth", 5)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Checks.Concurrency <= 0 {
		return fmt.Errorf("checks.concurrency must be > 0")
	}
	if c.Checks.MaxTracked <= 0 {
		return fmt.Errorf("checks.max_tracked must be > 0")
	}
	if c.Checks.HistoryDepth <= 0 {
		return fmt.Errorf("checks.history_depth must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Backend {
	case "none", "memory", "gcs", "local":
	default:
		return fmt.Errorf("archive.backend must be one of none|memory|local|gcs")
	}
	if c.Archive.Backend == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.backend is gcs")
	}
	if c.Archive.Backend == "local" && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set when archive.backend is local")
	}
	if c.Notify.TopicName != "" && c.Notify.ProjectID == "" {
		return fmt.Errorf("notify.project_id must be set when notify.topic_name is set")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// OracleTimeout converts the oracle timeout into a duration.
func (c Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// OracleEnabled reports whether the summarization oracle is configured.
func (c Config) OracleEnabled() bool {
	return c.Oracle.APIKey != ""
}
