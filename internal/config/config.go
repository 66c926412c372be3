// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	API     APIConfig     `mapstructure:"api"`
	DB      DBConfig      `mapstructure:"db"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the HTTP surface (health, metrics, read API).
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// APIConfig points at the upstream match-data API.
type APIConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN                 string `mapstructure:"dsn"`
	Table               string `mapstructure:"table"`
	MaxConns            int32  `mapstructure:"max_conns"`
	MinConns            int32  `mapstructure:"min_conns"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// IngestConfig governs the polling loop.
type IngestConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`

	// SkipStatuses lists live-status strings whose rows should not be
	// persisted (e.g. rain abandonments).
	SkipStatuses []string `mapstructure:"skip_statuses"`
}

// ArchiveConfig toggles raw-payload archival.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseDir string `mapstructure:"base_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRICKET")
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
	v.SetDefault("api.timeout_seconds", 15)
	v.SetDefault("api.user_agent", "cricket-ingest/0.1")
	v.SetDefault("db.table", "cricket_matches")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.write_timeout_seconds", 10)
	v.SetDefault("ingest.interval_seconds", 10)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.base_dir", "payloads")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint is required")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Ingest.IntervalSeconds <= 0 {
		return fmt.Errorf("ingest.interval_seconds must be > 0")
	}
	if c.Archive.Enabled && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set when archival is enabled")
	}
	return nil
}

// FetchTimeout converts the upstream HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// WriteTimeout converts the database write timeout config into a duration.
func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.DB.WriteTimeoutSeconds) * time.Second
}

// Interval converts the polling interval config into a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Ingest.IntervalSeconds) * time.Second
}
