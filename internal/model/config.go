package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address for the API server.
	Addr string `mapstructure:"addr" yaml:"addr"`

	// TokenSecret signs issued bearer tokens. If empty, the
	// TASKHUB_TOKEN_SECRET environment variable is used.
	TokenSecret string `mapstructure:"token_secret" yaml:"token_secret"`

	// TokenTTLHours is how long issued tokens stay valid.
	TokenTTLHours int `mapstructure:"token_ttl_hours" yaml:"token_ttl_hours"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SMTPConfig holds outbound mail settings. The account password is not
// stored here; it lives in the system keyring (see internal/credential)
// or the TASKHUB_SMTP_PASSWORD environment variable.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	From     string `mapstructure:"from" yaml:"from"`
}

// SweepConfig controls the due-soon reminder sweep.
type SweepConfig struct {
	// Enabled runs the sweep on a timer inside `taskhub serve`.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// IntervalMinutes is the sweep cadence.
	IntervalMinutes int `mapstructure:"interval_minutes" yaml:"interval_minutes"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	SMTP     SMTPConfig     `mapstructure:"smtp" yaml:"smtp"`
	Sweep    SweepConfig    `mapstructure:"sweep" yaml:"sweep"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskhub/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskhub", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite database location.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "taskhub.db")
	}
	return filepath.Join(home, ".local", "share", "taskhub", "taskhub.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:          ":8080",
			TokenTTLHours: 24,
		},
		Database: DatabaseConfig{
			Path: DefaultDatabasePath(),
		},
		SMTP: SMTPConfig{
			Port: 587,
			From: "no-reply@taskhub.local",
		},
		Sweep: SweepConfig{
			Enabled:         true,
			IntervalMinutes: 60,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.token_ttl_hours", 24)
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@taskhub.local")
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval_minutes", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.TokenSecret == "" {
		cfg.Server.TokenSecret = os.Getenv("TASKHUB_TOKEN_SECRET")
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("smtp", cfg.SMTP)
	v.Set("sweep", cfg.Sweep)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
