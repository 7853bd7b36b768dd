// Package config loads process-wide configuration: the teacher's
// viper-file-plus-env pattern, expanded with the tunables the sync engine
// and the GCS Object Client need.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
	BufferSize     int `mapstructure:"buffer_size"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxConnections int           `mapstructure:"max_connections"`

	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	BackoffFactor  float64       `mapstructure:"backoff_factor"`
	BackoffJitter  float64       `mapstructure:"backoff_jitter"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	MaxAttempts    int           `mapstructure:"max_attempts"`

	HistoryDBPath string `mapstructure:"history_db_path"`
}

var Default = Config{
	MaxConcurrency: 16,
	BufferSize:     64 * 1024,
	ConnectTimeout: 60 * time.Second,
	ReadTimeout:    600 * time.Second,
	MaxConnections: 64,
	InitialBackoff: 500 * time.Millisecond,
	BackoffFactor:  2,
	BackoffJitter:  0.2,
	MaxBackoff:     30 * time.Second,
	MaxAttempts:    5,
	HistoryDBPath:  "gcsync.db",
}

// Load reads ~/.gcsync/config.yaml, overlaying GCSYNC_* environment
// variables and the defaults above. A missing config file is not an
// error; an unparseable one is.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".gcsync")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("max_concurrency", Default.MaxConcurrency)
	v.SetDefault("buffer_size", Default.BufferSize)
	v.SetDefault("connect_timeout", Default.ConnectTimeout)
	v.SetDefault("read_timeout", Default.ReadTimeout)
	v.SetDefault("max_connections", Default.MaxConnections)
	v.SetDefault("initial_backoff", Default.InitialBackoff)
	v.SetDefault("backoff_factor", Default.BackoffFactor)
	v.SetDefault("backoff_jitter", Default.BackoffJitter)
	v.SetDefault("max_backoff", Default.MaxBackoff)
	v.SetDefault("max_attempts", Default.MaxAttempts)
	v.SetDefault("history_db_path", Default.HistoryDBPath)

	v.SetEnvPrefix("GCSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

// CredentialsPath returns GOOGLE_APPLICATION_CREDENTIALS, read directly
// since it is an external contract, not app config.
func CredentialsPath() string { return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") }

// EmulatorHost returns STORAGE_EMULATOR_HOST, read directly for the same
// reason.
func EmulatorHost() string { return os.Getenv("STORAGE_EMULATOR_HOST") }
