package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName names the configuration and data directories.
const AppName = "dittocloud"

// Config represents the complete DittoCloud configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOCLOUD_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Backend pattern:
// The remote backend and the state store are selected by a Type field. Each
// implementation defines its own configuration struct, and the Config holds
// type-specific maps (e.g. remote.memory, state.badger) decoded by the
// factories. Only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Remote selects the remote item service and its client-side pacing
	Remote RemoteConfig `mapstructure:"remote" yaml:"remote"`

	// Cache configures the item cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// State selects where the current directory is persisted
	State StateConfig `mapstructure:"state" yaml:"state"`

	// Schedule holds the daily upload and download windows
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`

	// Transfer configures the content transport
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`

	// Metrics configures Prometheus metrics
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// RemoteConfig specifies the remote item service.
type RemoteConfig struct {
	// Type specifies which backend to use
	// Valid values: memory
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory"`

	// RateLimit paces calls to the service
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Memory contains memory-backend configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`
}

// RateLimitConfig is a token bucket in front of the remote service.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained call rate. 0 disables pacing.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the number of calls allowed at once (default: RequestsPerSecond)
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// CacheConfig configures the item cache.
type CacheConfig struct {
	// PathIndex keeps an absolute path -> item ID index
	PathIndex bool `mapstructure:"path_index" yaml:"path_index"`
}

// StateConfig specifies where the current directory is persisted.
type StateConfig struct {
	// Type specifies which store implementation to use
	// Valid values: file, badger, memory
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=file badger memory"`

	// File contains YAML-file store configuration
	// Only used when Type = "file"
	File map[string]any `mapstructure:"file" yaml:"file"`

	// Badger contains BadgerDB store configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// ScheduleConfig holds the transfer windows as "HH:MM:SS" strings.
type ScheduleConfig struct {
	Upload   WindowConfig `mapstructure:"upload" yaml:"upload"`
	Download WindowConfig `mapstructure:"download" yaml:"download"`
}

// WindowConfig is one daily window. Equal start and end keep it always open.
type WindowConfig struct {
	Start string `mapstructure:"start" yaml:"start" validate:"required"`
	End   string `mapstructure:"end" yaml:"end" validate:"required"`
}

// TransferConfig configures the HTTP content transport.
type TransferConfig struct {
	// Timeout bounds a single upload or download request. 0 means no limit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`

	// UserAgent is sent with every content request
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent" validate:"required"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns on collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Host to bind the metrics server to
	Host string `mapstructure:"host" yaml:"host" validate:"required"`

	// Port for the metrics server
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// envKeys are bound to DITTOCLOUD_* variables even when no config file
// mentions them.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"remote.type",
	"remote.rate_limit.requests_per_second",
	"remote.rate_limit.burst",
	"cache.path_index",
	"state.type",
	"schedule.upload.start",
	"schedule.upload.end",
	"schedule.download.start",
	"schedule.download.end",
	"transfer.timeout",
	"transfer.user_agent",
	"metrics.enabled",
	"metrics.host",
	"metrics.port",
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOCLOUD_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses $XDG_CONFIG_HOME/dittocloud/config.yaml. A
// missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DITTOCLOUD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOCLOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Booleans whose default is true cannot be recovered from a zero value.
	v.SetDefault("cache.path_index", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(GetConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/dittocloud.
func GetConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// GetDataDir returns $XDG_DATA_HOME/dittocloud, home of the state database
// and the memory backend snapshot.
func GetDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}
