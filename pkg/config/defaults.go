package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittocloud/pkg/remote/memory"
	"github.com/marmos91/dittocloud/pkg/schedule"
	"github.com/marmos91/dittocloud/pkg/transfer"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Type-specific maps get defaults for every backend so that a generated
//     config file documents all of them
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyRemoteDefaults(&cfg.Remote)
	applyStateDefaults(&cfg.State)
	applyScheduleDefaults(&cfg.Schedule)
	applyTransferDefaults(&cfg.Transfer)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyRemoteDefaults(cfg *RemoteConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = cfg.RateLimit.RequestsPerSecond
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if _, ok := cfg.Memory["page_size"]; !ok {
		cfg.Memory["page_size"] = memory.DefaultPageSize
	}
	if _, ok := cfg.Memory["seed"]; !ok {
		cfg.Memory["seed"] = true
	}
	if _, ok := cfg.Memory["snapshot"]; !ok {
		cfg.Memory["snapshot"] = filepath.Join(GetDataDir(), "remote.yaml")
	}
}

func applyStateDefaults(cfg *StateConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}

	if cfg.File == nil {
		cfg.File = make(map[string]any)
	}
	if _, ok := cfg.File["path"]; !ok {
		cfg.File["path"] = filepath.Join(GetConfigDir(), "cwd.yaml")
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(GetDataDir(), "state")
	}
}

func applyScheduleDefaults(cfg *ScheduleConfig) {
	def := schedule.DefaultSchedule()
	applyWindowDefaults(&cfg.Upload, def.Upload)
	applyWindowDefaults(&cfg.Download, def.Download)
}

func applyWindowDefaults(cfg *WindowConfig, def schedule.Window) {
	if cfg.Start == "" {
		cfg.Start = def.Start.String()
	}
	if cfg.End == "" {
		cfg.End = def.End.String()
	}
}

func applyTransferDefaults(cfg *TransferConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = transfer.DefaultUserAgent
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Cache: CacheConfig{PathIndex: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
