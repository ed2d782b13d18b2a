package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "log level",
			mutate: func(c *Config) { c.Logging.Level = "INVALID" },
			want:   "oneof",
		},
		{
			name:   "log format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			want:   "Format",
		},
		{
			name:   "empty log output",
			mutate: func(c *Config) { c.Logging.Output = "" },
			want:   "required",
		},
		{
			name:   "remote type",
			mutate: func(c *Config) { c.Remote.Type = "graphql" },
			want:   "Remote.Type",
		},
		{
			name:   "state type",
			mutate: func(c *Config) { c.State.Type = "sqlite" },
			want:   "State.Type",
		},
		{
			name:   "malformed window",
			mutate: func(c *Config) { c.Schedule.Download.End = "6am" },
			want:   "schedule.download",
		},
		{
			name:   "empty window",
			mutate: func(c *Config) { c.Schedule.Upload.Start = "" },
			want:   "required",
		},
		{
			name:   "negative timeout",
			mutate: func(c *Config) { c.Transfer.Timeout = -1 },
			want:   "Timeout",
		},
		{
			name:   "empty user agent",
			mutate: func(c *Config) { c.Transfer.UserAgent = "" },
			want:   "UserAgent",
		},
		{
			name:   "metrics port",
			mutate: func(c *Config) { c.Metrics.Port = 70000 },
			want:   "lte",
		},
		{
			name: "burst without rate",
			mutate: func(c *Config) {
				c.Remote.RateLimit = RateLimitConfig{Burst: 3}
			},
			want: "burst",
		},
		{
			name:   "memory page size",
			mutate: func(c *Config) { c.Remote.Memory["page_size"] = -1 },
			want:   "remote.memory",
		},
		{
			name:   "memory option type",
			mutate: func(c *Config) { c.Remote.Memory["page_size"] = "many" },
			want:   "memory remote config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_LowercaseLevelAccepted(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected lowercase level to be accepted, got: %v", err)
	}
}

func TestValidate_AlwaysOpenWindow(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Schedule.Upload = WindowConfig{Start: "00:00:00", End: "00:00:00"}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected equal start and end to be valid, got: %v", err)
	}
}
