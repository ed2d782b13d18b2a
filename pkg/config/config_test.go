package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

// isolateDirs points the XDG config and data homes at a temporary directory
// so tests never read or write the user's files.
func isolateDirs(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return tmpDir
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	isolateDirs(t)

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

remote:
  type: "memory"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if !cfg.Cache.PathIndex {
		t.Error("Expected path index enabled by default")
	}
	if cfg.State.Type != "file" {
		t.Errorf("Expected default state type 'file', got %q", cfg.State.Type)
	}
	if cfg.Schedule.Upload.Start != "01:00:00" || cfg.Schedule.Upload.End != "06:00:00" {
		t.Errorf("Expected default upload window 01:00:00-06:00:00, got %+v", cfg.Schedule.Upload)
	}
	if cfg.Transfer.Timeout != 10*time.Minute {
		t.Errorf("Expected default timeout 10m, got %v", cfg.Transfer.Timeout)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	isolateDirs(t)
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Remote.Type != "memory" {
		t.Errorf("Expected default remote type 'memory', got %q", cfg.Remote.Type)
	}
}

func TestLoad_DefaultLocation(t *testing.T) {
	isolateDirs(t)

	path := GetDefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("logging:\n  level: WARN\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level from default location 'WARN', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolateDirs(t)

	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	isolateDirs(t)

	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[schedule.upload]
start = "22:00:00"
end = "04:00:00"

[transfer]
timeout = "45s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Schedule.Upload.Start != "22:00:00" {
		t.Errorf("Expected upload start '22:00:00', got %q", cfg.Schedule.Upload.Start)
	}
	if cfg.Schedule.Download.Start != "01:00:00" {
		t.Errorf("Expected default download start, got %q", cfg.Schedule.Download.Start)
	}
	if cfg.Transfer.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", cfg.Transfer.Timeout)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolateDirs(t)

	configPath := writeConfig(t, "config.yaml", "logging:\n  level: INFO\n")

	t.Setenv("DITTOCLOUD_LOGGING_LEVEL", "DEBUG")
	t.Setenv("DITTOCLOUD_SCHEDULE_DOWNLOAD_START", "00:00:00")
	t.Setenv("DITTOCLOUD_SCHEDULE_DOWNLOAD_END", "00:00:00")
	t.Setenv("DITTOCLOUD_CACHE_PATH_INDEX", "false")
	t.Setenv("DITTOCLOUD_REMOTE_RATE_LIMIT_REQUESTS_PER_SECOND", "5")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected env level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Schedule.Download.Start != "00:00:00" {
		t.Errorf("Expected env download start, got %q", cfg.Schedule.Download.Start)
	}
	if cfg.Cache.PathIndex {
		t.Error("Expected env to disable path index")
	}
	if cfg.Remote.RateLimit.RequestsPerSecond != 5 || cfg.Remote.RateLimit.Burst != 5 {
		t.Errorf("Expected rate limit 5/5, got %+v", cfg.Remote.RateLimit)
	}
}

func TestLoad_InvalidSchedule(t *testing.T) {
	isolateDirs(t)

	configPath := writeConfig(t, "config.yaml", `
schedule:
  upload:
    start: "25:00:00"
    end: "06:00:00"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid schedule")
	}
	if !strings.Contains(err.Error(), "schedule.upload") {
		t.Errorf("Expected error to name schedule.upload, got: %v", err)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	tmpDir := isolateDirs(t)

	path := GetDefaultConfigPath()
	want := filepath.Join(tmpDir, "config", "dittocloud", "config.yaml")
	if path != want {
		t.Errorf("Expected %s, got %s", want, path)
	}
	if !strings.HasPrefix(GetDataDir(), filepath.Join(tmpDir, "data")) {
		t.Errorf("Expected data dir under XDG_DATA_HOME, got %s", GetDataDir())
	}
}
