package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoCloud Configuration File
#
# Values can be overridden with DITTOCLOUD_* environment variables,
# e.g. DITTOCLOUD_LOGGING_LEVEL=DEBUG or DITTOCLOUD_SCHEDULE_UPLOAD_START=22:00:00.
`

// sectionComments document each top-level key of the generated file.
var sectionComments = map[string]string{
	"logging":  "Log level (DEBUG, INFO, WARN, ERROR), format (text, json) and output (stdout, stderr, file path)",
	"remote":   "Remote item service. Only the memory emulator ships; rate_limit.requests_per_second 0 disables pacing",
	"cache":    "Item cache. path_index keeps an absolute path -> item index",
	"state":    "Where the current directory is kept between invocations (file, badger, memory)",
	"schedule": "Daily transfer windows (HH:MM:SS). start > end wraps midnight, start == end is always open",
	"transfer": "Content transport",
	"metrics":  "Prometheus metrics served on host:port/metrics while a command runs",
}

// InitConfig writes the default configuration to GetDefaultConfigPath and
// returns that path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg with a file header and one comment
// above each section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// doc is a mapping: keys at even indexes, values at odd ones.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if comment, ok := sectionComments[doc.Content[i].Value]; ok {
			doc.Content[i].HeadComment = comment
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return buf.String(), nil
}
