package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warn", LevelWarn, true},
		{"ERROR", LevelError, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", Level(9).String())
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	t.Cleanup(func() { SetLevel("INFO") })

	SetLevel("ERROR")
	assert.False(t, Enabled(LevelWarn))
	assert.True(t, Enabled(LevelError))

	SetLevel("loud")
	assert.False(t, Enabled(LevelWarn))
}

func TestConfigureJSONFile(t *testing.T) {
	t.Cleanup(func() { _ = Configure("INFO", "text", "stderr") })

	path := filepath.Join(t.TempDir(), "dittocloud.log")
	require.NoError(t, Configure("WARN", "json", path))

	Info("hidden %d", 1)
	Warn("moved %s", "/Laptop/a")
	Error("failed %s", "/Laptop/b")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "moved /Laptop/a", entry["msg"])
}

func TestConfigureRejectsFormat(t *testing.T) {
	assert.Error(t, Configure("INFO", "xml", "stderr"))
}
