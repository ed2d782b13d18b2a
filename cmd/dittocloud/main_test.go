package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir        string
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "xdg-data"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	configPath := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: WARN
  output: ` + filepath.Join(dir, "dittocloud.log") + `
remote:
  type: memory
  memory:
    seed: true
    snapshot: ` + filepath.Join(dir, "remote.yaml") + `
state:
  type: file
  file:
    path: ` + filepath.Join(dir, "cwd.yaml") + `
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return &cliEnv{dir: dir, configPath: configPath}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String() + errOut.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "dittocloud %s\n%s", strings.Join(args, " "), out)
	return out
}

func TestLsSeededTree(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, "Laptop\n", env.mustRun(t, "ls", "/"))

	out := env.mustRun(t, "ls", "/Laptop")
	assert.Contains(t, out, "Documents\n")
	assert.Contains(t, out, "Photos\n")

	out = env.mustRun(t, "ls", "-l", "-H", "/Laptop/Documents")
	assert.Contains(t, out, "readme.txt")
	assert.Contains(t, out, "c:")
	assert.Contains(t, out, "23 B")

	out = env.mustRun(t, "ls", "-R", "/Laptop")
	assert.Contains(t, out, "/Laptop:\n")
	assert.Contains(t, out, "/Laptop/Documents:\n")
}

func TestLsMissingPath(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "ls", "/Laptop/Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope")
}

func TestTree(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "tree", "/Laptop")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "/Laptop", lines[0])
	assert.Contains(t, out, "── Documents\n")
	assert.Contains(t, out, "── readme.txt\n")
}

func TestNavigationPersists(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "mkdir", "/Laptop/Music/2024")
	assert.Contains(t, out, "/Laptop/Music/2024")

	assert.Equal(t, "/Laptop/Music\n", env.mustRun(t, "cd", "/Laptop/Music"))
	assert.Equal(t, "/Laptop/Music\n", env.mustRun(t, "pwd"))
	assert.Equal(t, "2024\n", env.mustRun(t, "ls"))

	out = env.mustRun(t, "mv", "2024", "/Laptop/Backups/music-2024")
	assert.Contains(t, out, "/Laptop/Backups/music-2024")
	assert.Contains(t, env.mustRun(t, "path", "/Laptop/Backups/music-2024"), "folder")

	assert.Equal(t, "/\n", env.mustRun(t, "cd"))
}

func TestRm(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "rm", "/Laptop/Documents/notes.md")
	assert.Equal(t, "Removed /Laptop/Documents/notes.md\n", out)
	assert.Contains(t, env.mustRun(t, "path", "/Laptop/Documents/notes.md"), "not found")
	assert.Contains(t, env.mustRun(t, "ls", "/Laptop/Recycle Bin"), "notes.md")
}

func TestPutThenSkipUnchanged(t *testing.T) {
	env := newCLIEnv(t)

	local := filepath.Join(env.dir, "hello.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello world"), 0o644))

	out := env.mustRun(t, "put", "--dryrun", local, "/Laptop/Documents")
	assert.Contains(t, out, "1 planned")
	assert.Contains(t, env.mustRun(t, "path", "/Laptop/Documents/hello.txt"), "not found")

	out = env.mustRun(t, "put", local, "/Laptop/Documents")
	assert.Contains(t, out, "Transferred "+local)
	assert.Contains(t, out, "1 transferred")

	out = env.mustRun(t, "put", local, "/Laptop/Documents")
	assert.Contains(t, out, "0 transferred (0 B), 1 skipped")

	out = env.mustRun(t, "put", "--force", local, "/Laptop/Documents")
	assert.Contains(t, out, "1 transferred")
}

func TestGet(t *testing.T) {
	env := newCLIEnv(t)
	dest := filepath.Join(env.dir, "download")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	out := env.mustRun(t, "get", "/Laptop/Documents", dest)
	assert.Contains(t, out, "2 transferred")

	data, err := os.ReadFile(filepath.Join(dest, "Documents", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Welcome to DittoCloud!\n", string(data))

	out = env.mustRun(t, "get", "/Laptop/Documents", dest)
	assert.Contains(t, out, "0 transferred (0 B), 2 skipped")
}

func TestProps(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "props", "/Laptop/Documents/readme.txt")
	assert.Contains(t, out, "/Laptop/Documents/readme.txt")
	assert.Contains(t, out, "23 bytes")
}

func TestSchedule(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "schedule")
	assert.Contains(t, out, "upload")
	assert.Contains(t, out, "01:00:00-06:00:00")
}

func TestConfigInitAndShow(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(env.dir, "generated", "config.yaml")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "config", "init"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), path)

	_, err := os.Stat(path)
	require.NoError(t, err)

	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "config", "show"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "schedule:")
	assert.Contains(t, out.String(), "user_agent: dittocloud/1.0")
}
