package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/state"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the state file name inside the configuration directory.
const DefaultFileName = "cwd.yaml"

// Config configures the file-backed store.
type Config struct {
	// Path is the YAML file holding the state.
	// Default: <config dir>/cwd.yaml
	Path string `mapstructure:"path"`
}

// Store keeps the state in a small YAML document.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a crash never leaves a truncated document behind.
// Concurrent processes race last-writer-wins.
type Store struct {
	fs   afero.Fs
	path string
}

var _ state.Store = (*Store)(nil)

// New creates a store for path on fsys. Nothing is touched until the first
// Load or Save.
func New(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(ctx context.Context) (state.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return state.State{}, false, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state.Default(), false, nil
	}
	if err != nil {
		return state.State{}, false, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var st state.State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return state.State{}, false, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if err := st.Validate(); err != nil {
		logger.Warn("Ignoring state file %s: %v", s.path, err)
		return state.Default(), false, nil
	}
	return st, true, nil
}

func (s *Store) Save(ctx context.Context, st state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(&st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace state file %s: %w", s.path, err)
	}

	logger.Debug("Saved state %d %s to %s", st.ID, st.Path, s.path)
	return nil
}

func (s *Store) Close() error {
	return nil
}
