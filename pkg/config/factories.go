package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/internal/ratelimiter"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/marmos91/dittocloud/pkg/remote/memory"
	"github.com/marmos91/dittocloud/pkg/state"
	statebadger "github.com/marmos91/dittocloud/pkg/state/badger"
	statefile "github.com/marmos91/dittocloud/pkg/state/file"
	statememory "github.com/marmos91/dittocloud/pkg/state/memory"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
)

// ============================================================================
// State stores
// ============================================================================

// CreateStateStore creates the current-directory store selected by cfg.Type,
// decoding the matching type-specific section.
//
// Supported types:
//   - "file": a YAML document (pkg/state/file)
//   - "badger": an embedded BadgerDB (pkg/state/badger)
//   - "memory": nothing persisted (pkg/state/memory)
func CreateStateStore(ctx context.Context, cfg *StateConfig) (state.Store, error) {
	switch cfg.Type {
	case "file":
		return createFileStateStore(cfg.File)
	case "badger":
		return createBadgerStateStore(ctx, cfg.Badger)
	case "memory":
		return statememory.New(), nil
	default:
		return nil, fmt.Errorf("unknown state store type: %q", cfg.Type)
	}
}

func createFileStateStore(options map[string]any) (state.Store, error) {
	var storeCfg statefile.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file state store config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("file state store: path is required")
	}
	return statefile.New(afero.NewOsFs(), storeCfg.Path), nil
}

func createBadgerStateStore(ctx context.Context, options map[string]any) (state.Store, error) {
	var storeCfg statebadger.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger state store config: %w", err)
	}
	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger state store: db_path is required")
	}

	store, err := statebadger.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger state store: %w", err)
	}
	return store, nil
}

// ============================================================================
// Remote backends
// ============================================================================

// MemoryRemoteConfig is the remote.memory section.
type MemoryRemoteConfig struct {
	memory.Config `mapstructure:",squash"`

	// Snapshot is the YAML file the tree is loaded from and saved to, so
	// that successive invocations see the same remote. Empty keeps the tree
	// in memory only.
	Snapshot string `mapstructure:"snapshot"`
}

func decodeMemoryRemote(options map[string]any) (*MemoryRemoteConfig, error) {
	var mc MemoryRemoteConfig
	if err := mapstructure.Decode(options, &mc); err != nil {
		return nil, fmt.Errorf("failed to decode memory remote config: %w", err)
	}
	return &mc, nil
}

// Remote is an opened remote backend. Close releases it.
type Remote struct {
	// Service is the backend wrapped in the rate-limited decorator
	Service remote.Service

	closers []func() error
}

// Close releases the backend's resources in reverse order of acquisition.
func (r *Remote) Close() error {
	var result *multierror.Error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	r.closers = nil
	return result.ErrorOrNil()
}

// CreateRemote opens the backend selected by cfg.Type and wraps it in
// remote.RateLimited with cfg.RateLimit pacing. metrics may be nil.
//
// Supported types:
//   - "memory": the in-memory emulator with its content endpoint served on
//     a loopback listener (pkg/remote/memory)
func CreateRemote(ctx context.Context, cfg *RemoteConfig, metrics remote.Metrics) (*Remote, error) {
	var (
		r   *Remote
		err error
	)
	switch cfg.Type {
	case "memory":
		r, err = createMemoryRemote(ctx, cfg.Memory)
	default:
		return nil, fmt.Errorf("unknown remote type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	var limiter *ratelimiter.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = ratelimiter.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		logger.Debug("Remote calls limited to %d/s (burst %d)",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	r.Service = remote.NewRateLimited(r.Service, limiter, metrics)
	return r, nil
}

func createMemoryRemote(ctx context.Context, options map[string]any) (*Remote, error) {
	mc, err := decodeMemoryRemote(options)
	if err != nil {
		return nil, err
	}

	osFs := afero.NewOsFs()
	restore := false
	if mc.Snapshot != "" {
		if ok, err := afero.Exists(osFs, mc.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to stat snapshot %s: %w", mc.Snapshot, err)
		} else if ok {
			restore = true
			mc.Seed = false
		}
	}

	svc := memory.New(mc.Config)
	if restore {
		if err := loadSnapshot(osFs, svc, mc.Snapshot); err != nil {
			return nil, err
		}
		logger.Debug("Loaded memory remote from %s", mc.Snapshot)
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for memory content endpoint: %w", err)
	}
	srv := &http.Server{
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Memory content endpoint failed: %v", err)
		}
	}()
	svc.SetBaseURL("http://" + ln.Addr().String())
	logger.Debug("Memory content endpoint at http://%s", ln.Addr())

	r := &Remote{Service: svc}
	r.closers = append(r.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if mc.Snapshot != "" {
		r.closers = append(r.closers, func() error {
			return saveSnapshot(osFs, svc, mc.Snapshot)
		})
	}
	return r, nil
}

func loadSnapshot(fsys afero.Fs, svc *memory.Service, path string) error {
	f, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := svc.Load(f); err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", path, err)
	}
	return nil
}

// saveSnapshot replaces path atomically with the service's current tree.
func saveSnapshot(fsys afero.Fs, svc *memory.Service, path string) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if err := svc.Save(tmp); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot %s: %w", path, err)
	}
	logger.Debug("Saved memory remote to %s", path)
	return nil
}
