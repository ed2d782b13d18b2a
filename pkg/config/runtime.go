package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/fs"
	"github.com/marmos91/dittocloud/pkg/schedule"
	"github.com/marmos91/dittocloud/pkg/state"
	"github.com/marmos91/dittocloud/pkg/transfer"
	"github.com/spf13/afero"
)

// Runtime is every component a command needs, built from one Config.
type Runtime struct {
	Config  *Config
	Remote  *Remote
	Cache   *cache.Cache
	State   state.Store
	Session *fs.Session
	Gate    *schedule.Gate
	Engine  *transfer.Engine
	Metrics *MetricsResult

	stopMetrics context.CancelFunc
	metricsDone chan error
}

// InitializeRuntime creates a fully wired Runtime from the provided configuration.
//
// This function orchestrates the complete initialization process:
//  1. Creates metrics collectors and starts the metrics server if enabled
//  2. Opens the remote backend behind the rate limiter
//  3. Opens the state store and restores the session's current directory
//  4. Builds the scheduler gate, content transport and transfer engine
//
// On error everything opened so far is released.
func InitializeRuntime(ctx context.Context, cfg *Config) (_ *Runtime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	logger.Debug("Initializing runtime from configuration")

	rt := &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	rt.Metrics = InitializeMetrics(cfg)
	if rt.Metrics.Server != nil {
		mctx, cancel := context.WithCancel(context.Background())
		rt.stopMetrics = cancel
		rt.metricsDone = make(chan error, 1)
		go func() { rt.metricsDone <- rt.Metrics.Server.Start(mctx) }()
	}

	rt.Remote, err = CreateRemote(ctx, &cfg.Remote, rt.Metrics.Remote)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote: %w", err)
	}

	rt.Cache = cache.New(rt.Remote.Service, cache.Config{PathIndex: cfg.Cache.PathIndex}, rt.Metrics.Cache)

	rt.State, err = CreateStateStore(ctx, &cfg.State)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	rt.Session, err = fs.NewSession(ctx, rt.Cache, rt.State)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	sched, err := cfg.Schedule.Build()
	if err != nil {
		return nil, err
	}
	rt.Gate = schedule.NewGate(sched, nil)

	rt.Engine = transfer.NewEngine(rt.Session, transfer.Config{
		Transport: transfer.NewHTTPTransport(transfer.HTTPConfig{
			Timeout:   cfg.Transfer.Timeout,
			UserAgent: cfg.Transfer.UserAgent,
		}),
		Gate:    rt.Gate,
		Local:   afero.NewOsFs(),
		Metrics: rt.Metrics.Transfer,
	})

	logger.Debug("Runtime ready: remote=%s state=%s cwd=%s",
		cfg.Remote.Type, cfg.State.Type, rt.Session.Pwd().Path)
	return rt, nil
}

// Close releases the state store, the remote backend (saving its snapshot)
// and the metrics server. Safe to call on a partially built Runtime.
func (r *Runtime) Close() error {
	var result *multierror.Error

	if r.State != nil {
		if err := r.State.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("state store: %w", err))
		}
		r.State = nil
	}
	if r.Remote != nil {
		if err := r.Remote.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("remote: %w", err))
		}
		r.Remote = nil
	}
	if r.stopMetrics != nil {
		r.stopMetrics()
		if err := <-r.metricsDone; err != nil {
			result = multierror.Append(result, err)
		}
		r.stopMetrics = nil
	}

	return result.ErrorOrNil()
}
