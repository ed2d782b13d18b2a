// Package metrics exposes what a dittocloud command is doing to the remote
// service while it runs: call rates and latencies, throttling, cache
// effectiveness and transfer progress.
//
// Collection is off unless the config enables it. Until InitRegistry is
// called every constructor returns nil and the remote decorator, the item
// cache and the transfer engine fall back to their no-op Metrics:
//
//	metrics.InitRegistry()
//	svc := remote.NewRateLimited(backend, limiter, metrics.NewRemoteMetrics())
//	c := cache.New(svc, cfg, metrics.NewCacheMetrics())
//	engine := transfer.NewEngine(session, transfer.Config{Metrics: metrics.NewTransferMetrics()})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// built holds the collectors of each component, keyed by component.
	// A process may open several runtimes (tests, embedding); they share
	// one set rather than registering duplicates.
	builtMu sync.Mutex
	built   = map[string]any{}
)

// InitRegistry enables collection. The registry also carries the Go runtime
// and process collectors, which is what tells a slow put (GC, open files)
// from a slow remote. Calling it again is a no-op.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "dittocloud"}),
		)
		registry = reg
	})
}

// GetRegistry returns the registry, or nil while collection is disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// shared returns the collectors registered for component, building and
// registering them on first use.
func shared[T any](component string, build func(prometheus.Registerer) T) T {
	builtMu.Lock()
	defer builtMu.Unlock()

	if m, ok := built[component]; ok {
		return m.(T)
	}
	m := build(GetRegistry())
	built[component] = m
	return m
}
