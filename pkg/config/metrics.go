package config

import (
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/metrics"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/marmos91/dittocloud/pkg/transfer"
)

// MetricsResult contains all metrics-related components created from configuration.
//
// Every collector is nil when metrics are disabled; the consuming component
// then uses its no-op implementation.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	Remote   remote.Metrics
	Cache    cache.Metrics
	Transfer transfer.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled it initializes the global Prometheus registry,
// creates the metrics HTTP server and Prometheus-backed collectors.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Host: cfg.Metrics.Host,
			Port: cfg.Metrics.Port,
		}),
		Remote:   metrics.NewRemoteMetrics(),
		Cache:    metrics.NewCacheMetrics(),
		Transfer: metrics.NewTransferMetrics(),
	}
}
