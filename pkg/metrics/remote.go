package metrics

import (
	"time"

	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// remoteMetrics is the Prometheus implementation of remote.Metrics.
//
// It collects per-operation call counts and latencies against the remote
// item service, and the time spent waiting on the client-side rate limiter.
type remoteMetrics struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	throttleDelay prometheus.Histogram
}

// NewRemoteMetrics creates a Prometheus-backed remote.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes remote.NewRateLimited use its no-op implementation.
func NewRemoteMetrics() remote.Metrics {
	if !IsEnabled() {
		return nil
	}
	return shared("remote", newRemoteMetrics)
}

func newRemoteMetrics(reg prometheus.Registerer) *remoteMetrics {
	return &remoteMetrics{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocloud_remote_calls_total",
				Help: "Total number of remote item service calls by operation and outcome",
			},
			[]string{"operation", "status", "error_code"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittocloud_remote_call_duration_seconds",
				Help: "Duration of remote item service calls in seconds",
				Buckets: []float64{
					0.01, // 10ms
					0.05, // 50ms
					0.1,  // 100ms
					0.25, // 250ms
					0.5,  // 500ms
					1.0,  // 1s
					2.5,  // 2.5s
					5.0,  // 5s
					10.0, // 10s
				},
			},
			[]string{"operation"},
		),
		throttleDelay: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittocloud_remote_throttle_seconds",
				Help:    "Time spent waiting for the client-side rate limiter",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
			},
		),
	}
}

func (m *remoteMetrics) ObserveCall(op string, duration time.Duration, err error) {
	status, code := outcome(err)
	m.callsTotal.WithLabelValues(op, status, code).Inc()
	m.callDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *remoteMetrics) ObserveThrottle(duration time.Duration) {
	m.throttleDelay.Observe(duration.Seconds())
}

// outcome maps an error to the status and error_code label values.
func outcome(err error) (status, code string) {
	if err == nil {
		return "success", ""
	}
	if c, ok := remote.CodeOf(err); ok {
		return "error", c.String()
	}
	return "error", "unknown"
}
