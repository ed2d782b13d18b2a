package metrics

import (
	"time"

	"github.com/marmos91/dittocloud/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// transferMetrics is the Prometheus implementation of transfer.Metrics.
type transferMetrics struct {
	filesTotal   *prometheus.CounterVec
	bytesTotal   *prometheus.CounterVec
	fileDuration *prometheus.HistogramVec
	scheduleWait *prometheus.CounterVec
}

// NewTransferMetrics creates a Prometheus-backed transfer.Metrics, or nil
// when metrics are disabled.
func NewTransferMetrics() transfer.Metrics {
	if !IsEnabled() {
		return nil
	}
	return shared("transfer", newTransferMetrics)
}

func newTransferMetrics(reg prometheus.Registerer) *transferMetrics {
	return &transferMetrics{
		filesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocloud_transfer_files_total",
				Help: "Files handled by direction, decision and status",
			},
			[]string{"direction", "decision", "status"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocloud_transfer_bytes_total",
				Help: "Bytes uploaded or downloaded",
			},
			[]string{"direction"},
		),
		fileDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittocloud_transfer_file_duration_seconds",
				Help: "Time to handle one file, including decision making",
				Buckets: []float64{
					0.01, // 10ms
					0.1,  // 100ms
					0.5,  // 500ms
					1,    // 1s
					5,    // 5s
					30,   // 30s
					120,  // 2m
					600,  // 10m
				},
			},
			[]string{"direction"},
		),
		scheduleWait: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocloud_transfer_schedule_wait_seconds_total",
				Help: "Time spent blocked until a transfer window opened",
			},
			[]string{"direction"},
		),
	}
}

func (m *transferMetrics) ObserveFile(direction string, decision transfer.Decision, bytes int64, duration time.Duration, err error) {
	status, _ := outcome(err)
	m.filesTotal.WithLabelValues(direction, decision.String(), status).Inc()
	m.fileDuration.WithLabelValues(direction).Observe(duration.Seconds())
	if err == nil && decision == transfer.Transfer {
		m.bytesTotal.WithLabelValues(direction).Add(float64(bytes))
	}
}

func (m *transferMetrics) ObserveScheduleWait(direction string, duration time.Duration) {
	m.scheduleWait.WithLabelValues(direction).Add(duration.Seconds())
}
