package transfer

import "time"

// Metrics observes per-file transfers.
//
// Implementations must be safe for concurrent use. Pass nil to NewEngine
// to disable collection.
type Metrics interface {
	// ObserveFile records one file handled in direction (schedule.Upload or
	// schedule.Download). err is nil for successes and skips.
	ObserveFile(direction string, decision Decision, bytes int64, duration time.Duration, err error)

	// ObserveScheduleWait records time spent blocked on the schedule gate.
	ObserveScheduleWait(direction string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveFile(string, Decision, int64, time.Duration, error) {}
func (noopMetrics) ObserveScheduleWait(string, time.Duration)                 {}
