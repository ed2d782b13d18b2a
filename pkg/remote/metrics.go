package remote

import "time"

// Metrics observes calls made to a Service.
//
// Implementations must be safe for concurrent use. A nil Metrics is valid
// everywhere one is accepted and records nothing.
type Metrics interface {
	// ObserveCall records one service call.
	// op is the method name (e.g. "GetChildren"), err its result.
	ObserveCall(op string, duration time.Duration, err error)

	// ObserveThrottle records time spent waiting for the rate limiter.
	ObserveThrottle(duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCall(string, time.Duration, error) {}
func (noopMetrics) ObserveThrottle(time.Duration)            {}
