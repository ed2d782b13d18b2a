package schedule

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittocloud/internal/logger"
)

// MinSleep is the remaining gap at which Wait stops sleeping and returns.
const MinSleep = 100 * time.Millisecond

// Clock is the time source of a Gate.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Gate blocks callers until a named window is open.
//
// Waiting cannot be cancelled: a caller that wants out must stop the
// process. The only suspension is Clock.Sleep, called with successively
// halved durations so wake-up drift stays small without busy waiting.
type Gate struct {
	schedule Schedule
	clock    Clock
}

// NewGate creates a gate. A nil clock means the system clock.
func NewGate(s Schedule, clock Clock) *Gate {
	if clock == nil {
		clock = SystemClock
	}
	return &Gate{schedule: s, clock: clock}
}

// Schedule returns the gate's windows.
func (g *Gate) Schedule() Schedule {
	return g.schedule
}

// Open reports whether the named window is open now.
func (g *Gate) Open(name string) (bool, error) {
	w, err := g.schedule.Window(name)
	if err != nil {
		return false, err
	}
	return w.Contains(TimeOfDayOf(g.clock.Now())), nil
}

// Next returns the instant the named window next opens, or now if it is
// open already.
func (g *Gate) Next(name string) (time.Time, error) {
	w, err := g.schedule.Window(name)
	if err != nil {
		return time.Time{}, err
	}
	now := g.clock.Now()
	if w.Contains(TimeOfDayOf(now)) {
		return now, nil
	}
	return w.NextStart(now), nil
}

// Wait returns immediately when the named window is open. Otherwise it
// sleeps until the window's next start, halving the remaining duration on
// every sleep and returning once the remaining gap is at most MinSleep.
func (g *Gate) Wait(name string) error {
	w, err := g.schedule.Window(name)
	if err != nil {
		return err
	}

	now := g.clock.Now()
	if w.Contains(TimeOfDayOf(now)) {
		return nil
	}

	target := w.NextStart(now)
	logger.Info("Outside the %s window (%s), waiting until %s (%s)",
		name, w, target.Format(time.DateTime), humanize.RelTime(now, target, "from now", "ago"))

	for {
		remaining := target.Sub(g.clock.Now())
		if remaining <= MinSleep {
			break
		}
		g.clock.Sleep(remaining / 2)
	}

	logger.Info("The %s window is open", name)
	return nil
}
