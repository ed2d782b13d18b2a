// Package schedule restricts transfers to configured times of day.
//
// Each direction ("upload", "download") has a Window. A transfer that
// starts outside its window blocks until the window next opens.
package schedule

import (
	"fmt"
	"time"
)

// Window names used by the transfer engine.
const (
	Upload   = "upload"
	Download = "download"
)

// day is the length of a calendar day ignoring DST transitions.
const day = 24 * time.Hour

// TimeOfDay is an offset from local midnight with second precision.
type TimeOfDay time.Duration

// ParseTimeOfDay parses "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(time.TimeOnly, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (want HH:MM:SS): %w", s, err)
	}
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants. It panics on error.
func MustParseTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// TimeOfDayOf returns the time of day of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()))
}

// String formats as "HH:MM:SS".
func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// On returns the instant of t on the calendar day of ref, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	y, mo, d := ref.Date()
	rest := time.Duration(t)
	h := rest / time.Hour
	rest -= h * time.Hour
	m := rest / time.Minute
	rest -= m * time.Minute
	return time.Date(y, mo, d, int(h), int(m), 0, int(rest), ref.Location())
}

// Window is a daily interval of permitted activity.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewWindow parses a window from two "HH:MM:SS" strings.
func NewWindow(start, end string) (Window, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}

// Contains reports whether tod is inside the window.
//
//	start < end   open on [start, end)
//	start > end   wraps midnight: open everywhere outside [end, start)
//	start == end  always open
func (w Window) Contains(tod TimeOfDay) bool {
	switch {
	case w.Start < w.End:
		return tod >= w.Start && tod < w.End
	case w.Start > w.End:
		return !(tod >= w.End && tod < w.Start)
	default:
		return true
	}
}

// NextStart returns the next occurrence of the window's start after now:
// today's start if still ahead, tomorrow's otherwise.
func (w Window) NextStart(now time.Time) time.Time {
	start := w.Start.On(now)
	if start.After(now) {
		return start
	}
	return w.Start.On(now.AddDate(0, 0, 1))
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Schedule holds the upload and download windows.
type Schedule struct {
	Upload   Window
	Download Window
}

// DefaultSchedule permits transfers between 01:00:00 and 06:00:00 in both
// directions.
func DefaultSchedule() Schedule {
	w := Window{Start: MustParseTimeOfDay("01:00:00"), End: MustParseTimeOfDay("06:00:00")}
	return Schedule{Upload: w, Download: w}
}

// Window returns the named window.
func (s Schedule) Window(name string) (Window, error) {
	switch name {
	case Upload:
		return s.Upload, nil
	case Download:
		return s.Download, nil
	}
	return Window{}, fmt.Errorf("unknown schedule window %q", name)
}
