// Package clock abstracts wall time and timers so that time-driven state
// machines can be tested with virtual time.
package clock

import "time"

// Clock reports the current wall time.
type Clock interface {
	Now() time.Time
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Scheduler arms callbacks against a monotonic time source.
type Scheduler interface {
	Clock
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the real clock backed by package time. time.Now carries a
// monotonic reading, so durations measured with it ignore wall-clock jumps.
type System struct{}

func (System) Now() time.Time { return time.Now() }

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
