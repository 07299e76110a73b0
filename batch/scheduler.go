package batch

import "time"

// Timer is a handle to a scheduled task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the task was stopped before it ran.
	Stop() bool
}

// Scheduler runs a task once after a delay. Implementations may run fn before
// Schedule returns.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Timer
}

// timerScheduler schedules tasks with the runtime timer.
type timerScheduler struct{}

func (timerScheduler) Schedule(delay time.Duration, fn func()) Timer {
	return time.AfterFunc(delay, fn)
}
