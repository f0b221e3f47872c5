package popup

import "time"

// CancelFunc cancels a scheduled display. Safe to call after the task has
// fired or been cancelled already.
type CancelFunc func()

// Scheduler arms one-shot timers. The gate holds no time source of its own;
// tests inject a manual scheduler and fire it deterministically.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler schedules on the runtime timer heap via time.AfterFunc.
type TimerScheduler struct{}

// Schedule runs fn after d unless the returned CancelFunc is called first.
func (TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
