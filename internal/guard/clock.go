package guard

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled interval. Safe to call more than once.
type CancelFunc func()

// Clock abstracts wall time and periodic scheduling so controller tests can
// drive time by hand.
type Clock interface {
	Now() time.Time
	// ScheduleInterval invokes fn every period until the returned CancelFunc
	// is called. fn receives the tick time in UTC.
	ScheduleInterval(period time.Duration, fn func(now time.Time)) CancelFunc
}

type realClock struct{}

// NewClock returns a Clock backed by the system timer.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) ScheduleInterval(period time.Duration, fn func(now time.Time)) CancelFunc {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case now := <-ticker.C:
				fn(now.UTC())
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
