// Package poll runs a function on a fixed interval until the returned
// Schedule is cancelled.
package poll

import (
	"sync"
	"time"
)

// Ticker is the part of *time.Ticker a Schedule needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker for an interval.
type TickerFunc func(time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Schedule is the handle of one recurring task.
type Schedule struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Every calls fn in its own goroutine on each tick. A slow fn never delays the
// next tick. fn is not called immediately; callers do their initial fetch
// themselves. A nil newTicker uses NewTicker.
func Every(interval time.Duration, newTicker TickerFunc, fn func()) *Schedule {
	if newTicker == nil {
		newTicker = NewTicker
	}
	s := &Schedule{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	t := newTicker(interval)

	go func() {
		defer close(s.done)
		defer t.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-t.C():
				// stop may have been closed while a tick was pending
				select {
				case <-s.stop:
					return
				default:
				}
				go fn()
			}
		}
	}()
	return s
}

// Cancel stops the schedule and waits for its loop to exit. After Cancel
// returns no new call of fn is started. Calls already running are left to
// finish. Cancel is safe to call more than once and on a nil Schedule.
func (s *Schedule) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
