// Package polltest provides manually driven tickers for poll.Schedule tests.
package polltest

import (
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/poll"
)

type Ticker struct {
	Interval time.Duration

	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *Ticker) C() <-chan time.Time { return t.ch }

func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

// Tick delivers one tick and blocks until the schedule loop has taken it. It
// returns false without delivering when the ticker was stopped.
func (t *Ticker) Tick() bool {
	select {
	case <-t.stopped:
		return false
	default:
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	}
}

func (t *Ticker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// Factory hands out a fresh Ticker per schedule and remembers them in order.
type Factory struct {
	mu      sync.Mutex
	tickers []*Ticker
}

func (f *Factory) New(d time.Duration) poll.Ticker {
	t := &Ticker{
		Interval: d,
		ch:       make(chan time.Time),
		stopped:  make(chan struct{}),
	}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Last returns the most recently created ticker, or nil.
func (f *Factory) Last() *Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// All returns every ticker created so far, oldest first.
func (f *Factory) All() []*Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Ticker(nil), f.tickers...)
}
