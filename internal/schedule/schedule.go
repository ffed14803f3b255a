// Package schedule runs periodic and one-shot callbacks. Live drives them
// from a clock.Clock; Manual from a virtual clock advanced by the caller.
package schedule

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Task is a scheduled callback. Stop is idempotent; after it returns the
// callback will not start again.
type Task interface {
	Stop()
}

// Scheduler arms callbacks. Periodic callbacks never overlap themselves.
type Scheduler interface {
	Every(d time.Duration, fn func()) Task
	After(d time.Duration, fn func()) Task
}

// Live schedules on a clock.Clock.
type Live struct {
	clock clock.Clock
}

// NewLive returns a scheduler on clk, or on the wall clock when clk is nil.
func NewLive(clk clock.Clock) *Live {
	if clk == nil {
		clk = clock.New()
	}
	return &Live{clock: clk}
}

type liveTicker struct {
	ticker *clock.Ticker
	done   chan struct{}
	once   sync.Once
}

// Every runs fn on a ticker goroutine. A tick that arrives while fn is still
// running is dropped by the ticker.
func (l *Live) Every(d time.Duration, fn func()) Task {
	t := &liveTicker{ticker: l.clock.Ticker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				select {
				case <-t.done:
					return
				default:
				}
				fn()
			}
		}
	}()
	return t
}

func (t *liveTicker) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

type liveTimer struct {
	timer *clock.Timer
}

// After runs fn once, d from now.
func (l *Live) After(d time.Duration, fn func()) Task {
	return &liveTimer{timer: l.clock.AfterFunc(d, fn)}
}

func (t *liveTimer) Stop() {
	t.timer.Stop()
}
