package schedule

import (
	"sync"
	"time"
)

// Manual is a virtual-clock scheduler. Nothing fires until Advance is called;
// due callbacks then run synchronously on the caller's goroutine in time
// order, ties broken by registration order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[*manualTask]struct{}
}

type manualTask struct {
	m      *Manual
	next   time.Time
	period time.Duration // zero for one-shot
	seq    uint64
	fn     func()
}

var _ Scheduler = (*Manual)(nil)

// NewManual returns a scheduler whose virtual time starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[*manualTask]struct{})}
}

func (m *Manual) Every(d time.Duration, fn func()) Task {
	if d <= 0 {
		panic("schedule: non-positive period")
	}
	return m.add(d, d, fn)
}

func (m *Manual) After(d time.Duration, fn func()) Task {
	return m.add(d, 0, fn)
}

func (m *Manual) add(delay, period time.Duration, fn func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, next: m.now.Add(delay), period: period, seq: m.seq, fn: fn}
	m.tasks[t] = struct{}{}
	return t
}

func (t *manualTask) Stop() {
	t.m.mu.Lock()
	delete(t.m.tasks, t)
	t.m.mu.Unlock()
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending reports how many tasks are armed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves virtual time forward by d, running every callback that
// falls due. Callbacks may arm or stop tasks, including themselves.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		t := m.earliest(target)
		if t == nil {
			break
		}
		m.now = t.next
		if t.period > 0 {
			t.next = t.next.Add(t.period)
		} else {
			delete(m.tasks, t)
		}
		m.mu.Unlock()
		t.fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// earliest returns the next task due at or before target. Caller holds m.mu.
func (m *Manual) earliest(target time.Time) *manualTask {
	var best *manualTask
	for t := range m.tasks {
		if t.next.After(target) {
			continue
		}
		if best == nil || t.next.Before(best.next) || (t.next.Equal(best.next) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}
