package schedule

import (
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualRunsInTimeOrder(t *testing.T) {
	m := NewManual(epoch)
	var got []string
	m.Every(10*time.Second, func() { got = append(got, "tick10") })
	m.Every(15*time.Second, func() { got = append(got, "tick15") })
	m.After(12*time.Second, func() { got = append(got, "once12") })

	m.Advance(30 * time.Second)

	want := []string{"tick10", "once12", "tick15", "tick10", "tick10", "tick15"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order:\n got %v\nwant %v", got, want)
	}
	if !m.Now().Equal(epoch.Add(30 * time.Second)) {
		t.Fatalf("unexpected virtual time %v", m.Now())
	}
	if m.Pending() != 2 {
		t.Fatalf("expected the one-shot to be gone, pending=%d", m.Pending())
	}
}

func TestManualStopCancels(t *testing.T) {
	m := NewManual(epoch)
	var n int
	task := m.Every(time.Second, func() { n++ })
	m.Advance(3 * time.Second)
	task.Stop()
	task.Stop()
	m.Advance(10 * time.Second)
	if n != 3 {
		t.Fatalf("expected 3 ticks before stop, got %d", n)
	}
	if m.Pending() != 0 {
		t.Fatalf("expected nothing pending, got %d", m.Pending())
	}
}

func TestManualCallbackCanRearmAndStop(t *testing.T) {
	m := NewManual(epoch)
	var fired []time.Time
	var expiry Task
	var ticker Task
	ticker = m.Every(5*time.Second, func() {
		if expiry != nil {
			expiry.Stop()
		}
		expiry = m.After(3*time.Second, func() { fired = append(fired, m.Now()) })
		if len(fired) == 1 {
			ticker.Stop()
		}
	})

	m.Advance(20 * time.Second)

	want := []time.Time{epoch.Add(8 * time.Second), epoch.Add(13 * time.Second)}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("unexpected expiries:\n got %v\nwant %v", fired, want)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestLiveEveryOnMockClock(t *testing.T) {
	mock := clock.NewMock()
	s := NewLive(mock)

	var n atomic.Int32
	task := s.Every(time.Second, func() { n.Add(1) })

	mock.Add(time.Second)
	waitFor(t, func() bool { return n.Load() == 1 })
	mock.Add(time.Second)
	waitFor(t, func() bool { return n.Load() == 2 })

	task.Stop()
	task.Stop()
	mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := n.Load(); got != 2 {
		t.Fatalf("expected no ticks after stop, got %d", got)
	}
}

func TestLiveAfterOnMockClock(t *testing.T) {
	mock := clock.NewMock()
	s := NewLive(mock)

	var fired atomic.Bool
	s.After(3*time.Second, func() { fired.Store(true) })
	mock.Add(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("fired too early")
	}
	mock.Add(time.Second)
	waitFor(t, fired.Load)

	var stopped atomic.Bool
	task := s.After(time.Second, func() { stopped.Store(true) })
	task.Stop()
	mock.Add(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if stopped.Load() {
		t.Fatalf("stopped timer fired")
	}
}
