package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerExpires(t *testing.T) {
	tm := New("room1")
	var fired int32

	tm.Start(30*time.Millisecond, 0, nil, func() {
		atomic.StoreInt32(&fired, 1)
	})

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 {
		t.Error("expected onExpire to fire")
	}
	if tm.Active() {
		t.Error("timer should be inactive after expiry")
	}
}

func TestTimerStopPreventsExpire(t *testing.T) {
	tm := New("room1")
	var fired int32

	tm.Start(50*time.Millisecond, 0, nil, func() {
		atomic.StoreInt32(&fired, 1)
	})
	tm.Stop()

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Error("onExpire should not fire after Stop")
	}
}

func TestTimerRestartCancelsPrevious(t *testing.T) {
	tm := New("room1")
	var firstFired, secondFired int32

	tm.Start(30*time.Millisecond, 0, nil, func() {
		atomic.StoreInt32(&firstFired, 1)
	})
	tm.Start(50*time.Millisecond, 0, nil, func() {
		atomic.StoreInt32(&secondFired, 1)
	})

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&firstFired) != 0 {
		t.Error("first timer should have been cancelled by restart")
	}
	if atomic.LoadInt32(&secondFired) != 1 {
		t.Error("second timer should have fired")
	}
}

func TestTimerTick(t *testing.T) {
	tm := New("room1")
	var ticks int32

	tm.Start(60*time.Millisecond, 15*time.Millisecond, func(remaining time.Duration) {
		atomic.AddInt32(&ticks, 1)
	}, nil)

	time.Sleep(120 * time.Millisecond)
	if atomic.LoadInt32(&ticks) == 0 {
		t.Error("expected at least one tick")
	}
}

func TestRemainingWhenIdle(t *testing.T) {
	tm := New("room1")
	if got := tm.Remaining(); got != 0 {
		t.Errorf("Remaining() on idle timer = %v, want 0", got)
	}
}
