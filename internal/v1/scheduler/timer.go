// Package scheduler manages the per-room countdown used for word
// selection and drawing turns, generalizing a single idempotent,
// cancellable phase timer into something a room can start, tick, and
// stop without racing itself.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"go.uber.org/zap"
)

// TurnTimer is a cancellable, one-shot deadline with an optional tick
// callback for periodic updates (used to drive word-hint reveals). It
// is safe for concurrent Start/Stop calls; starting a new phase always
// cancels whatever timer preceded it.
type TurnTimer struct {
	roomID string

	mu      sync.Mutex
	cancel  context.CancelFunc
	active  bool
	started time.Time
	dur     time.Duration
	gen     uint64 // incremented by every Start; identifies the current run
}

// New creates a timer scoped to the given room, used only for log
// correlation.
func New(roomID string) *TurnTimer {
	return &TurnTimer{roomID: roomID}
}

// Start begins a new deadline of the given duration, replacing any
// timer already running. onTick fires every interval while the timer
// is active; onExpire fires once, from its own goroutine, when the
// deadline elapses without the timer having been stopped first. Either
// callback may be nil.
func (t *TurnTimer) Start(duration, interval time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	t.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), duration)

	t.mu.Lock()
	t.cancel = cancel
	t.active = true
	t.started = time.Now()
	t.dur = duration
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	go t.run(ctx, gen, interval, onTick, onExpire)
}

func (t *TurnTimer) run(ctx context.Context, gen uint64, interval time.Duration, onTick func(time.Duration), onExpire func()) {
	var ticker *time.Ticker
	var tickC <-chan time.Time
	if interval > 0 && onTick != nil {
		ticker = time.NewTicker(interval)
		tickC = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-tickC:
			onTick(t.Remaining())
		case <-ctx.Done():
			// A run replaced by a later Start must not touch the
			// newer run's state.
			t.mu.Lock()
			current := t.gen == gen
			wasActive := current && t.active
			if current {
				t.active = false
			}
			t.mu.Unlock()

			if wasActive && ctx.Err() == context.DeadlineExceeded && onExpire != nil {
				go onExpire()
			}
			logging.Info(context.Background(), "turn timer stopped",
				zap.String("room_id", t.roomID), zap.Error(ctx.Err()))
			return
		}
	}
}

// Stop cancels any running timer. It is a no-op if nothing is running.
func (t *TurnTimer) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.active = false
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Remaining reports the time left on the current deadline, or zero if
// no timer is running.
func (t *TurnTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return 0
	}
	remaining := t.dur - time.Since(t.started)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Active reports whether a deadline is currently running.
func (t *TurnTimer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
