package session

import (
	"sync"
	"time"
)

// IdleWatchdog calls onIdle once timeout elapses without a Reset. A
// non-positive timeout disables it.
type IdleWatchdog struct {
	timeout time.Duration
	onIdle  func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewIdleWatchdog(timeout time.Duration, onIdle func()) *IdleWatchdog {
	return &IdleWatchdog{timeout: timeout, onIdle: onIdle}
}

// Reset (re)arms the watchdog. Any pending expiry is cancelled.
func (w *IdleWatchdog) Reset() {
	if w.timeout <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	gen := w.gen
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
}

func (w *IdleWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *IdleWatchdog) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timer != nil
}

// fire ignores expiries from timers that were replaced or stopped after they
// had already been scheduled to run.
func (w *IdleWatchdog) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	w.onIdle()
}
