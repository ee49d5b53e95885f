package widget

import (
	"sync"
	"time"
)

// debouncer coalesces rapid triggers per key into a single trailing-edge
// invocation: each trigger restarts the key's timer, and only the function
// from the last trigger runs. Different keys never coalesce with each other.
type debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
	closed bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// trigger schedules fn to run after the quiet window, replacing any pending
// invocation for the same key. fn runs on a timer goroutine.
func (d *debouncer) trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		closed := d.closed
		d.mu.Unlock()
		if !closed {
			fn()
		}
	})
}

// close cancels all pending invocations. Timers that already fired may still
// be running their fn.
func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
