package search

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultWindow is the quiet period before a typed query is committed.
const DefaultWindow = 500 * time.Millisecond

// Handle identifies one scheduled call. The zero Handle is never issued.
type Handle uint64

// Debouncer runs the most recently scheduled function once the window has
// passed without another Schedule call. Earlier schedules are superseded, so
// a continuous stream of calls never runs an intermediate function.
type Debouncer struct {
	clock  clockwork.Clock
	window time.Duration

	mu      sync.Mutex
	timer   clockwork.Timer
	pending Handle
	last    Handle
	stopped bool
}

// NewDebouncer returns a debouncer on clock. A non-positive window falls
// back to DefaultWindow.
func NewDebouncer(clock clockwork.Clock, window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{clock: clock, window: window}
}

// Window returns the quiet period.
func (d *Debouncer) Window() time.Duration { return d.window }

// Schedule cancels any pending call and schedules fn. After Stop it does
// nothing and returns the zero Handle.
func (d *Debouncer) Schedule(fn func()) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return 0
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.last++
	h := d.last
	d.pending = h
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(h, fn) })
	return h
}

// Cancel drops the call identified by h if it has not run yet.
func (d *Debouncer) Cancel(h Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h == 0 || d.pending != h {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.pending = 0
	return true
}

// Clear drops whatever call is pending without disabling the debouncer.
func (d *Debouncer) Clear() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == 0 {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.pending = 0
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != 0
}

// Stop cancels the pending call and disables the debouncer for good. Call it
// on teardown so nothing fires into a discarded owner.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = 0
}

// fire runs fn only if h is still the pending call. A timer can expire
// concurrently with a newer Schedule; the stale callback loses here.
func (d *Debouncer) fire(h Handle, fn func()) {
	d.mu.Lock()
	if d.stopped || d.pending != h {
		d.mu.Unlock()
		return
	}
	d.pending = 0
	d.timer = nil
	d.mu.Unlock()

	fn()
}
