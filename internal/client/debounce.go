package client

import (
	"sync"
	"time"
)

// DefaultDebounce is the search quiescence window: the search fires only
// after this much typing silence.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays an action until a quiescence window of no further
// triggers has elapsed. A new trigger inside the window cancels the pending
// fire entirely (it does not queue) and restarts the timer, so at most one
// effective fire happens per window.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	fn     func(query string)
}

// NewDebouncer creates a Debouncer that calls fn with the most recent query
// once the window elapses without another Trigger. A non-positive window
// falls back to DefaultDebounce.
func NewDebouncer(window time.Duration, fn func(query string)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, fn: fn}
}

// Trigger records a new input value, cancelling any pending fire and
// restarting the quiescence window.
func (d *Debouncer) Trigger(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.fn(query)
	})
}

// Stop cancels any pending fire, e.g. when the view unmounts.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
