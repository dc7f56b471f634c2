package watcher

import (
	"sync"
	"time"
)

// debouncer runs one function per key after the key has been quiet for delay.
// Scheduling a key again restarts its timer.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]*time.Timer)}
}

func (d *debouncer) schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if t := d.pending[key]; t != nil {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.pending[key] == t
		if current {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
	d.pending[key] = t
}

// cancel drops the pending call for key, if any.
func (d *debouncer) cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t := d.pending[key]; t != nil {
		t.Stop()
		delete(d.pending, key)
	}
}

// close drops every pending call and rejects new ones.
func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for key, t := range d.pending {
		t.Stop()
		delete(d.pending, key)
	}
}

func (d *debouncer) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
