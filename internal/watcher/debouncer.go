package watcher

import (
	"os"
	"sync"
	"time"
)

// debounceEntry tracks a pending debounced event.
type debounceEntry struct {
	timer *time.Timer
	path  string
}

// Debouncer coalesces rapid file change events for a single session record,
// waiting for a quiet period before firing the callback.
type Debouncer struct {
	mu             sync.Mutex
	pending        map[string]*debounceEntry // keyed by session id
	pendingDeletes map[string]*debounceEntry
	interval       time.Duration
	deleteInterval time.Duration // shorter interval for delete verification
	callback       func(sessionID, path string)
	deleteCallback func(sessionID string)
	stopped        bool
}

// NewDebouncer creates a debouncer with the given interval in milliseconds.
func NewDebouncer(intervalMs int, callback func(sessionID, path string)) *Debouncer {
	return &Debouncer{
		pending:        make(map[string]*debounceEntry),
		pendingDeletes: make(map[string]*debounceEntry),
		interval:       time.Duration(intervalMs) * time.Millisecond,
		deleteInterval: 100 * time.Millisecond, // short delay to catch rename scenarios
		callback:       callback,
	}
}

// SetDeleteCallback sets the callback for verified delete events.
func (d *Debouncer) SetDeleteCallback(callback func(sessionID string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleteCallback = callback
}

// Trigger registers a file change event for debouncing. If an event for the
// same session is already pending, its timer is reset.
func (d *Debouncer) Trigger(sessionID, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if entry, exists := d.pending[sessionID]; exists {
		entry.timer.Stop()
		entry.path = path
		entry.timer = time.AfterFunc(d.interval, func() { d.fire(sessionID) })
		return
	}

	d.pending[sessionID] = &debounceEntry{
		path:  path,
		timer: time.AfterFunc(d.interval, func() { d.fire(sessionID) }),
	}
}

func (d *Debouncer) fire(sessionID string) {
	d.mu.Lock()
	entry, exists := d.pending[sessionID]
	if !exists || d.stopped {
		d.mu.Unlock()
		return
	}
	path := entry.path
	delete(d.pending, sessionID)
	d.mu.Unlock()

	d.callback(sessionID, path)
}

// TriggerDelete schedules a delete verification for a session. After the
// delay, it verifies the record file is actually gone before firing — this
// absorbs false positives from atomic-rename writes, which look like a
// remove followed immediately by a create.
func (d *Debouncer) TriggerDelete(sessionID, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if entry, exists := d.pendingDeletes[sessionID]; exists {
		entry.timer.Stop()
		entry.path = path
		entry.timer = time.AfterFunc(d.deleteInterval, func() { d.fireDelete(sessionID) })
		return
	}

	d.pendingDeletes[sessionID] = &debounceEntry{
		path:  path,
		timer: time.AfterFunc(d.deleteInterval, func() { d.fireDelete(sessionID) }),
	}
}

// CancelDelete cancels a pending delete verification, called when a Create
// event arrives for a session that was just reported deleted.
func (d *Debouncer) CancelDelete(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, exists := d.pendingDeletes[sessionID]; exists {
		entry.timer.Stop()
		delete(d.pendingDeletes, sessionID)
	}
}

func (d *Debouncer) fireDelete(sessionID string) {
	d.mu.Lock()
	entry, exists := d.pendingDeletes[sessionID]
	if !exists || d.stopped {
		d.mu.Unlock()
		return
	}
	path := entry.path
	callback := d.deleteCallback
	delete(d.pendingDeletes, sessionID)
	d.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		// Still there — false positive from a rename or atomic save.
		return
	}

	if callback != nil {
		callback(sessionID)
	}
}

// Stop cancels all pending timers and prevents new events.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true

	for id, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, id)
	}
	for id, entry := range d.pendingDeletes {
		entry.timer.Stop()
		delete(d.pendingDeletes, id)
	}
}

// PendingCount returns the number of pending debounced events, for tests.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
