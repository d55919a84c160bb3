// Package spawner implements the worker spawner and process tracker
// (components D/E): platform process launch plus periodic liveness
// polling of tracked process IDs.
package spawner

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultPollInterval is how often the tracker checks tracked PIDs.
const DefaultPollInterval = 2 * time.Second

// Tracker polls a set of tracked process IDs for liveness without sending
// them a real signal, and calls onExit once per id the first time it
// observes the process gone.
type Tracker struct {
	mu       sync.Mutex
	tracked  map[string]int // spawnID -> pid
	interval time.Duration
	onExit   func(spawnID string)

	isAlive func(pid int) bool
}

// NewTracker returns a Tracker polling at interval (DefaultPollInterval if
// zero or negative) and invoking onExit when a tracked process disappears.
func NewTracker(interval time.Duration, onExit func(spawnID string)) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tracker{
		tracked:  make(map[string]int),
		interval: interval,
		onExit:   onExit,
		isAlive:  IsPIDAlive,
	}
}

// Track begins polling pid under spawnID.
func (t *Tracker) Track(spawnID string, pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked[spawnID] = pid
}

// Untrack stops polling spawnID without firing onExit, used when the
// caller already knows the outcome (e.g. an explicit Stop).
func (t *Tracker) Untrack(spawnID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tracked, spawnID)
}

// PID returns the tracked process id for spawnID, if any.
func (t *Tracker) PID(spawnID string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pid, ok := t.tracked[spawnID]
	return pid, ok
}

// Run polls tracked PIDs until ctx is cancelled. Intended to run for the
// lifetime of the orchestrator process, one Tracker shared across sessions.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce()
		}
	}
}

func (t *Tracker) pollOnce() {
	t.mu.Lock()
	snapshot := make(map[string]int, len(t.tracked))
	for id, pid := range t.tracked {
		snapshot[id] = pid
	}
	t.mu.Unlock()

	for id, pid := range snapshot {
		if t.isAlive(pid) {
			continue
		}
		t.mu.Lock()
		if _, stillTracked := t.tracked[id]; stillTracked {
			delete(t.tracked, id)
		} else {
			t.mu.Unlock()
			continue
		}
		t.mu.Unlock()

		if t.onExit != nil {
			t.onExit(id)
		}
	}
}

// IsPIDAlive reports whether a process with the given PID exists, without
// disturbing it: a zero-signal probe on Unix, OpenProcess on Windows (see
// process_unix.go / process_windows.go).
func IsPIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return isProcessAlive(process)
}
