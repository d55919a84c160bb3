// Package watcher provides the change-notification pipeline (component C):
// it observes the sessions directory for record writes made by the worker
// process itself (status updates, heartbeats) and by the orchestrator, and
// republishes them as add/update/remove events.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/session"
)

// Config configures the watcher.
type Config struct {
	SessionsDir string
	Store       *session.Store
	Publisher   events.Publisher
	Logger      *slog.Logger
	DebounceMs  int // default 500
}

// Watcher monitors a sessions directory for work-<id>.json changes made by
// the worker or the orchestrator and publishes add/update/remove events.
// Observer errors are logged and swallowed — a bad observation never kills
// the watcher (§7 propagation policy).
type Watcher struct {
	sessionsDir string
	store       *session.Store
	publisher   events.Publisher
	logger      *slog.Logger

	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer

	hashes   map[string]string
	hashesMu sync.RWMutex

	done chan struct{}
}

// New creates a watcher for cfg.SessionsDir.
func New(cfg *Config) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.SessionsDir == "" {
		return nil, fmt.Errorf("sessions dir is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounceMs := cfg.DebounceMs
	if debounceMs <= 0 {
		debounceMs = 500
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		sessionsDir: cfg.SessionsDir,
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		logger:      logger,
		fsWatcher:   fsWatcher,
		hashes:      make(map[string]string),
		done:        make(chan struct{}),
	}

	w.debouncer = NewDebouncer(debounceMs, w.handleDebouncedEvent)
	w.debouncer.SetDeleteCallback(w.publishRemoved)

	return w, nil
}

// Start begins watching the sessions directory. Blocks until ctx is
// cancelled or the fsnotify watcher errors out.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.sessionsDir, 0o755); err != nil {
		return fmt.Errorf("ensure sessions dir: %w", err)
	}
	if err := w.fsWatcher.Add(w.sessionsDir); err != nil {
		return fmt.Errorf("watch sessions dir: %w", err)
	}

	w.logger.Info("change-notification watcher started", "sessionsDir", w.sessionsDir)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", "reason", "context cancelled")
			w.Stop()
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}

// Stop gracefully shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}

	w.debouncer.Stop()

	if err := w.fsWatcher.Close(); err != nil {
		return fmt.Errorf("close fsnotify watcher: %w", err)
	}

	w.logger.Info("watcher stopped")
	return nil
}

// Done returns a channel closed when the watcher stops.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name
	id, ok := session.IDFromFilename(filepath.Base(path))
	if !ok {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.removeHash(path)
		// Verify after a short delay to absorb atomic-rename false
		// positives: a store Save looks like remove-then-create.
		w.debouncer.TriggerDelete(id, path)
		return
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		w.debouncer.CancelDelete(id)
		w.debouncer.Trigger(id, path)
	}
}

func (w *Watcher) handleDebouncedEvent(id, path string) {
	isNew := !w.hasHash(path)

	changed, err := w.hasContentChanged(path)
	if err != nil {
		w.logger.Debug("failed to check content change", "path", path, "error", err)
		return
	}
	if !changed {
		return
	}

	w.publishRecordEvent(id, isNew)
}

func (w *Watcher) publishRecordEvent(id string, isNew bool) {
	record, err := w.store.Load(id)
	if err != nil {
		w.logger.Debug("failed to load session for event", "id", id, "error", err)
		return
	}

	eventType := events.EventSessionUpdate
	if isNew {
		eventType = events.EventSessionAdd
	}

	w.publisher.Publish(events.NewEvent(eventType, id, map[string]any{"session": record}))
}

func (w *Watcher) publishRemoved(id string) {
	w.publisher.Publish(events.NewEvent(events.EventSessionRemove, id, nil))
}

func (w *Watcher) hasContentChanged(path string) (bool, error) {
	newHash, err := w.hashFile(path)
	if err != nil {
		return false, err
	}

	w.hashesMu.Lock()
	defer w.hashesMu.Unlock()

	old, existed := w.hashes[path]
	w.hashes[path] = newHash
	return !existed || old != newHash, nil
}

func (w *Watcher) hasHash(path string) bool {
	w.hashesMu.RLock()
	defer w.hashesMu.RUnlock()
	_, ok := w.hashes[path]
	return ok
}

func (w *Watcher) removeHash(path string) {
	w.hashesMu.Lock()
	defer w.hashesMu.Unlock()
	delete(w.hashes, path)
}

func (w *Watcher) hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
