package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/session"
)

// testPublisher captures published events for assertions (thread-safe).
type testPublisher struct {
	mu  sync.Mutex
	evs []events.Event
}

func (p *testPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, event)
}

func (p *testPublisher) Subscribe(sessionID string) <-chan events.Event { return make(chan events.Event) }
func (p *testPublisher) Unsubscribe(sessionID string, ch <-chan events.Event) {}
func (p *testPublisher) Close()                                               {}

func (p *testPublisher) snapshot() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.evs))
	copy(out, p.evs)
	return out
}

func TestNew_RequiresPublisherAndStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{SessionsDir: t.TempDir()})
	assert.Error(t, err, "missing publisher")

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	_, err = New(&Config{SessionsDir: t.TempDir(), Store: store})
	assert.Error(t, err, "missing publisher")

	_, err = New(&Config{SessionsDir: t.TempDir(), Publisher: &testPublisher{}})
	assert.Error(t, err, "missing store")
}

func TestWatcher_PublishesAddOnNewRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := session.NewStore(dir)
	require.NoError(t, err)
	pub := &testPublisher{}

	w, err := New(&Config{SessionsDir: dir, Store: store, Publisher: pub, DebounceMs: 30})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, store.Save(&session.Record{ID: "42", Issue: session.Issue{Number: 42}, Status: session.StatusWorking}))

	require.Eventually(t, func() bool {
		for _, e := range pub.snapshot() {
			if e.Type == events.EventSessionAdd && e.SessionID == "42" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_PublishesRemoveOnDeletedRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := session.NewStore(dir)
	require.NoError(t, err)
	pub := &testPublisher{}

	require.NoError(t, store.Save(&session.Record{ID: "7", Issue: session.Issue{Number: 7}, Status: session.StatusWorking}))

	w, err := New(&Config{SessionsDir: dir, Store: store, Publisher: pub, DebounceMs: 20})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, store.Delete("7"))

	require.Eventually(t, func() bool {
		for _, e := range pub.snapshot() {
			if e.Type == events.EventSessionRemove && e.SessionID == "7" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresNonRecordFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := session.NewStore(dir)
	require.NoError(t, err)
	pub := &testPublisher{}

	w, err := New(&Config{SessionsDir: dir, Store: store, Publisher: pub, DebounceMs: 20})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, pub.snapshot())
}
