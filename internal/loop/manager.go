package loop

import (
	"context"
	"sync"
)

// Manager tracks the spawn id currently owned by each session's
// Controller, so a single process tracker onExit callback (shared across
// every session in the orchestrator) can be routed to the right
// Controller.HandleExit.
type Manager struct {
	mu          sync.Mutex
	ctx         context.Context
	controllers map[string]*Controller // sessionID -> controller
	bySpawnID   map[string]string      // spawnID -> sessionID
}

// NewManager returns a Manager that evaluates exits against ctx.
func NewManager(ctx context.Context) *Manager {
	return &Manager{
		ctx:         ctx,
		controllers: make(map[string]*Controller),
		bySpawnID:   make(map[string]string),
	}
}

// Register associates sessionID's controller with the manager so future
// exits can be routed to it, and records spawnID as its currently tracked
// spawn. Call again after every restart, since spawnID rotates.
func (m *Manager) Register(sessionID string, c *Controller, spawnID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controllers[sessionID] = c
	if spawnID != "" {
		m.bySpawnID[spawnID] = sessionID
	}
}

// Controller returns the registered controller for sessionID, if any.
func (m *Manager) Controller(sessionID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[sessionID]
	return c, ok
}

// Forget removes sessionID's controller and any spawn ids pointing to it,
// called once the loop reaches a terminal state.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.controllers, sessionID)
	for spawnID, sid := range m.bySpawnID {
		if sid == sessionID {
			delete(m.bySpawnID, spawnID)
		}
	}
}

// HandleExit is the function to pass as a spawner.Tracker's onExit
// callback: it looks up which session owns spawnID and dispatches to that
// session's Controller.HandleExit.
func (m *Manager) HandleExit(spawnID string) {
	m.mu.Lock()
	sessionID, ok := m.bySpawnID[spawnID]
	var c *Controller
	if ok {
		c = m.controllers[sessionID]
	}
	if c == nil {
		// The registered spawn id goes stale once a controller restarts its
		// worker, so fall back to the id each controller currently tracks.
		for _, ctl := range m.controllers {
			if id, tracked := ctl.SpawnID(); tracked && id == spawnID {
				c = ctl
				break
			}
		}
	}
	m.mu.Unlock()

	if c == nil {
		return
	}
	c.HandleExit(m.ctx, spawnID)
}
