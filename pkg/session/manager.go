package session

import (
	"context"
	"sync"
)

// Manager enforces the single-active-session rule: one socket, one
// microphone, one playback device at a time. Starting a new session
// fully stops the previous one first.
type Manager struct {
	mu     sync.Mutex
	active *Session
}

func NewManager() *Manager {
	return &Manager{}
}

// Start stops any active session, then starts the given one. The new
// session becomes active only when its start succeeds.
func (m *Manager) Start(ctx context.Context, next *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.Stop()
		m.active = nil
	}
	if err := next.Start(ctx); err != nil {
		return err
	}
	m.active = next
	return nil
}

// Stop tears down the active session, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.Stop()
		m.active = nil
	}
}

// Active returns the running session or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
