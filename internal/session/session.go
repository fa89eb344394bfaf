// Package session replaces ambient per-user state with an explicit object:
// created at sign-in, handed to whatever opens live subscriptions on the
// user's behalf, and torn down at sign-out, cancelling everything it owns.
package session

import (
	"context"
	"sync"
)

// Session owns the live subscriptions opened during one signed-in period.
type Session struct {
	UserID string

	ctx       context.Context
	cancelCtx context.CancelFunc

	mu      sync.Mutex
	cancels []func()
	closed  bool
}

func newSession(userID string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{UserID: userID, ctx: ctx, cancelCtx: cancel}
}

// Context is cancelled when the session closes; operations started on behalf
// of the session should run under it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Track registers a cancel function to run at teardown. If the session is
// already closed the cancel runs immediately.
func (s *Session) Track(cancel func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
}

// Close cancels every tracked subscription. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	s.cancelCtx()
	for _, cancel := range cancels {
		cancel()
	}
}

// Manager creates and tears down sessions and notifies auth-state observers.
type Manager struct {
	mu       sync.Mutex
	handlers map[int]func(userID string, signedIn bool)
	nextID   int
}

func NewManager() *Manager {
	return &Manager{handlers: make(map[int]func(string, bool))}
}

// SignIn opens a session for the user and notifies observers.
func (m *Manager) SignIn(userID string) *Session {
	s := newSession(userID)
	m.notify(userID, true)
	return s
}

// SignOut closes the session and notifies observers.
func (m *Manager) SignOut(s *Session) {
	s.Close()
	m.notify(s.UserID, false)
}

// OnAuthStateChange registers an observer; the returned function removes it.
func (m *Manager) OnAuthStateChange(handler func(userID string, signedIn bool)) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.handlers[id] = handler
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(userID string, signedIn bool) {
	m.mu.Lock()
	handlers := make([]func(string, bool), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(userID, signedIn)
	}
}
