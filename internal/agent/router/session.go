package router

import (
	"context"
	"sync"

	"github.com/Finmate-core-poc/server/internal/agent/model"
)

// session pairs per-session state with the mutex that serializes its
// decision cycles. A cycle runs to completion, retries included, before the
// session's next message is accepted; other sessions are unaffected.
type session struct {
	mu    sync.Mutex
	state sessionState
}

// SessionManager owns all live sessions and is the only entry point the
// transport uses.
type SessionManager struct {
	router *Router

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionManager(router *Router) *SessionManager {
	return &SessionManager{
		router:   router,
		sessions: make(map[string]*session),
	}
}

func (m *SessionManager) get(sessionID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{}
		m.sessions[sessionID] = s
	}
	return s
}

// HandleMessage runs one decision cycle for the session, blocking any
// concurrent message on the same session until the cycle finishes.
func (m *SessionManager) HandleMessage(ctx context.Context, sessionID string, text string, emit model.Emitter) error {
	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.router.handleMessage(ctx, sessionID, &s.state, text, emit)
}

// Reset drops the session's in-flight state and stored conversation.
func (m *SessionManager) Reset(ctx context.Context, sessionID string) error {
	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sessionState{}
	return m.router.manager.Reset(ctx, sessionID)
}

// Drop removes the session entirely, after the connection goes away.
func (m *SessionManager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
