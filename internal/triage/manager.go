package triage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"triage-backend/internal/shared/metrics"
	"triage-backend/internal/shared/telemetry"
)

// Manager owns the live sessions of the process.
type Manager struct {
	cfg     Config
	idleTTL time.Duration
	newID   func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a Manager. Sessions idle for longer than idleTTL are evicted
// by EvictIdle; a non-positive idleTTL disables eviction.
func NewManager(cfg Config, idleTTL time.Duration) *Manager {
	return &Manager{
		cfg:      cfg.withDefaults(),
		idleTTL:  idleTTL,
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := NewSession(m.newID(), m.cfg)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	metrics.IncSessionsCreated()
	telemetry.Info("triage.session_created", map[string]any{"session_id": s.ID()})
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close tears down a session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	metrics.IncSessionsClosed()
	return nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes sessions without activity or subscribers for longer than the idle TTL.
func (m *Manager) EvictIdle() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.cfg.Clock.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.Subscribers() > 0 || s.LastActive().After(cutoff) {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		metrics.IncSessionsClosed()
		telemetry.Info("triage.session_evicted", map[string]any{"session_id": s.ID()})
	}
	return len(stale)
}

// Run evicts idle sessions periodically until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context) {
	interval := m.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// CloseAll tears down every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
		metrics.IncSessionsClosed()
	}
}
