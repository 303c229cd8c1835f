package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"glowstudio/internal/domain"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 2 * time.Hour

// Manager keeps the live sessions of the process.
type Manager struct {
	deps Deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager builds a manager whose sessions share deps.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[string]*Controller),
	}
}

// Create starts a new idle session.
func (m *Manager) Create(locale string) *Controller {
	c := NewController(uuid.NewString(), locale, m.deps)
	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()
	m.deps.Logger.Info().Str("session_id", c.ID()).Str("locale", c.Locale()).Msg("session created")
	return c
}

// Get looks up a session and counts as an access for expiry.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	c.Touch()
	return c, nil
}

// Delete removes a session and closes its subscribers.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	c.Close()
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions not accessed for longer than the TTL. A session that
// is generating or streaming events is kept.
func (m *Manager) Sweep() int {
	cutoff := m.deps.Now().Add(-m.ttl)
	m.mu.Lock()
	var expired []*Controller
	for id, c := range m.sessions {
		if c.idleBefore(cutoff) {
			expired = append(expired, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		m.deps.Logger.Info().Int("expired", len(expired)).Msg("sessions swept")
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll drops every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()
	for _, c := range sessions {
		c.Close()
	}
}
