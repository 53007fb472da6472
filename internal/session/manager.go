package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-weather/internal/events"
	"github.com/joeblew999/plat-weather/internal/panel"
	"github.com/joeblew999/plat-weather/internal/widget"
)

var ErrNotFound = errors.New("session not found")

// ManagerConfig holds what every session shares.
type ManagerConfig struct {
	Backend  Backend
	Recorder Recorder
	Logger   *zap.Logger
	// ClickAction returns the delegated click expression for a session's
	// panel. Empty means the panel is rendered without a handler.
	ClickAction func(sessionID string) string
}

// Manager tracks the live sessions of the server.
type Manager struct {
	cfg ManagerConfig
	log *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
	created  map[string]time.Time
	streams  map[string]int
	pending  map[string]*time.Timer
}

// NewManager creates an empty session manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		log:      cfg.Logger,
		sessions: make(map[string]*Controller),
		created:  make(map[string]time.Time),
		streams:  make(map[string]int),
		pending:  make(map[string]*time.Timer),
	}
}

// Create starts a new Uninitialized session with a fresh ID.
func (m *Manager) Create() (*Controller, error) {
	id := uuid.NewString()
	click := ""
	if m.cfg.ClickAction != nil {
		click = m.cfg.ClickAction(id)
	}
	bus := events.NewBus()
	c, err := NewController(Config{
		ID:       id,
		Backend:  m.cfg.Backend,
		NewMap:   widget.MirrorFactory(bus),
		Bus:      bus,
		Builder:  panel.NewBuilder(click),
		Recorder: m.cfg.Recorder,
		Logger:   m.log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = c
	m.created[id] = time.Now()
	n := len(m.sessions)
	m.mu.Unlock()

	m.log.Debug("session created", zap.String("session", id), zap.Int("sessions", n))
	return c, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Attach registers an open browser stream for a session and cancels a
// pending disposal.
func (m *Manager) Attach(id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.streams[id]++
	if t, ok := m.pending[id]; ok {
		t.Stop()
		delete(m.pending, id)
		m.log.Debug("stream reattached", zap.String("session", id))
	}
	return c, nil
}

// Detach releases a stream taken with Attach. When the last stream of a
// session goes away the session is disposed after grace, unless a new stream
// attaches first. A grace of zero disposes at once.
func (m *Manager) Detach(id string, grace time.Duration) {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return
	}
	if m.streams[id]--; m.streams[id] > 0 {
		m.mu.Unlock()
		return
	}
	if grace <= 0 {
		m.mu.Unlock()
		m.Dispose(id)
		return
	}
	if t, ok := m.pending[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(grace, func() {
		m.mu.Lock()
		if m.pending[id] != t {
			m.mu.Unlock()
			return
		}
		delete(m.pending, id)
		m.mu.Unlock()
		m.Dispose(id)
	})
	m.pending[id] = t
	m.mu.Unlock()
}

// Dispose ends a session and forgets it. Unknown IDs are ignored.
func (m *Manager) Dispose(id string) {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	delete(m.created, id)
	delete(m.streams, id)
	if t, ok := m.pending[id]; ok {
		t.Stop()
		delete(m.pending, id)
	}
	m.mu.Unlock()
	if ok {
		c.Dispose()
	}
}

// Sweep disposes sessions whose page never opened its stream within maxAge.
func (m *Manager) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var stale []string
	m.mu.RLock()
	for id, c := range m.sessions {
		if !m.created[id].After(cutoff) && c.State() == Uninitialized {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.Dispose(id)
	}
	if len(stale) > 0 {
		m.log.Debug("swept idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close disposes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	for _, t := range m.pending {
		t.Stop()
	}
	m.sessions = make(map[string]*Controller)
	m.created = make(map[string]time.Time)
	m.streams = make(map[string]int)
	m.pending = make(map[string]*time.Timer)
	m.mu.Unlock()
	for _, c := range all {
		c.Dispose()
	}
}
