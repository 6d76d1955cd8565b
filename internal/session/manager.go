package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"brokerage-portal/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrTooMany  = errors.New("too many open sessions")
)

// Manager keeps one controller per open search page.
type Manager struct {
	searcher     Searcher
	idleTTL      time.Duration
	fetchTimeout time.Duration
	maxSessions  int
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewManager(searcher Searcher, idleTTL, fetchTimeout time.Duration, maxSessions int) *Manager {
	return &Manager{
		searcher:     searcher,
		idleTTL:      idleTTL,
		fetchTimeout: fetchTimeout,
		maxSessions:  maxSessions,
		now:          time.Now,
		sessions:     make(map[string]*Controller),
	}
}

// Create opens a session for one listing kind.
func (m *Manager) Create(kind models.ListingKind) (string, *Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return "", nil, ErrTooMany
	}

	c := NewController(m.searcher, kind, m.fetchTimeout)
	c.now = m.now
	c.lastUsed = m.now()

	id := uuid.NewString()
	m.sessions[id] = c
	return id, c, nil
}

func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	c.Close()
	return nil
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Controller
	for id, c := range m.sessions {
		if c.idleSince().Before(cutoff) {
			expired = append(expired, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		log.Printf("[Sessions] swept %d idle sessions", len(expired))
	}
	return len(expired)
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
