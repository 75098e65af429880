package compress

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"squeeze/internal/image"
)

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Manager maps browser session tokens to Sessions and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	proc     image.Processor
	maxSize  int64
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(proc image.Processor, maxSize int64, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		proc:     proc,
		maxSize:  maxSize,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session for token and marks it used, or nil if unknown or expired.
func (m *Manager) Get(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.sessions[token]
	if e == nil {
		return nil
	}
	now := m.now()
	if now.Sub(e.lastSeen) > m.ttl {
		delete(m.sessions, token)
		return nil
	}
	e.lastSeen = now
	return e.session
}

func (m *Manager) Create() (string, *Session, error) {
	token, err := newToken()
	if err != nil {
		return "", nil, fmt.Errorf("session token: %w", err)
	}
	s := NewSession(m.proc, m.maxSize)

	m.mu.Lock()
	m.sessions[token] = &entry{session: s, lastSeen: m.now()}
	m.mu.Unlock()

	return token, s, nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
