// Package session tracks per-chat state that used to live in global mode
// flags: the selected game difficulty, scoped to one chat and expired after
// inactivity.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/TGEconomyBot/internal/models"
)

// Session is one chat's transient state.
type Session struct {
	ID         string
	ChatID     int64
	Difficulty models.Difficulty // empty until the chat picks a mode
	UpdatedAt  time.Time
}

// Manager owns all live sessions and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[int64]*Session
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		ttl:      ttl,
		sessions: make(map[int64]*Session),
	}
}

// Get returns the chat's session, creating a fresh one if absent or expired.
func (m *Manager) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(chatID, time.Now())
}

func (m *Manager) get(chatID int64, now time.Time) *Session {
	s, ok := m.sessions[chatID]
	if !ok || now.Sub(s.UpdatedAt) > m.ttl {
		s = &Session{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			UpdatedAt: now,
		}
		m.sessions[chatID] = s
	}
	return s
}

// SetDifficulty records the chat's mode selection and refreshes the session.
func (m *Manager) SetDifficulty(chatID int64, d models.Difficulty) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(chatID, time.Now())
	s.Difficulty = d
	s.UpdatedAt = time.Now()
	return s
}

// Touch refreshes the session's expiry without changing its state.
func (m *Manager) Touch(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		s.UpdatedAt = time.Now()
	}
}

// Sweep drops sessions idle longer than the TTL and reports how many.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for chatID, s := range m.sessions {
		if now.Sub(s.UpdatedAt) > m.ttl {
			delete(m.sessions, chatID)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions periodically until the context ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}
