// Package session tracks authenticated user sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	UserTypeAgent    = "User"
	UserTypeCustomer = "Customer"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")
)

// Session is one login.
type Session struct {
	ID         string
	UserLogin  string
	UserType   string
	CreatedAt  time.Time
	LastAccess time.Time
}

// Store persists sessions and answers active-session counts.
type Store interface {
	Create(ctx context.Context, s Session) (string, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	Active(ctx context.Context, userType string, idle time.Duration) (int, error)
}

func prepare(s Session, now time.Time) (Session, error) {
	s.UserLogin = strings.TrimSpace(s.UserLogin)
	if s.UserLogin == "" {
		return Session{}, fmt.Errorf("%w: user login is required", ErrInvalidSession)
	}
	switch s.UserType {
	case "":
		s.UserType = UserTypeAgent
	case UserTypeAgent, UserTypeCustomer:
	default:
		return Session{}, fmt.Errorf("%w: unknown user type %q", ErrInvalidSession, s.UserType)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.LastAccess.IsZero() {
		s.LastAccess = s.CreatedAt
	}
	return s, nil
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, s Session) (string, error) {
	s, err := prepare(s, m.now())
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s.ID, nil
}

func (m *MemoryStore) Touch(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.LastAccess = at
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Active counts sessions of userType whose last access is within idle.
// A zero idle counts every session.
func (m *MemoryStore) Active(_ context.Context, userType string, idle time.Duration) (int, error) {
	cutoff := time.Time{}
	if idle > 0 {
		cutoff = m.now().Add(-idle)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserType == userType && !s.LastAccess.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// List returns all sessions ordered by id.
func (m *MemoryStore) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
