// Package session keeps explicit per-user state in an injected Store instead
// of process-wide maps. A Session is loaded, modified by the caller and saved
// back; stores never share Session values between callers.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Session states.
const (
	StateIdle        = "idle"
	StateTranslating = "translating"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 24 * time.Hour

// Session is the remembered state of one user.
type Session struct {
	UserID      string    `json:"user_id"`
	State       string    `json:"state"`
	Instruction string    `json:"instruction,omitempty"`
	Preset      string    `json:"preset,omitempty"`
	LastInput   string    `json:"last_input,omitempty"`
	LastOutput  string    `json:"last_output,omitempty"`
	Jobs        int       `json:"jobs"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New returns an idle session for userID.
func New(userID string) *Session {
	return &Session{UserID: userID, State: StateIdle, UpdatedAt: time.Now()}
}

// ErrNoUser is returned for an empty user id.
var ErrNoUser = errors.New("session: empty user id")

// Store persists sessions keyed by user id.
type Store interface {
	// Get returns the stored session, or a fresh idle one when none exists.
	Get(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Reset(ctx context.Context, userID string) error
	Close() error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNoUser
	}
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok || m.now().Sub(s.UpdatedAt) > m.ttl {
		return New(userID), nil
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || strings.TrimSpace(s.UserID) == "" {
		return ErrNoUser
	}
	cp := *s
	cp.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[cp.UserID] = cp
	m.mu.Unlock()
	s.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
