package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/vietsub/internal/session"
)

// SessionStore keeps user sessions in the sessions table, so they survive
// between processes sharing the database.
type SessionStore struct {
	store *Store
	owned bool
	ttl   time.Duration
	now   func() time.Time
}

// Sessions returns a session store backed by s. Closing it leaves s open.
func (s *Store) Sessions(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &SessionStore{store: s, ttl: ttl, now: time.Now}
}

// OpenSessionStore opens the database at dbPath for sessions only. Closing
// the returned store closes the database.
func OpenSessionStore(dbPath string, ttl time.Duration) (*SessionStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	ss := s.Sessions(ttl)
	ss.owned = true
	return ss, nil
}

func (ss *SessionStore) Get(ctx context.Context, userID string) (*session.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, session.ErrNoUser
	}

	var data string
	var updated int64
	err := ss.store.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM sessions WHERE user_id = ?`, userID,
	).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return session.New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if ss.now().Sub(time.UnixMilli(updated)) > ss.ttl {
		return session.New(userID), nil
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

func (ss *SessionStore) Save(ctx context.Context, s *session.Session) error {
	if s == nil || strings.TrimSpace(s.UserID) == "" {
		return session.ErrNoUser
	}
	s.UpdatedAt = ss.now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = ss.store.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.UserID, string(data), s.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (ss *SessionStore) Reset(ctx context.Context, userID string) error {
	_, err := ss.store.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (ss *SessionStore) Close() error {
	if ss.owned {
		return ss.store.Close()
	}
	return nil
}
