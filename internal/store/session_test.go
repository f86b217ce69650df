package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/vietsub/internal/session"
)

var _ session.Store = (*SessionStore)(nil)

func TestSessionStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "vietsub.db")

	first, err := OpenSessionStore(path, 0)
	if err != nil {
		t.Fatalf("OpenSessionStore failed: %v", err)
	}
	sess, err := first.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	sess.Instruction = "Keep honorifics."
	sess.Preset = "anime"
	sess.Jobs = 3
	if err := first.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := OpenSessionStore(path, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	got, err := second.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Instruction != "Keep honorifics." || got.Preset != "anime" || got.Jobs != 3 {
		t.Errorf("session lost across processes: %+v", got)
	}

	if other, _ := second.Get(ctx, "user-2"); other.Instruction != "" || other.State != session.StateIdle {
		t.Errorf("expected fresh session for another user, got %+v", other)
	}
}

func TestSessionStore_ResetAndErrors(t *testing.T) {
	ctx := context.Background()
	ss := newTestStore(t).Sessions(0)

	sess := session.New("user-1")
	sess.Preset = "movie"
	if err := ss.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Overwrite keeps one row per user.
	sess.Preset = "series"
	if err := ss.Save(ctx, sess); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if got, _ := ss.Get(ctx, "user-1"); got.Preset != "series" {
		t.Errorf("expected updated preset, got %q", got.Preset)
	}

	if err := ss.Reset(ctx, "user-1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if got, _ := ss.Get(ctx, "user-1"); got.Preset != "" {
		t.Errorf("expected empty session after reset, got %+v", got)
	}

	if _, err := ss.Get(ctx, " "); !errors.Is(err, session.ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}
	if err := ss.Save(ctx, &session.Session{}); !errors.Is(err, session.ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}
	// Closing a borrowed session store leaves the database usable.
	if err := ss.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ss.Save(ctx, session.New("user-3")); err != nil {
		t.Errorf("database closed by borrowed session store: %v", err)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	ss := newTestStore(t).Sessions(time.Hour)
	now := time.Now()
	ss.now = func() time.Time { return now }

	sess := session.New("user-1")
	sess.Instruction = "old"
	if err := ss.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if got, _ := ss.Get(ctx, "user-1"); got.Instruction != "" {
		t.Errorf("expected expired session to be fresh, got %+v", got)
	}
}
