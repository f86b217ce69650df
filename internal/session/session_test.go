package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.State != StateIdle || s.UserID != "user-1" {
		t.Errorf("expected fresh idle session, got %+v", s)
	}

	s.Instruction = "Keep honorifics."
	s.Preset = "anime"
	s.Jobs++
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Instruction != "Keep honorifics." || got.Preset != "anime" || got.Jobs != 1 {
		t.Errorf("unexpected session %+v", got)
	}

	// Sessions of different users are independent.
	other, _ := store.Get(ctx, "user-2")
	if other.Instruction != "" {
		t.Error("sessions leaked between users")
	}

	if err := store.Reset(ctx, "user-1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if again, _ := store.Get(ctx, "user-1"); again.Instruction != "" {
		t.Error("expected empty session after reset")
	}

	if _, err := store.Get(ctx, " "); !errors.Is(err, ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}
	if err := store.Save(ctx, &Session{}); !errors.Is(err, ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	s, _ := store.Get(ctx, "u")
	s.Preset = "movie"
	_ = store.Save(ctx, s)

	got, _ := store.Get(ctx, "u")
	got.Preset = "changed"
	if again, _ := store.Get(ctx, "u"); again.Preset != "movie" {
		t.Error("mutating a loaded session must not change the store")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s, _ := store.Get(ctx, "u")
	s.Preset = "movie"
	_ = store.Save(ctx, s)

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	if got, _ := store.Get(ctx, "u"); got.Preset != "" {
		t.Error("expected expired session to be replaced")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("VIETSUB_TEST_REDIS")
	if addr == "" {
		t.Skip("VIETSUB_TEST_REDIS not set")
	}
	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}
