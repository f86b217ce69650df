package cmd

import (
	"context"
	"testing"

	"github.com/valpere/vietsub/internal"
	"github.com/valpere/vietsub/internal/session"
)

func TestApplySession(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore(0)
	saved := session.New("user-1")
	saved.Instruction, saved.Preset = "Keep honorifics.", "anime"
	if err := sessions.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	job := internal.Job{UserID: "user-1"}
	sess, err := applySession(ctx, sessions, &job)
	if err != nil || sess == nil {
		t.Fatalf("applySession failed: sess=%v err=%v", sess, err)
	}
	if job.Instruction != "Keep honorifics." || job.Preset != "anime" {
		t.Errorf("session not applied to job: %+v", job)
	}

	explicit := internal.Job{UserID: "user-1", Preset: "movie"}
	if _, err := applySession(ctx, sessions, &explicit); err != nil {
		t.Fatalf("applySession failed: %v", err)
	}
	if explicit.Preset != "movie" || explicit.Instruction != "" {
		t.Errorf("explicit job settings must win, got %+v", explicit)
	}

	anonymous := internal.Job{}
	if sess, err := applySession(ctx, sessions, &anonymous); sess != nil || err != nil {
		t.Errorf("expected no session for a job without user, got %v %v", sess, err)
	}
}
