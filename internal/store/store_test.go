package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/vietsub/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(filepath.Join(blocker, "test.db")); err == nil {
		t.Error("expected error when the parent path is a file")
	}
}

func TestStore_BatchMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sources := []string{"Hello.", "How are you?"}
	if _, ok, err := s.LookupBatch(ctx, "gpt-3.5-turbo", "inst", sources); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := s.RememberBatch(ctx, "gpt-3.5-turbo", "inst", sources, []string{"Xin chào.", "Bạn khỏe không?"}); err != nil {
		t.Fatalf("RememberBatch failed: %v", err)
	}

	texts, ok, err := s.LookupBatch(ctx, "GPT-3.5-turbo", "inst", []string{" Hello. ", "How are you?"})
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if texts[1] != "Bạn khỏe không?" {
		t.Errorf("unexpected cached text %q", texts[1])
	}

	if _, ok, _ := s.LookupBatch(ctx, "gpt-3.5-turbo", "other instruction", sources); ok {
		t.Error("a different instruction must miss")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 1 || stats.TotalCues != 2 || stats.TotalUsage != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	entries, err := s.ListMemory(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListMemory: %v, %d entries", err, len(entries))
	}
	if err := s.DeleteMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}
	if _, ok, _ := s.LookupBatch(ctx, "gpt-3.5-turbo", "inst", sources); ok {
		t.Error("expected miss after delete")
	}
}

func TestStore_RememberBatch_LengthMismatch(t *testing.T) {
	s := newTestStore(t)
	if err := s.RememberBatch(context.Background(), "m", "", []string{"a", "b"}, []string{"x"}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestStore_ClearMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, src := range []string{"a", "b", "c"} {
		if err := s.RememberBatch(ctx, "m", "", []string{src}, []string{src + "!"}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.ClearMemory(ctx)
	if err != nil || n != 3 {
		t.Errorf("ClearMemory = %d, %v", n, err)
	}
}

func TestStore_Jobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := internal.JobRecord{
		ID:        "job-1",
		InputPath: "a.srt",
		Status:    internal.StatusSkipped,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	newer := internal.JobRecord{
		ID:            "job-2",
		UserID:        "u1",
		InputPath:     "b.srt",
		OutputPath:    "b.vi.srt",
		Provider:      "openai",
		Model:         "gpt-3.5-turbo",
		Status:        internal.StatusDone,
		Cues:          120,
		Batches:       3,
		FailedBatches: 1,
		InputTokens:   1000,
		OutputTokens:  800,
		CostUSD:       0.0031,
		Duration:      1500 * time.Millisecond,
		CreatedAt:     time.Now(),
	}
	for _, rec := range []internal.JobRecord{older, newer} {
		if err := s.SaveJob(ctx, rec); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	jobs, err := s.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "job-2" {
		t.Fatalf("expected newest first, got %+v", jobs)
	}
	got := jobs[0]
	if got.Cues != 120 || got.FailedBatches != 1 || got.Duration != 1500*time.Millisecond || got.UserID != "u1" {
		t.Errorf("unexpected record %+v", got)
	}

	limited, err := s.ListJobs(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("expected 1 job with limit, got %d (%v)", len(limited), err)
	}
}

func TestStore_Glossary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddGlossaryTerm(ctx, "en", "vi", "Hogwarts", "Hogwarts"); err != nil {
		t.Fatalf("AddGlossaryTerm failed: %v", err)
	}
	if err := s.AddGlossaryTerm(ctx, "", "vi", "Muggle", "Muggle"); err != nil {
		t.Fatalf("AddGlossaryTerm failed: %v", err)
	}
	if err := s.AddGlossaryTerm(ctx, "ja", "vi", "senpai", "tiền bối"); err != nil {
		t.Fatalf("AddGlossaryTerm failed: %v", err)
	}
	if err := s.AddGlossaryTerm(ctx, "en", "vi", " ", "x"); err == nil {
		t.Error("expected error for empty source term")
	}

	terms, err := s.GetGlossaryTerms(ctx, "en", "vi")
	if err != nil {
		t.Fatalf("GetGlossaryTerms failed: %v", err)
	}
	if len(terms) != 2 || terms["Muggle"] != "Muggle" {
		t.Errorf("expected en + any-language terms, got %v", terms)
	}

	all, err := s.GetGlossaryTerms(ctx, "", "vi")
	if err != nil || len(all) != 3 {
		t.Errorf("expected all 3 terms, got %v (%v)", all, err)
	}

	entries, err := s.ListGlossaryTerms(ctx, "ja", "")
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListGlossaryTerms: %v, %d", err, len(entries))
	}
	if err := s.DeleteGlossaryTerm(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteGlossaryTerm failed: %v", err)
	}
	if entries, _ := s.ListGlossaryTerms(ctx, "", ""); len(entries) != 2 {
		t.Errorf("expected 2 entries after delete, got %d", len(entries))
	}
}

func TestBatchKey(t *testing.T) {
	a := BatchKey("m", "i", []string{"ab", "c"})
	b := BatchKey("m", "i", []string{"a", "bc"})
	if a == b {
		t.Error("entry boundaries must be part of the key")
	}
	if BatchKey("m", "i", []string{"\u00e9"}) != BatchKey("m", "i", []string{"e\u0301"}) {
		t.Error("key should be NFC-normalized")
	}
}
