package batcher_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/valpere/vietsub/internal/batcher"
	"github.com/valpere/vietsub/internal/srt"
)

// seq builds cues that each last one second and start gap after the previous end.
func seq(n int, gap time.Duration) []srt.Cue {
	cues := make([]srt.Cue, n)
	var start time.Duration
	for i := range cues {
		end := start + time.Second
		cues[i] = srt.NewCue(strconv.Itoa(i+1), start, end, "line "+strconv.Itoa(i+1))
		start = end + gap
	}
	return cues
}

func TestPlan_SingleScene(t *testing.T) {
	batches := batcher.Plan(seq(3, 500*time.Millisecond), batcher.Options{MaxSize: 3})
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if len(batches[0].Cues) != 3 {
		t.Errorf("expected 3 cues, got %d", len(batches[0].Cues))
	}
	if batches[0].Context != nil {
		t.Error("first batch must not carry context")
	}
}

func TestPlan_SceneGapSplits(t *testing.T) {
	batches := batcher.Plan(seq(2, 5*time.Second), batcher.Options{MaxSize: 3})
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if len(b.Cues) != 1 {
			t.Errorf("batch %d: expected 1 cue, got %d", i, len(b.Cues))
		}
	}
	if batches[1].Offset != 1 {
		t.Errorf("expected offset 1, got %d", batches[1].Offset)
	}
}

func TestPlan_GapExactlyAtThresholdDoesNotSplit(t *testing.T) {
	batches := batcher.Plan(seq(2, 2*time.Second), batcher.Options{})
	if len(batches) != 1 {
		t.Errorf("a gap equal to the threshold should not split, got %d batches", len(batches))
	}
}

func TestPlan_SizeCap(t *testing.T) {
	batches := batcher.Plan(seq(100, 100*time.Millisecond), batcher.Options{MaxSize: 40})
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	sizes := []int{40, 40, 20}
	for i, b := range batches {
		if len(b.Cues) != sizes[i] {
			t.Errorf("batch %d: expected %d cues, got %d", i, sizes[i], len(b.Cues))
		}
		if b.Index != i {
			t.Errorf("batch %d: unexpected index %d", i, b.Index)
		}
	}
}

func TestPlan_ContextTail(t *testing.T) {
	batches := batcher.Plan(seq(10, 0), batcher.Options{MaxSize: 4})
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	ctx := batches[1].Context
	if len(ctx) != 3 {
		t.Fatalf("expected 3 context cues, got %d", len(ctx))
	}
	if ctx[0].ID != "2" || ctx[2].ID != "4" {
		t.Errorf("unexpected context ids %s..%s", ctx[0].ID, ctx[2].ID)
	}
	if none := batcher.Plan(seq(10, 0), batcher.Options{MaxSize: 4, ContextSize: -1}); none[1].Context != nil {
		t.Error("negative ContextSize should disable context")
	}
}

func TestPlan_MalformedTimingNeverSplits(t *testing.T) {
	cues := seq(3, 10*time.Second)
	cues[1].TimingValid = false
	batches := batcher.Plan(cues, batcher.Options{})
	// cue 2 is malformed: no split before it, and no split after it either
	// because its end time is unknown.
	if len(batches) != 1 {
		t.Errorf("expected 1 batch, got %d", len(batches))
	}
}

func TestPlan_NeverEmptyAndPreservesOrder(t *testing.T) {
	cues := seq(57, 3*time.Second)
	for i := range cues {
		if i%5 == 0 {
			// pull every fifth cue close to its predecessor
			cues[i].Start = cues[i].Start - 2500*time.Millisecond
		}
	}
	batches := batcher.Plan(cues, batcher.Options{MaxSize: 7})
	flat := batcher.Flatten(batches)
	if len(flat) != len(cues) {
		t.Fatalf("expected %d cues after flatten, got %d", len(cues), len(flat))
	}
	for i := range flat {
		if flat[i].ID != cues[i].ID {
			t.Fatalf("order changed at %d: %s != %s", i, flat[i].ID, cues[i].ID)
		}
	}
	for i, b := range batches {
		if len(b.Cues) == 0 {
			t.Errorf("batch %d is empty", i)
		}
		for j := 1; j < len(b.Cues); j++ {
			if b.Cues[j].Start-b.Cues[j-1].End > batcher.DefaultSceneGap {
				t.Errorf("batch %d merges cues across a scene gap at %d", i, j)
			}
		}
	}
}

func TestPlan_Empty(t *testing.T) {
	if got := batcher.Plan(nil, batcher.Options{}); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestTexts(t *testing.T) {
	b := batcher.Plan(seq(2, 0), batcher.Options{})[0]
	texts := b.Texts()
	if len(texts) != 2 || texts[1] != "line 2" {
		t.Errorf("unexpected texts %v", texts)
	}
}
