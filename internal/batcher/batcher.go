// Package batcher groups consecutive cues into bounded batches for
// translation. A batch is closed early when the gap between the previous
// cue's end and the next cue's start exceeds the scene threshold, so the
// model never has to treat temporally disjoint dialogue as one passage. Each
// batch also carries a read-only tail of the previous batch as context.
package batcher

import (
	"time"

	"github.com/valpere/vietsub/internal/srt"
)

const (
	// DefaultMaxSize is the default number of cues per batch.
	DefaultMaxSize = 40
	// DefaultSceneGap is the silence that marks a scene boundary.
	DefaultSceneGap = 2 * time.Second
	// DefaultContextSize is how many trailing cues of the previous batch are
	// carried as context.
	DefaultContextSize = 3
)

// Options tunes Plan. Zero values select the defaults.
type Options struct {
	MaxSize     int
	SceneGap    time.Duration
	ContextSize int
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.SceneGap <= 0 {
		o.SceneGap = DefaultSceneGap
	}
	if o.ContextSize < 0 {
		o.ContextSize = 0
	} else if o.ContextSize == 0 {
		o.ContextSize = DefaultContextSize
	}
	return o
}

// Batch is an ordered, non-empty run of cues. Context holds up to
// ContextSize trailing cues of the previous batch; it is reference material
// only and is never emitted as output.
type Batch struct {
	Index   int
	Offset  int // position of Cues[0] in the full cue sequence
	Cues    []srt.Cue
	Context []srt.Cue
}

// Texts returns the cue texts of the batch in order.
func (b Batch) Texts() []string {
	out := make([]string, len(b.Cues))
	for i, c := range b.Cues {
		out[i] = c.Text
	}
	return out
}

// Plan splits cues into batches. A batch is closed before adding a cue when
// it already holds MaxSize cues, or when it is non-empty and the cue starts
// more than SceneGap after the previous cue ended. Cues with malformed timing
// never trigger a scene split, and a malformed previous end disables the
// check for the next cue.
func Plan(cues []srt.Cue, opts Options) []Batch {
	opts = opts.withDefaults()
	if len(cues) == 0 {
		return nil
	}

	var (
		batches []Batch
		current []srt.Cue
		offset  int
		prevEnd time.Duration
		hasPrev bool
	)

	flush := func(next int) {
		if len(current) == 0 {
			return
		}
		batches = append(batches, Batch{
			Index:  len(batches),
			Offset: offset,
			Cues:   current,
		})
		current = nil
		offset = next
	}

	for i, cue := range cues {
		newScene := hasPrev && cue.TimingValid && cue.Start-prevEnd > opts.SceneGap
		if len(current) >= opts.MaxSize || (newScene && len(current) > 0) {
			flush(i)
		}
		current = append(current, cue)
		prevEnd, hasPrev = cue.End, cue.TimingValid
	}
	flush(len(cues))

	for i := 1; i < len(batches); i++ {
		batches[i].Context = Tail(batches[i-1].Cues, opts.ContextSize)
	}
	return batches
}

// Tail returns a copy of the last n cues of src.
func Tail(src []srt.Cue, n int) []srt.Cue {
	if n <= 0 || len(src) == 0 {
		return nil
	}
	if n > len(src) {
		n = len(src)
	}
	out := make([]srt.Cue, n)
	copy(out, src[len(src)-n:])
	return out
}

// Flatten concatenates the cues of all batches in order.
func Flatten(batches []Batch) []srt.Cue {
	var n int
	for _, b := range batches {
		n += len(b.Cues)
	}
	out := make([]srt.Cue, 0, n)
	for _, b := range batches {
		out = append(out, b.Cues...)
	}
	return out
}
