// Package detector decides whether subtitle text is already Vietnamese.
//
// Analyze is a cheap heuristic over an evenly spaced sample of cues: the
// density of Vietnamese-specific diacritics over sampled characters and the
// density of high-frequency Vietnamese function words over sampled tokens.
// Either density crossing its threshold marks the content as already
// translated. The lingua-backed Detector is the slower, statistical fallback
// used for per-cue validation.
package detector

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/valpere/vietsub/internal/srt"
)

const (
	DefaultSampleSize    = 10
	DefaultCharThreshold = 0.01
	DefaultWordThreshold = 0.05
)

const vietnameseDiacritics = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ"

var diacriticSet = func() map[rune]struct{} {
	m := make(map[rune]struct{})
	for _, r := range vietnameseDiacritics {
		m[r] = struct{}{}
	}
	return m
}()

var functionWords = map[string]struct{}{
	"của": {}, "và": {}, "trong": {}, "những": {}, "các": {}, "với": {},
	"không": {}, "là": {}, "có": {}, "cho": {}, "được": {}, "này": {},
	"một": {}, "như": {}, "đã": {}, "về": {}, "từ": {}, "đến": {},
	"tôi": {}, "chúng": {}, "bạn": {}, "anh": {}, "chị": {}, "ông": {},
	"bà": {}, "họ": {}, "mình": {},
}

// Options tunes Analyze. Zero values select the defaults.
type Options struct {
	SampleSize    int
	CharThreshold float64
	WordThreshold float64
}

func (o Options) withDefaults() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.CharThreshold <= 0 {
		o.CharThreshold = DefaultCharThreshold
	}
	if o.WordThreshold <= 0 {
		o.WordThreshold = DefaultWordThreshold
	}
	return o
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Sampled     int
	CharDensity float64
	WordDensity float64
	IsTarget    bool
}

// Analyze samples up to opts.SampleSize evenly spaced cues and reports
// whether they already read as Vietnamese.
func Analyze(cues []srt.Cue, opts Options) Analysis {
	opts = opts.withDefaults()
	if len(cues) == 0 {
		return Analysis{}
	}

	indices := SampleIndices(len(cues), opts.SampleSize)
	texts := make([]string, 0, len(indices))
	for _, idx := range indices {
		texts = append(texts, cues[idx].Text)
	}
	combined := norm.NFC.String(strings.Join(texts, " "))

	var chars, hits int
	for _, r := range combined {
		chars++
		if _, ok := diacriticSet[unicode.ToLower(r)]; ok {
			hits++
		}
	}

	tokens := strings.Fields(combined)
	var wordHits int
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r)
		}))
		if _, ok := functionWords[tok]; ok {
			wordHits++
		}
	}

	a := Analysis{Sampled: len(indices)}
	if chars > 0 {
		a.CharDensity = float64(hits) / float64(chars)
	}
	if len(tokens) > 0 {
		a.WordDensity = float64(wordHits) / float64(len(tokens))
	}
	a.IsTarget = a.CharDensity > opts.CharThreshold || a.WordDensity > opts.WordThreshold
	return a
}

// SampleIndices returns up to size distinct, evenly spaced indices in [0, n).
func SampleIndices(n, size int) []int {
	if n <= 0 || size <= 0 {
		return nil
	}
	if size > n {
		size = n
	}
	out := make([]int, 0, size)
	last := -1
	for i := 0; i < size; i++ {
		idx := i * n / size
		if idx != last {
			out = append(out, idx)
			last = idx
		}
	}
	return out
}
