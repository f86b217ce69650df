package detector

import (
	lingua "github.com/pemistahl/lingua-go"
)

// DefaultLanguages is the candidate set used by New.
var DefaultLanguages = []lingua.Language{
	lingua.Vietnamese,
	lingua.English,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Korean,
	lingua.French,
	lingua.Spanish,
	lingua.German,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Thai,
	lingua.Indonesian,
}

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over DefaultLanguages.
func New() *Detector {
	return NewFor(DefaultLanguages...)
}

// NewFor builds a detector restricted to the given languages. At least two
// languages are required by lingua; fewer falls back to DefaultLanguages.
func NewFor(languages ...lingua.Language) *Detector {
	if len(languages) < 2 {
		languages = DefaultLanguages
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
