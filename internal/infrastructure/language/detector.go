// Package language detects which supported language a document is written in.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

// sampleRunes bounds how much text is scored; the head of a document is enough to
// tell its language.
const sampleRunes = 2000

var supported = map[lingua.Language]domain.Language{
	lingua.English: domain.LanguageEnglish,
	lingua.Hindi:   domain.LanguageHindi,
}

type Detector struct {
	detector lingua.LanguageDetector
	fallback domain.Language
}

// NewDetector builds a detector restricted to the languages the summarizers and
// voices support. Only those language models are loaded.
func NewDetector() *Detector {
	langs := make([]lingua.Language, 0, len(supported))
	for l := range supported {
		langs = append(langs, l)
	}
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			WithMinimumRelativeDistance(0.1).
			Build(),
		fallback: domain.LanguageEnglish,
	}
}

func (d *Detector) Detect(text string) domain.Language {
	text = strings.TrimSpace(text)
	if text == "" {
		return d.fallback
	}
	if r := []rune(text); len(r) > sampleRunes {
		text = string(r[:sampleRunes])
	}
	detected, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return d.fallback
	}
	if lang, ok := supported[detected]; ok {
		return lang
	}
	return d.fallback
}
