// Package langdetect identifies the language of source text.
package langdetect

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"quiz-pipeline/internal/domain"
)

// LinguaDetector implements domain.LanguageDetector with lingua's n-gram
// models.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over all supported languages.
// minDistance is lingua's minimum relative distance in [0, 0.99]; larger
// values reject ambiguous text instead of guessing.
func NewLinguaDetector(minDistance float64) *LinguaDetector {
	builder := lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	if minDistance > 0 {
		builder = builder.WithMinimumRelativeDistance(minDistance)
	}
	return &LinguaDetector{detector: builder.Build()}
}

// NewLinguaDetectorFor restricts detection to the given languages; lingua
// keeps only their models in memory.
func NewLinguaDetectorFor(minDistance float64, languages ...lingua.Language) *LinguaDetector {
	builder := lingua.NewLanguageDetectorBuilder().FromLanguages(languages...)
	if minDistance > 0 {
		builder = builder.WithMinimumRelativeDistance(minDistance)
	}
	return &LinguaDetector{detector: builder.Build()}
}

// Detect returns the ISO 639-1 code of text, or ErrLanguageUndetected
func (d *LinguaDetector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrLanguageUndetected
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", domain.ErrLanguageUndetected
	}
	return strings.ToLower(lang.IsoCode639_1().String()), nil
}

var _ domain.LanguageDetector = (*LinguaDetector)(nil)
