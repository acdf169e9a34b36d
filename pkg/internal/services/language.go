package services

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

var detectableLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
}

type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectableLanguages...).
			WithLowAccuracyMode().
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of the text, or an empty
// string when the language cannot be told.
func (v *LanguageDetector) Detect(text string) string {
	if v == nil || len(strings.TrimSpace(text)) == 0 {
		return ""
	}
	if language, ok := v.detector.DetectLanguageOf(text); ok {
		return strings.ToLower(language.IsoCode639_1().String())
	}
	return ""
}
