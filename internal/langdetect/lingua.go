package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Undetermined is reported when no language can be inferred.
const Undetermined = "und"

const (
	// detectSampleLimit caps how much of a selection the detector sees.
	detectSampleLimit = 4096
	// minLetters is the least amount of letter signal worth classifying.
	minLetters = 6
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the two-letter language code of a text selection, or
// an empty string when the text is too short or ambiguous.
func DetectISO6391(text string) string {
	sample := sampleOf(text)
	if !worthDetecting(sample) {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// DetectOrUnd is DetectISO6391 with Undetermined for undetectable text.
func DetectOrUnd(text string) string {
	if code := DetectISO6391(text); code != "" {
		return code
	}
	return Undetermined
}

// sampleOf trims the selection and bounds it so large pages stay cheap to
// classify.
func sampleOf(text string) string {
	sample := strings.TrimSpace(text)
	if runes := []rune(sample); len(runes) > detectSampleLimit {
		sample = string(runes[:detectSampleLimit])
	}
	return sample
}

func worthDetecting(sample string) bool {
	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
			if letters >= minLetters {
				return true
			}
		}
	}
	return false
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
