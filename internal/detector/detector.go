package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Detector identifies the language of article text.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector restricted to the given ISO 639-1 codes. Unknown codes
// are ignored; with fewer than two usable codes every language is considered.
func New(isoCodes ...string) *Detector {
	langs := Languages(isoCodes...)
	builder := lingua.NewLanguageDetectorBuilder()
	if len(langs) >= 2 {
		return &Detector{detector: builder.FromLanguages(langs...).Build()}
	}
	return &Detector{detector: builder.FromAllLanguages().Build()}
}

// Languages maps ISO 639-1 codes (any case) to lingua languages, skipping
// unknown codes and duplicates.
func Languages(isoCodes ...string) []lingua.Language {
	seen := make(map[lingua.Language]bool, len(isoCodes))
	var out []lingua.Language
	for _, code := range isoCodes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		for _, lang := range lingua.AllLanguages() {
			if strings.EqualFold(lang.IsoCode639_1().String(), code) && !seen[lang] {
				seen[lang] = true
				out = append(out, lang)
				break
			}
		}
	}
	return out
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code of text, e.g. "ES".
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
