// Package validator checks that a generated article is written in the
// language the site publishes in.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/sheetpub/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
const minValidationLength = 40

// DefaultLanguages is the candidate set the detector chooses from.
var DefaultLanguages = []string{"es", "en", "pt", "fr", "de", "it"}

// ErrEmptyText is returned when there is no text to check.
var ErrEmptyText = errors.New("article text is empty")

// MismatchError reports an article written in the wrong language.
type MismatchError struct {
	Expected string
	Detected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected language %s but detected %s", e.Expected, e.Detected)
}

// Validator wraps a language detector. Building the detector is expensive;
// reuse the instance across rows.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator choosing among DefaultLanguages plus extra.
func New(extra ...string) *Validator {
	codes := append(append([]string{}, DefaultLanguages...), extra...)
	return &Validator{det: detector.New(codes...)}
}

// Check returns nil when text appears to be written in lang.
//
// An empty lang disables the check. Short texts and texts whose language is
// ambiguous pass.
func (v *Validator) Check(text, lang string) error {
	if lang == "" {
		return nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if len([]rune(text)) < minValidationLength {
		return nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return nil
	}
	if !strings.EqualFold(detected, lang) {
		return &MismatchError{Expected: strings.ToLower(lang), Detected: strings.ToLower(detected)}
	}
	return nil
}
