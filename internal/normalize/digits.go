package normalize

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Arabic-Indic digits U+0660..U+0669
const (
	arabicZero = '٠'
	arabicNine = '٩'
)

func mapDigit(r rune) rune {
	if r >= arabicZero && r <= arabicNine {
		return '0' + (r - arabicZero)
	}
	return r
}

// Digits replaces every Arabic-Indic digit with its Latin equivalent.
// All other characters pass through unchanged, so positions are preserved.
func Digits(s string) string {
	if !HasArabicDigits(s) {
		return s
	}
	return strings.Map(mapDigit, s)
}

// Transformer returns a transform.Transformer that normalizes digits in a stream
func Transformer() transform.Transformer {
	return runes.Map(mapDigit)
}

// HasArabicDigits reports whether s contains any Arabic-Indic digit
func HasArabicDigits(s string) bool {
	return strings.IndexFunc(s, isArabicDigit) >= 0
}

func isArabicDigit(r rune) bool {
	return r >= arabicZero && r <= arabicNine
}
