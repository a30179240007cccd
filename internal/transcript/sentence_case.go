package transcript

import (
	"strings"
	"unicode"
)

// capitalizeSentenceStarts upper-cases the first letter of the text and of every
// word following a sentence-ending period, question mark, or exclamation mark.
func capitalizeSentenceStarts(text string) string {
	runes := []rune(text)

	var out strings.Builder
	out.Grow(len(text))

	atStart := true
	afterBoundary := false
	sawSpace := false

	for i, r := range runes {
		switch {
		case atStart && unicode.IsLetter(r):
			if !keepsLowercase(runes, i) {
				r = unicode.ToUpper(r)
			}
			atStart = false
		case afterBoundary && unicode.IsSpace(r):
			sawSpace = true
		case afterBoundary && unicode.IsLetter(r):
			if sawSpace && !keepsLowercase(runes, i) {
				r = unicode.ToUpper(r)
			}
			afterBoundary = false
		case afterBoundary && isQuoteOrCloser(r):
			// wait for the letter: `done. "next`
		case afterBoundary:
			afterBoundary = false
		}

		out.WriteRune(r)

		switch r {
		case '.':
			afterBoundary = endsSentence(runes, i)
			sawSpace = false
		case '!', '?':
			afterBoundary = true
			sawSpace = false
		}
	}

	return out.String()
}

func keepsLowercase(runes []rune, idx int) bool {
	end := idx
	for end < len(runes) && (unicode.IsLetter(runes[end]) || runes[end] == '.') {
		end++
	}
	token := strings.ToLower(strings.Trim(string(runes[idx:end]), "."))
	_, ok := lowercaseAbbreviations[token]
	return ok
}

func isQuoteOrCloser(r rune) bool {
	switch r {
	case ')', ']', '}', '\'', '"', '’', '”', '“', '‘':
		return true
	default:
		return false
	}
}
