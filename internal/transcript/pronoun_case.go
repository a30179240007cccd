package transcript

import (
	"unicode"
	"unicode/utf8"
)

// capitalizePronounI uppercases every standalone "i", contractions like
// "i'm" and "i’ll" included. Dotted tokens such as "i.e." keep their case.
func capitalizePronounI(text string) string {
	var out []byte
	for i := 0; i < len(text); i++ {
		if text[i] != 'i' || !wordBoundary(text, i-1) || !wordBoundary(text, i+1) || dotted(text, i) {
			continue
		}
		if out == nil {
			out = []byte(text)
		}
		out[i] = 'I'
	}
	if out == nil {
		return text
	}
	return string(out)
}

// wordBoundary reports whether the byte at i is outside the text or not an
// ASCII word character.
func wordBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return c != '_' && !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z') && !('0' <= c && c <= '9')
}

// dotted reports whether the letter at i is part of an abbreviation: a dot
// followed by a letter after it, or a letter and dot before it.
func dotted(text string, i int) bool {
	if i+2 < len(text) && text[i+1] == '.' {
		if next, _ := utf8.DecodeRuneInString(text[i+2:]); unicode.IsLetter(next) {
			return true
		}
	}
	if i > 1 && text[i-1] == '.' {
		if prev, _ := utf8.DecodeLastRuneInString(text[:i-1]); unicode.IsLetter(prev) {
			return true
		}
	}
	return false
}
