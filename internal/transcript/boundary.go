package transcript

import (
	"strings"
	"unicode"
)

var (
	// stay lowercase even at sentence starts
	lowercaseAbbreviations = map[string]struct{}{
		"e.g": {},
		"etc": {},
		"i.e": {},
		"vs":  {},
	}

	// a period after these does not end the sentence
	nonTerminalAbbreviations = map[string]struct{}{
		"e.g":    {},
		"i.e":    {},
		"cf":     {},
		"dr":     {},
		"mr":     {},
		"mrs":    {},
		"ms":     {},
		"prof":   {},
		"sr":     {},
		"jr":     {},
		"fig":    {},
		"no":     {},
		"vol":    {},
		"approx": {},
	}
)

// endsSentence reports whether the period at idx terminates a sentence.
func endsSentence(runes []rune, idx int) bool {
	if idx < 0 || idx >= len(runes) || runes[idx] != '.' {
		return false
	}

	// 3.14, example.com, "..."
	if idx+1 < len(runes) {
		next := runes[idx+1]
		if unicode.IsLetter(next) || unicode.IsDigit(next) || next == '.' {
			return false
		}
	}

	token := strings.ToLower(tokenBefore(runes, idx))
	if token == "" {
		return true
	}
	if _, ok := nonTerminalAbbreviations[token]; ok {
		return false
	}
	if _, ok := lowercaseAbbreviations[token]; ok || isInitialism(token) {
		return nextWordIsCapitalized(runes, idx+1)
	}
	return true
}

func tokenBefore(runes []rune, idx int) string {
	start := idx - 1
	for start >= 0 && (unicode.IsLetter(runes[start]) || runes[start] == '.') {
		start--
	}
	return strings.Trim(string(runes[start+1:idx]), ".")
}

// isInitialism matches dotted single letters such as "u.s".
func isInitialism(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		runes := []rune(part)
		if len(runes) != 1 || !unicode.IsLetter(runes[0]) {
			return false
		}
	}
	return true
}

func nextWordIsCapitalized(runes []rune, start int) bool {
	for i := start; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsSpace(r), isQuoteOrCloser(r):
			continue
		case unicode.IsLetter(r):
			return unicode.IsUpper(r)
		default:
			return false
		}
	}
	return true
}
