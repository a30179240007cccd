// Package transcript cleans up recognized text before it reaches the clipboard.
package transcript

import "strings"

// Options controls transcript formatting.
type Options struct {
	TrailingSpace       bool
	CapitalizeSentences bool
}

// Normalize collapses whitespace and applies the configured casing and trailing space.
// Whitespace-only input yields "".
func Normalize(text string, opts Options) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}

	if opts.CapitalizeSentences {
		normalized = capitalizePronounI(capitalizeSentenceStarts(normalized))
	}

	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
