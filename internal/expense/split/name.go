package split

import (
	"strings"
	"unicode"
)

// FormatName normalizes a participant name: surrounding whitespace is
// trimmed, runs of whitespace collapse to one space and every token gets an
// upper-case first letter with the rest lower-cased.
func FormatName(name string) string {
	tokens := strings.Fields(name)
	for i, token := range tokens {
		runes := []rune(strings.ToLower(token))
		runes[0] = unicode.ToUpper(runes[0])
		tokens[i] = string(runes)
	}
	return strings.Join(tokens, " ")
}
