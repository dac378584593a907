package crawler

import (
	"regexp"
	"strings"
)

var (
	// Word characters are Unicode letters, marks, digits and underscore,
	// so accented brand and model names survive normalization.
	// Whitespace also covers the information separators \x1c-\x1f and NEL.
	nonWordRegex    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s\v\x{1c}-\x{1f}\x{85}\p{Z}-]`)
	whitespaceRegex = regexp.MustCompile(`[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]+`)
)

// Normalize lower-cases text, strips punctuation and collapses whitespace
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWordRegex.ReplaceAllString(text, "")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
