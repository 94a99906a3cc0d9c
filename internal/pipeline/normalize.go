package pipeline

import (
	"regexp"
	"strings"
)

var sentenceBreak = regexp.MustCompile(`([.!?]) *([A-Z])`)

// Normalize trims the transcript, collapses whitespace runs to one space and
// starts every sentence that begins with a capital letter on its own line.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return sentenceBreak.ReplaceAllString(s, "$1\n$2")
}
