package parse

import (
	"regexp"
	"strings"
)

var (
	spaceRe     = regexp.MustCompile(`\s+`)
	separatorRe = regexp.MustCompile(`[\s\-]`)
)

// CodeSegment turns a free-text value into a code segment: whitespace runs are
// collapsed and spaces and dashes become underscores, so "-" stays the code separator.
func CodeSegment(raw string) string {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	return separatorRe.ReplaceAllString(s, "_")
}
