package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// FoldCase returns the generic and the Turkish lower-case forms of s. They
// differ only for dotted and dotless I, so most inputs yield one form.
func FoldCase(s string) []string {
	generic := strings.ToLower(s)
	turkish := strings.ToLowerSpecial(unicode.TurkishCase, s)
	if generic == turkish {
		return []string{generic}
	}
	return []string{generic, turkish}
}

// ContainsFold reports whether text contains query, ignoring case in both the
// generic and the Turkish sense.
func ContainsFold(text, query string) bool {
	for _, t := range FoldCase(text) {
		for _, q := range FoldCase(query) {
			if strings.Contains(t, q) {
				return true
			}
		}
	}
	return false
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeSpace collapses runs of whitespace and trims the ends.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
