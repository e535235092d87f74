package logging

import (
	"regexp"
	"strings"
)

// secretPatterns match credentials that show up inside URLs and error text.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/bot(\d+:[A-Za-z0-9_-]+)`),
	regexp.MustCompile(`(?i)(?:password|token|secret|api[_-]?key)[=:]\s*["']?([^\s"'&]+)`),
}

// MaskSecret keeps a few characters of value for recognition and hides the
// rest.
func MaskSecret(value string) string {
	switch {
	case len(value) == 0:
		return ""
	case len(value) <= 4:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// Redact masks every known secret and every credential-looking pattern in
// text.
func Redact(text string, secrets ...string) string {
	for _, s := range secrets {
		if len(s) < 4 {
			continue
		}
		text = strings.ReplaceAll(text, s, MaskSecret(s))
	}

	for _, p := range secretPatterns {
		text = p.ReplaceAllStringFunc(text, func(match string) string {
			sub := p.FindStringSubmatch(match)
			if len(sub) < 2 || sub[1] == "" {
				return match
			}
			return strings.Replace(match, sub[1], MaskSecret(sub[1]), 1)
		})
	}
	return text
}
