package company

import (
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	nonWordPattern = regexp.MustCompile(`[^a-z0-9-]+`)
)

// Normalize lowercases text, strips URLs and replaces every run of characters
// outside [a-z0-9-] with a single space.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = urlPattern.ReplaceAllString(s, "")
	s = nonWordPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeAll normalizes each value, dropping the ones that become empty.
func NormalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}
