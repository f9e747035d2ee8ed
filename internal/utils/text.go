package utils

import "strings"

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut. Used for question-context tags and user-facing reasoning
// excerpts.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// ContainsAny reports whether the haystack contains any of the needles.
// Haystack is expected to be lower-cased by the caller.
func ContainsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
