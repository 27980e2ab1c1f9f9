package sanitizer

import "strings"

// Trim removes leading and trailing whitespace from a string.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// ToLower converts a string to lowercase.
func ToLower(s string) string {
	return strings.ToLower(s)
}

// TrimToLower trims whitespace and lowercases in one pass, the standard
// cleanup for identity fields compared case-insensitively.
func TrimToLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SingleLine collapses internal whitespace runs into single spaces.
func SingleLine(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}
