// Package strings provides string and pointer helpers shared by the stages
package strings

import (
	std "strings"
	"unicode/utf8"
)

// Ptr returns a pointer to s trimmed, or nil if s is blank
func Ptr(s string) *string {
	s = std.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NullPtr returns nil for a nil pointer, else the pointed value
// useful for query and copy args where NULL is desired
func NullPtr[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Squash collapses whitespace runs and cuts s to at most n runes with an ellipsis
func Squash(s string, n int) string {
	s = std.Join(std.Fields(s), " ")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
