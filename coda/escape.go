package coda

import "strings"

// Escape protects backslashes and commas inside a single field.
func Escape(s string) string {
	if !strings.ContainsAny(s, `\,`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == ',' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Unescape reverses Escape in a single left-to-right pass. A backslash not
// followed by a backslash or comma is kept as is.
func Unescape(s string) string {
	return unescapeSet(s, `\,`)
}

// EscapeName is Escape that also protects '-', which separates names from
// argument lists in definition and matrix header lines.
func EscapeName(s string) string {
	if !strings.ContainsAny(s, `\,-`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == ',' || c == '-' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapeName reverses EscapeName.
func UnescapeName(s string) string {
	return unescapeSet(s, `\,-`)
}

func unescapeSet(s, set string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && strings.IndexByte(set, s[i+1]) >= 0 {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// endsWithContinuation reports whether line ends in an unescaped backslash,
// i.e. an odd run of trailing backslashes.
func endsWithContinuation(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
