package coda

import "strings"

// SplitFields splits a data line on commas. When escaped is set, a comma
// preceded by an unescaped backslash stays inside its field; fields are
// returned raw (still escaped).
func SplitFields(line string, escaped bool) []string {
	if !escaped {
		return strings.Split(line, ",")
	}
	return splitUnescaped(line, ',')
}

// JoinFields reassembles fields split by SplitFields.
func JoinFields(fields []string) string {
	return strings.Join(fields, ",")
}

// splitUnescaped splits s on sep bytes not consumed by a backslash escape.
func splitUnescaped(s string, sep byte) []string {
	var fields []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++ // skip escaped byte
		case sep:
			fields = append(fields, s[start:i])
			start = i + 1
		}
	}
	return append(fields, s[start:])
}

// indexUnescaped returns the index of the first unescaped sep in s, or -1.
func indexUnescaped(s string, sep byte) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			return i
		}
	}
	return -1
}

// lastIndexUnescaped returns the index of the last unescaped sep in s, or -1.
func lastIndexUnescaped(s string, sep byte) int {
	last := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			last = i
		}
	}
	return last
}

// cutUnescaped slices s around the first unescaped sep.
func cutUnescaped(s string, sep byte, escaped bool) (before, after string, found bool) {
	var i int
	if escaped {
		i = indexUnescaped(s, sep)
	} else {
		i = strings.IndexByte(s, sep)
	}
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// splitMaybeEscaped splits on sep, honouring escapes only when escaped is set.
func splitMaybeEscaped(s string, sep byte, escaped bool) []string {
	if escaped {
		return splitUnescaped(s, sep)
	}
	return strings.Split(s, string(sep))
}
