package coda

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ============================================================
// Format Versions
// ============================================================
//
// A file optionally opens with a version marker line:
//   (none)  legacy: no escaping, no definitions block
//   #2      escaping and a predicate definitions block
//   #3      as #2, headers carry visibility: name (type,visible)
//   #4      as #3, headers carry a comment:  name (type,visible,comment)

// Version identifies the file format.
type Version int

const (
	VersionLegacy Version = 1
	Version2      Version = 2
	Version3      Version = 3
	Version4      Version = 4
)

// ParseVersionLine recognises a version marker line.
func ParseVersionLine(line string) (Version, bool) {
	switch strings.TrimSpace(line) {
	case "#2":
		return Version2, true
	case "#3":
		return Version3, true
	case "#4":
		return Version4, true
	}
	return VersionLegacy, false
}

// Escaped reports whether fields use backslash escaping and whether a
// definitions block may follow the marker.
func (v Version) Escaped() bool {
	return v >= Version2
}

// Marker returns the version line, or "" for legacy files.
func (v Version) Marker() string {
	if v < Version2 {
		return ""
	}
	return "#" + strconv.Itoa(int(v))
}

// String returns the version name.
func (v Version) String() string {
	if v < Version2 {
		return "legacy"
	}
	return v.Marker()
}

// ============================================================
// Column Headers
// ============================================================
//
// Header format:
//   name (type[,visible[,comment]])[-arg|type,arg|type,...]
//
// The argument list follows matrix headers only.

// ColumnHeader is a parsed variable header line.
type ColumnHeader struct {
	Name    string
	Type    ColumnType
	RawType string // type keyword as written
	Hidden  bool
	Comment string
	Args    []FormalArg // matrix columns only
}

// ParseColumnHeader parses a variable header line. A header without "(" or
// ")" fails with ErrUnterminatedHeader; an unknown type keyword yields
// ColumnUndefined.
func ParseColumnHeader(line string, v Version) (*ColumnHeader, error) {
	escaped := v.Escaped()

	open := strings.IndexByte(line, '(')
	if open < 0 {
		return nil, fmt.Errorf("%w: missing '('", ErrUnterminatedHeader)
	}
	end := strings.IndexByte(line[open:], ')')
	if end < 0 {
		return nil, fmt.Errorf("%w: missing ')'", ErrUnterminatedHeader)
	}
	end += open

	h := &ColumnHeader{
		Name: strings.TrimSpace(line[:open]),
	}
	if escaped {
		h.Name = UnescapeName(h.Name)
	}

	parts := splitMaybeEscaped(line[open+1:end], ',', escaped)
	h.RawType = strings.TrimSpace(parts[0])
	h.Type = ParseColumnType(h.RawType)
	if len(parts) > 1 {
		h.Hidden = !strings.EqualFold(strings.TrimSpace(parts[1]), "true")
	}
	if len(parts) > 2 {
		h.Comment = unescapeIf(JoinFields(parts[2:]), escaped)
	}

	if h.Type == ColumnMatrix {
		rest := strings.TrimSpace(line[end+1:])
		if strings.HasPrefix(rest, "-") {
			h.Args = parseArgSpec(rest[1:], escaped)
		}
	}

	return h, nil
}

// parseArgSpec parses "arg|type,arg|type,...".
func parseArgSpec(spec string, escaped bool) []FormalArg {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	pieces := splitMaybeEscaped(spec, ',', escaped)
	args := make([]FormalArg, 0, len(pieces))
	for _, p := range pieces {
		name, typ, _ := cutUnescaped(p, '|', escaped)
		name = strings.TrimSpace(name)
		if escaped {
			name = UnescapeName(name)
		}
		args = append(args, NewFormalArg(name, ParseArgKind(typ)))
	}
	return args
}

// EmitColumnHeader generates the header line for a column.
func EmitColumnHeader(h *ColumnHeader, v Version) string {
	var b strings.Builder

	b.WriteString(escapeNameIf(h.Name, v.Escaped()))
	b.WriteString(" (")
	b.WriteString(h.Type.String())
	if v >= Version3 {
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(!h.Hidden))
	}
	if v >= Version4 {
		b.WriteByte(',')
		b.WriteString(Escape(h.Comment))
	}
	b.WriteByte(')')

	if h.Type == ColumnMatrix {
		b.WriteByte('-')
		writeArgSpec(&b, h.Args, v.Escaped())
	}

	return b.String()
}

func writeArgSpec(b *strings.Builder, args []FormalArg, escaped bool) {
	for i, fa := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeNameIf(fa.BareName(), escaped))
		b.WriteByte('|')
		b.WriteString(fa.Kind.String())
	}
}

func escapeNameIf(s string, escaped bool) string {
	if escaped {
		return EscapeName(s)
	}
	return s
}

// ============================================================
// Predicate Definitions
// ============================================================
//
// Definition format (version 2 and later):
//   index:name-arg|type,arg|type,...

// ParseDefinition parses one definitions-block line.
func ParseDefinition(line string) (index int, name string, args []FormalArg, err error) {
	idx, rest, ok := strings.Cut(line, ":")
	if !ok {
		return 0, "", nil, fmt.Errorf("definition missing ':'")
	}
	index, err = strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return 0, "", nil, fmt.Errorf("definition index %q: %w", idx, err)
	}
	rawName, spec, ok := cutUnescaped(rest, '-', true)
	if !ok {
		return 0, "", nil, fmt.Errorf("definition missing '-'")
	}
	return index, UnescapeName(strings.TrimSpace(rawName)), parseArgSpec(spec, true), nil
}

// EmitDefinition generates the definitions-block line for a predicate.
func EmitDefinition(index int, ve *VocabElement) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(index))
	b.WriteByte(':')
	b.WriteString(EscapeName(ve.Name))
	b.WriteByte('-')
	writeArgSpec(&b, ve.Args, true)
	return b.String()
}

// ParseDefinitions reads a standalone definitions listing, such as a sidecar
// file that supplies predicates for legacy files. An optional version marker
// and blank lines are skipped.
func ParseDefinitions(r io.Reader) ([]*VocabElement, error) {
	var out []*VocabElement
	sc := newLineScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := ParseVersionLine(line); ok && sc.lineNo == 1 {
			continue
		}
		_, name, args, err := ParseDefinition(line)
		if err != nil {
			return nil, &DecodeError{Line: sc.lineNo, Kind: ErrKindDefinition, Err: err}
		}
		ve, err := NewVocabElement(VocabPredicate, name, args)
		if err != nil {
			return nil, &DecodeError{Line: sc.lineNo, Kind: ErrKindDefinition, Name: name, Err: err}
		}
		out = append(out, ve)
	}
	if err := sc.Err(); err != nil {
		return nil, &DecodeError{Line: sc.lineNo, Kind: ErrKindIO, Err: err}
	}
	return out, nil
}

// ============================================================
// Line Scanner
// ============================================================

// lineScanner yields physical lines without their terminator ("\n" or
// "\r\n") and counts them.
type lineScanner struct {
	*bufio.Scanner
	lineNo int
}

const maxLineSize = 16 << 20

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &lineScanner{Scanner: sc}
}

// Scan advances to the next line.
func (s *lineScanner) Scan() bool {
	if !s.Scanner.Scan() {
		return false
	}
	s.lineNo++
	return true
}

// Text returns the current line with any trailing '\r' removed.
func (s *lineScanner) Text() string {
	return strings.TrimSuffix(s.Scanner.Text(), "\r")
}
