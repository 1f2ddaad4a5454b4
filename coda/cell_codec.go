package coda

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================
// Cell Line Grammars
// ============================================================
//
// Every data line is onset,offset,<value>. The value grammar depends on the
// column type:
//   text/nominal/integer/float  raw payload (text may span lines)
//   matrix                      [arg1,arg2,...]
//   predicate                   () or Name(arg1,arg2,...)
//   undefined                   raw payload, kept verbatim

const (
	fieldOnset  = 0
	fieldOffset = 1
	fieldValue  = 2
)

// cellLine is a tokenized data line.
type cellLine struct {
	onset  Ticks
	offset Ticks
	fields []string // value fields, still escaped
}

// parseCellLine splits a data line and reads its onset and offset.
func parseCellLine(line string, escaped bool) (*cellLine, error) {
	fields := SplitFields(line, escaped)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: want onset,offset,value", ErrMalformedCell)
	}
	onset, err := parseTicks(fields[fieldOnset])
	if err != nil {
		return nil, err
	}
	offset, err := parseTicks(fields[fieldOffset])
	if err != nil {
		return nil, err
	}
	return &cellLine{onset: onset, offset: offset, fields: fields[fieldValue:]}, nil
}

func parseTicks(s string) (Ticks, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q", ErrMalformedCell, s)
	}
	return Ticks(n), nil
}

// cellDecoder turns the value fields of one line into a Value for a column.
// Fatal problems are returned as err; lenient substitutions of Empty are
// reported through warn.
type cellDecoder struct {
	db      *Database
	escaped bool
	warn    func(format string, args ...any)
}

func (d *cellDecoder) decode(col *Column, fields []string) (Value, error) {
	switch col.Type {
	case ColumnText, ColumnUndefined:
		payload := JoinFields(fields)
		if payload == "" {
			return Empty(), nil
		}
		if col.Type == ColumnUndefined {
			return Text(payload), nil
		}
		return scalarValue(ColumnText, payload, d.escaped)

	case ColumnNominal, ColumnInteger, ColumnFloat:
		if len(fields) == 0 {
			return Empty(), nil
		}
		v, err := scalarValue(col.Type, fields[0], d.escaped)
		if err != nil {
			d.warn("%s value unset: %v", col.Type, err)
		}
		return v, nil

	case ColumnMatrix:
		return d.decodeMatrix(col, fields)

	case ColumnPredicate:
		return d.decodePredicate(fields)

	default:
		return Empty(), fmt.Errorf("unknown column type %d", col.Type)
	}
}

func (d *cellDecoder) decodeMatrix(col *Column, fields []string) (Value, error) {
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "") {
		return Empty(), nil
	}
	ve := d.db.MatrixVocab(col.ID)
	if ve == nil {
		return Empty(), fmt.Errorf("matrix column %s has no vocabulary", col.Name)
	}

	tokens := make([]string, len(fields))
	copy(tokens, fields)
	tokens[0] = strings.TrimPrefix(tokens[0], "[")
	last := len(tokens) - 1
	tokens[last] = strings.TrimSuffix(tokens[last], "]")

	args, err := d.buildArgs(ve, tokens)
	if err != nil {
		return Empty(), err
	}
	return NewMatrix(ve, args...)
}

func (d *cellDecoder) decodePredicate(fields []string) (Value, error) {
	payload := strings.TrimSpace(JoinFields(fields))
	if payload == "" {
		return Empty(), nil
	}
	if payload == "()" {
		return EmptyPredicate(), nil
	}

	var open, end int
	if d.escaped {
		open, end = indexUnescaped(payload, '('), lastIndexUnescaped(payload, ')')
	} else {
		open, end = strings.IndexByte(payload, '('), strings.LastIndexByte(payload, ')')
	}
	if open <= 0 || end < open {
		return Empty(), fmt.Errorf("%w: predicate %q", ErrMalformedCell, payload)
	}

	name := strings.TrimSpace(payload[:open])
	if d.escaped {
		name = UnescapeName(name)
	}
	ve, err := d.db.Registry().LookupPredicate(name)
	if err != nil {
		return Empty(), err
	}

	args, err := d.buildArgs(ve, SplitFields(payload[open+1:end], d.escaped))
	if err != nil {
		return Empty(), err
	}
	return NewPredicate(ve, args...)
}

// buildArgs assigns tokens positionally to the element's formal arguments.
// Missing trailing tokens are unset; surplus tokens are an error.
func (d *cellDecoder) buildArgs(ve *VocabElement, tokens []string) ([]Value, error) {
	if len(tokens) > len(ve.Args) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, line has %d",
			ErrArgumentCountMismatch, ve.Name, len(ve.Args), len(tokens))
	}
	args := make([]Value, len(ve.Args))
	for i, fa := range ve.Args {
		if i >= len(tokens) {
			continue
		}
		v, err := buildValue(tokens[i], fa, d.escaped)
		if err != nil {
			d.warn("%s argument %s unset: %v", ve.Name, fa.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

// ============================================================
// Cell Encoding
// ============================================================

// cellEncoder is the inverse of cellDecoder.
type cellEncoder struct {
	db      *Database
	escaped bool
}

// encode returns the value part of a data line.
func (e *cellEncoder) encode(col *Column, v Value) (string, error) {
	if v.IsEmpty() {
		return "", nil
	}

	switch col.Type {
	case ColumnText:
		s, err := v.AsText()
		if err != nil {
			return "", err
		}
		return e.textPayload(s)

	case ColumnUndefined:
		s, err := v.AsText()
		if err != nil {
			return "", err
		}
		if strings.ContainsAny(s, "\n\r") {
			return "", fmt.Errorf("%w: line break in undefined payload", ErrUnrepresentable)
		}
		return s, nil

	case ColumnNominal:
		s, err := v.AsNominal()
		if err != nil {
			return "", err
		}
		return e.nominalToken(s)

	case ColumnInteger:
		n, err := v.AsInt()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil

	case ColumnFloat:
		f, err := v.AsFloat()
		if err != nil {
			return "", err
		}
		return formatFloat(f), nil

	case ColumnMatrix:
		if v.kind != KindMatrix {
			return "", fmt.Errorf("coda: expected matrix, got %s", v.kind)
		}
		ve := e.db.MatrixVocab(col.ID)
		if ve == nil {
			return "", fmt.Errorf("matrix column %s has no vocabulary", col.Name)
		}
		args, err := e.encodeArgs(ve, v.args)
		if err != nil {
			return "", err
		}
		return "[" + args + "]", nil

	case ColumnPredicate:
		if v.kind != KindPredicate {
			return "", fmt.Errorf("coda: expected predicate, got %s", v.kind)
		}
		if v.pred == NoVocab {
			return "()", nil
		}
		ve := e.db.Registry().Get(v.pred)
		if ve == nil {
			return "", fmt.Errorf("%w: predicate #%d", ErrUnknownVocab, v.pred)
		}
		args, err := e.encodeArgs(ve, v.args)
		if err != nil {
			return "", err
		}
		return escapeNameIf(ve.Name, e.escaped) + "(" + args + ")", nil

	default:
		return "", fmt.Errorf("unknown column type %d", col.Type)
	}
}

// textPayload escapes a text cell and turns each line break into a trailing
// backslash continuation.
func (e *cellEncoder) textPayload(s string) (string, error) {
	if strings.ContainsRune(s, '\r') {
		return "", fmt.Errorf("%w: carriage return in text", ErrUnrepresentable)
	}
	if e.escaped {
		return strings.ReplaceAll(Escape(s), "\n", "\\\n"), nil
	}
	for _, seg := range strings.Split(s, "\n") {
		if strings.HasSuffix(seg, `\`) {
			return "", fmt.Errorf("%w: backslash before line end in legacy text", ErrUnrepresentable)
		}
	}
	return strings.ReplaceAll(s, "\n", "\\\n"), nil
}

func (e *cellEncoder) nominalToken(s string) (string, error) {
	if strings.ContainsAny(s, "\n\r") {
		return "", fmt.Errorf("%w: line break in nominal", ErrUnrepresentable)
	}
	if e.escaped {
		return Escape(s), nil
	}
	if strings.ContainsRune(s, ',') {
		return "", fmt.Errorf("%w: comma in legacy nominal %q", ErrUnrepresentable, s)
	}
	return s, nil
}

func (e *cellEncoder) encodeArgs(ve *VocabElement, args []Value) (string, error) {
	if len(args) != len(ve.Args) {
		return "", fmt.Errorf("%w: %s takes %d arguments, value has %d",
			ErrArgumentCountMismatch, ve.Name, len(ve.Args), len(args))
	}
	var b strings.Builder
	for i, fa := range ve.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		tok, err := e.argToken(fa, args[i])
		if err != nil {
			return "", fmt.Errorf("%s argument %s: %w", ve.Name, fa.Name, err)
		}
		b.WriteString(tok)
	}
	return b.String(), nil
}

// argToken writes one argument. Unset arguments are written as the argument's
// placeholder name; text arguments are quoted.
func (e *cellEncoder) argToken(fa FormalArg, v Value) (string, error) {
	switch v.kind {
	case KindEmpty:
		if e.escaped {
			return Escape(fa.Name), nil
		}
		return fa.Name, nil

	case KindText:
		if strings.ContainsAny(v.str, "\n\r") {
			return "", fmt.Errorf("%w: line break in text argument", ErrUnrepresentable)
		}
		if e.escaped {
			return `"` + Escape(v.str) + `"`, nil
		}
		if strings.ContainsRune(v.str, ',') {
			return "", fmt.Errorf("%w: comma in legacy text argument", ErrUnrepresentable)
		}
		return `"` + v.str + `"`, nil

	case KindNominal:
		if v.str == "" {
			return "", fmt.Errorf("%w: empty nominal argument %s reads back as unset", ErrUnrepresentable, fa.Name)
		}
		if strings.TrimSpace(v.str) == fa.Name {
			return "", fmt.Errorf("%w: nominal equals placeholder %s", ErrUnrepresentable, fa.Name)
		}
		return e.nominalToken(v.str)

	case KindInt:
		return strconv.FormatInt(v.intVal, 10), nil

	case KindFloat:
		return formatFloat(v.floatVal), nil

	default:
		return "", fmt.Errorf("coda: %s cannot be an argument", v.kind)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
