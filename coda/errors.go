package coda

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedHeader reports a column header missing "(" or ")".
	ErrUnterminatedHeader = errors.New("coda: unterminated header")
	// ErrUnknownVocab reports a cell naming a predicate that is not defined.
	ErrUnknownVocab = errors.New("coda: unknown vocabulary reference")
	// ErrDuplicateName reports a column or predicate name already in use.
	ErrDuplicateName = errors.New("coda: duplicate vocabulary name")
	// ErrArgumentCountMismatch reports a matrix or predicate whose argument
	// count differs from its vocabulary element.
	ErrArgumentCountMismatch = errors.New("coda: argument count mismatch")
	// ErrMalformedCell reports a data line without parseable onset/offset.
	ErrMalformedCell = errors.New("coda: malformed cell")
	// ErrInvalidName reports a name the line grammar cannot carry.
	ErrInvalidName = errors.New("coda: invalid name")
	// ErrUnrepresentable reports a value the requested format cannot write.
	ErrUnrepresentable = errors.New("coda: value not representable")
)

// ErrorKind classifies decode failures.
type ErrorKind uint8

const (
	ErrKindIO ErrorKind = iota
	ErrKindHeader
	ErrKindDefinition
	ErrKindCell
	ErrKindVocab
	ErrKindCanceled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindIO:
		return "io"
	case ErrKindHeader:
		return "header"
	case ErrKindDefinition:
		return "definition"
	case ErrKindCell:
		return "cell"
	case ErrKindVocab:
		return "vocab"
	case ErrKindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// DecodeError is a fatal decode failure. No partial model accompanies it.
type DecodeError struct {
	Line int    // 1-based physical line, 0 if not line specific
	Kind ErrorKind
	Name string // Column or vocabulary name involved, if any
	Err  error
}

func (e *DecodeError) Error() string {
	msg := e.Err.Error()
	if e.Name != "" {
		msg = fmt.Sprintf("%s: %s", e.Name, msg)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError is a failure writing a particular column or cell.
type EncodeError struct {
	Column string
	Cell   int // 0-based position within the column, -1 for the header
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Cell < 0 {
		return fmt.Sprintf("column %s: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("column %s cell %d: %v", e.Column, e.Cell, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
