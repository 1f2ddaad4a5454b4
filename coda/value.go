package coda

import (
	"fmt"
	"math"
)

// Kind represents cell value kinds.
type Kind uint8

const (
	KindEmpty Kind = iota // unset; distinct from a zero or blank value
	KindText
	KindNominal
	KindInt
	KindFloat
	KindMatrix
	KindPredicate
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNominal:
		return "nominal"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindMatrix:
		return "matrix"
	case KindPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// Value is a cell value or a matrix/predicate argument.
// The zero Value is Empty.
type Value struct {
	kind Kind

	// Scalar payloads (only one valid based on kind)
	str      string
	intVal   int64
	floatVal float64

	// Matrix and predicate arguments
	args []Value

	// Referenced predicate vocabulary element (KindPredicate only)
	pred VocabID
}

// ============================================================
// Constructors
// ============================================================

// Empty returns the unset value.
func Empty() Value {
	return Value{}
}

// Text creates a text value.
func Text(s string) Value {
	return Value{kind: KindText, str: s}
}

// Nominal creates a nominal value.
func Nominal(s string) Value {
	return Value{kind: KindNominal, str: s}
}

// Int creates an integer value.
func Int(v int64) Value {
	return Value{kind: KindInt, intVal: v}
}

// Float creates a float value.
func Float(v float64) Value {
	return Value{kind: KindFloat, floatVal: v}
}

// EmptyPredicate creates a predicate invocation that references no vocabulary
// element and carries no arguments. It is written as "()".
func EmptyPredicate() Value {
	return Value{kind: KindPredicate, pred: NoVocab}
}

// NewMatrix creates a matrix value shaped by ve. The argument count must equal
// the element's formal argument count and each argument must suit its slot.
func NewMatrix(ve *VocabElement, args ...Value) (Value, error) {
	if ve == nil {
		return Value{}, fmt.Errorf("coda: matrix needs a vocabulary element")
	}
	if err := checkArgs(ve, args); err != nil {
		return Value{}, err
	}
	return Value{kind: KindMatrix, args: cloneValues(args)}, nil
}

// NewPredicate creates a predicate invocation of ve.
func NewPredicate(ve *VocabElement, args ...Value) (Value, error) {
	if ve == nil {
		return Value{}, fmt.Errorf("coda: predicate needs a vocabulary element")
	}
	if ve.Kind != VocabPredicate {
		return Value{}, fmt.Errorf("coda: %s is not a predicate", ve.Name)
	}
	if err := checkArgs(ve, args); err != nil {
		return Value{}, err
	}
	return Value{kind: KindPredicate, pred: ve.ID, args: cloneValues(args)}, nil
}

func checkArgs(ve *VocabElement, args []Value) error {
	if len(args) != len(ve.Args) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrArgumentCountMismatch, ve.Name, len(ve.Args), len(args))
	}
	for i, a := range args {
		if !ve.Args[i].Accepts(a) {
			return fmt.Errorf("coda: argument %s of %s cannot hold %s",
				ve.Args[i].Name, ve.Name, a.kind)
		}
	}
	return nil
}

func cloneValues(in []Value) []Value {
	if len(in) == 0 {
		return nil
	}
	out := make([]Value, len(in))
	copy(out, in)
	return out
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsEmpty returns true if the value is unset.
func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// AsText returns the text payload.
func (v Value) AsText() (string, error) {
	if v.kind != KindText {
		return "", fmt.Errorf("coda: expected text, got %s", v.kind)
	}
	return v.str, nil
}

// AsNominal returns the nominal payload.
func (v Value) AsNominal() (string, error) {
	if v.kind != KindNominal {
		return "", fmt.Errorf("coda: expected nominal, got %s", v.kind)
	}
	return v.str, nil
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("coda: expected int, got %s", v.kind)
	}
	return v.intVal, nil
}

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, fmt.Errorf("coda: expected float, got %s", v.kind)
	}
	return v.floatVal, nil
}

// Args returns a copy of the matrix or predicate arguments.
func (v Value) Args() []Value {
	return cloneValues(v.args)
}

// PredicateID returns the referenced predicate vocabulary element.
// NoVocab is returned for empty invocations and non-predicate values.
func (v Value) PredicateID() VocabID {
	if v.kind != KindPredicate {
		return NoVocab
	}
	return v.pred
}

// IsEmptyPredicate reports whether v is the "()" invocation.
func (v Value) IsEmptyPredicate() bool {
	return v.kind == KindPredicate && v.pred == NoVocab
}

// Equal reports whether two values are identical. Floats compare by bit
// pattern so NaN payloads survive a round trip check.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindEmpty:
		return true
	case KindText, KindNominal:
		return v.str == o.str
	case KindInt:
		return v.intVal == o.intVal
	case KindFloat:
		return math.Float64bits(v.floatVal) == math.Float64bits(o.floatVal)
	case KindMatrix, KindPredicate:
		if v.pred != o.pred || len(v.args) != len(o.args) {
			return false
		}
		for i := range v.args {
			if !v.args[i].Equal(o.args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns a debugging representation.
func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return "<empty>"
	case KindText:
		return fmt.Sprintf("Text(%q)", v.str)
	case KindNominal:
		return fmt.Sprintf("Nominal(%q)", v.str)
	case KindInt:
		return fmt.Sprintf("Int(%d)", v.intVal)
	case KindFloat:
		return fmt.Sprintf("Float(%v)", v.floatVal)
	case KindMatrix:
		return fmt.Sprintf("Matrix%v", v.args)
	case KindPredicate:
		if v.pred == NoVocab {
			return "Predicate()"
		}
		return fmt.Sprintf("Predicate#%d%v", v.pred, v.args)
	default:
		return "unknown"
	}
}
