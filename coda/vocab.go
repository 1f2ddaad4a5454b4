package coda

import (
	"fmt"
	"strings"
)

// ArgKind is the type of a formal argument slot.
type ArgKind uint8

const (
	ArgUntyped ArgKind = iota
	ArgText
	ArgNominal
	ArgInteger
	ArgFloat
)

// String returns the keyword written to files for this kind.
func (k ArgKind) String() string {
	switch k {
	case ArgText:
		return "QUOTE_STRING"
	case ArgNominal:
		return "NOMINAL"
	case ArgInteger:
		return "INTEGER"
	case ArgFloat:
		return "FLOAT"
	default:
		return "UNTYPED"
	}
}

// ParseArgKind maps a formal argument type keyword to its kind.
// Matching is case-insensitive; anything unrecognised is untyped.
func ParseArgKind(s string) ArgKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quote_string", "text":
		return ArgText
	case "nominal":
		return ArgNominal
	case "integer":
		return ArgInteger
	case "float":
		return ArgFloat
	default:
		return ArgUntyped
	}
}

// FormalArg is one named, typed slot of a vocabulary element.
type FormalArg struct {
	Name string // Bracketed form, e.g. "<x>"
	Kind ArgKind
}

// NewFormalArg creates a formal argument, wrapping name in angle brackets.
func NewFormalArg(name string, kind ArgKind) FormalArg {
	return FormalArg{Name: wrapArgName(name), Kind: kind}
}

// BareName returns the argument name without its angle brackets.
func (fa FormalArg) BareName() string {
	return strings.TrimSuffix(strings.TrimPrefix(fa.Name, "<"), ">")
}

// Accepts reports whether v may occupy this slot. Empty fits every slot;
// untyped slots hold nominal values.
func (fa FormalArg) Accepts(v Value) bool {
	switch v.kind {
	case KindEmpty:
		return true
	case KindText:
		return fa.Kind == ArgText
	case KindNominal:
		return fa.Kind == ArgNominal || fa.Kind == ArgUntyped
	case KindInt:
		return fa.Kind == ArgInteger
	case KindFloat:
		return fa.Kind == ArgFloat
	default:
		return false
	}
}

func wrapArgName(name string) string {
	if strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">") && len(name) >= 2 {
		return name
	}
	return "<" + name + ">"
}

// VocabID identifies a vocabulary element within a Registry.
type VocabID int

// NoVocab is the id of no vocabulary element.
const NoVocab VocabID = 0

// VocabKind distinguishes matrix and predicate vocabulary elements.
type VocabKind uint8

const (
	VocabMatrix VocabKind = iota
	VocabPredicate
)

// VocabElement is a named, ordered list of formal arguments defining the shape
// of a matrix or predicate value. Elements held by a Registry must not be
// modified; rebind or redefine instead.
type VocabElement struct {
	ID      VocabID
	Kind    VocabKind
	Name    string
	Args    []FormalArg
	Varying bool // variable-length argument list
}

// NewVocabElement builds an element in one step. An element never exists with
// zero arguments, and argument names must be unique within it.
func NewVocabElement(kind VocabKind, name string, args []FormalArg) (*VocabElement, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s declares no arguments", ErrArgumentCountMismatch, name)
	}
	seen := make(map[string]bool, len(args))
	out := make([]FormalArg, len(args))
	for i, fa := range args {
		fa.Name = wrapArgName(fa.Name)
		bare := fa.BareName()
		if err := validateName(bare); err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, name, err)
		}
		if strings.ContainsAny(bare, "<>") {
			return nil, fmt.Errorf("%w: argument %q of %s", ErrInvalidName, bare, name)
		}
		if seen[fa.Name] {
			return nil, fmt.Errorf("%w: argument %s repeated in %s", ErrDuplicateName, fa.Name, name)
		}
		seen[fa.Name] = true
		out[i] = fa
	}
	return &VocabElement{Kind: kind, Name: name, Args: out}, nil
}

// Arity returns the number of formal arguments.
func (ve *VocabElement) Arity() int {
	return len(ve.Args)
}

// ArgIndex returns the position of the named argument, or -1.
func (ve *VocabElement) ArgIndex(name string) int {
	name = wrapArgName(name)
	for i, fa := range ve.Args {
		if fa.Name == name {
			return i
		}
	}
	return -1
}

// ============================================================
// Registry
// ============================================================

// Registry owns predicate vocabularies and per-column matrix vocabularies.
// Predicate names and matrix vocabulary names (the names of matrix columns)
// share one namespace.
type Registry struct {
	elems      []*VocabElement // index = id-1
	predicates []VocabID       // definition order
	byName     map[string]VocabID
	matrices   map[ColumnID]VocabID
	names      map[string]string // vocabulary name -> owner description
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]VocabID),
		matrices: make(map[ColumnID]VocabID),
		names:    make(map[string]string),
	}
}

// DefinePredicate registers a named predicate vocabulary element.
func (r *Registry) DefinePredicate(name string, args []FormalArg) (VocabID, error) {
	ve, err := NewVocabElement(VocabPredicate, name, args)
	if err != nil {
		return NoVocab, err
	}
	if err := r.reserveName(name, "predicate"); err != nil {
		return NoVocab, err
	}
	id := r.add(ve)
	r.predicates = append(r.predicates, id)
	r.byName[name] = id
	return id, nil
}

// LookupPredicate finds a predicate vocabulary element by name.
func (r *Registry) LookupPredicate(name string) (*VocabElement, error) {
	id, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVocab, name)
	}
	return r.Get(id), nil
}

// bindMatrix sets the formal arguments of the matrix vocabulary owned by a
// column, replacing any previous binding for that column. A first binding
// claims name in the vocabulary namespace. Callers check the column.
func (r *Registry) bindMatrix(col ColumnID, name string, args []FormalArg) (VocabID, error) {
	ve, err := NewVocabElement(VocabMatrix, name, args)
	if err != nil {
		return NoVocab, err
	}
	if id, ok := r.matrices[col]; ok {
		if prev := r.elems[id-1].Name; prev != name {
			return NoVocab, fmt.Errorf("coda: matrix vocabulary %s cannot be renamed to %s", prev, name)
		}
		ve.ID = id
		r.elems[id-1] = ve
		return id, nil
	}
	if err := r.reserveName(name, "matrix"); err != nil {
		return NoVocab, err
	}
	id := r.add(ve)
	r.matrices[col] = id
	return id, nil
}

// MatrixFor returns the matrix vocabulary bound to a column, or nil.
func (r *Registry) MatrixFor(col ColumnID) *VocabElement {
	id, ok := r.matrices[col]
	if !ok {
		return nil
	}
	return r.Get(id)
}

// Get returns the element with the given id, or nil.
func (r *Registry) Get(id VocabID) *VocabElement {
	if id <= NoVocab || int(id) > len(r.elems) {
		return nil
	}
	return r.elems[id-1]
}

// Predicates returns predicate elements in definition order.
func (r *Registry) Predicates() []*VocabElement {
	out := make([]*VocabElement, 0, len(r.predicates))
	for _, id := range r.predicates {
		out = append(out, r.elems[id-1])
	}
	return out
}

// NameTaken reports whether a predicate or matrix vocabulary already uses name.
func (r *Registry) NameTaken(name string) bool {
	_, ok := r.names[name]
	return ok
}

func (r *Registry) add(ve *VocabElement) VocabID {
	r.elems = append(r.elems, ve)
	ve.ID = VocabID(len(r.elems))
	return ve.ID
}

func (r *Registry) reserveName(name, owner string) error {
	if prev, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %q already names a %s", ErrDuplicateName, name, prev)
	}
	r.names[name] = owner
	return nil
}

// validateName rejects names the line grammar cannot carry.
func validateName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, "()|\n\r") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
