package coda

import "fmt"

// ValidationError represents a validation finding.
type ValidationError struct {
	Path    string // column[cell] or column[cell].arg
	Message string // Human-readable message
	Code    string // Machine-readable code
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationResult contains all validation errors and warnings.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// Validator checks a decoded database for problems the lenient decoder lets
// through: unset values, unset arguments, inverted and unordered cells.
type Validator struct {
	errors   []ValidationError
	warnings []ValidationError
	strict   bool // If true, warnings are reported as errors
}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// NewStrictValidator creates a validator that treats every finding as an error.
func NewStrictValidator() *Validator {
	return &Validator{strict: true}
}

// Validate checks every column of db.
func (v *Validator) Validate(db *Database) *ValidationResult {
	v.errors = nil
	v.warnings = nil

	for _, col := range db.columns {
		v.validateColumn(db, col)
	}

	return &ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

func (v *Validator) validateColumn(db *Database, col *Column) {
	var prev Ticks
	for i, c := range col.cells {
		path := fmt.Sprintf("%s[%d]", col.Name, i)

		if c.Offset < c.Onset {
			v.addError(path, "offset_before_onset", "offset %d precedes onset %d", c.Offset, c.Onset)
		}
		if i > 0 && c.Onset < prev {
			v.addWarning(path, "out_of_order", "onset %d precedes previous onset %d", c.Onset, prev)
		}
		prev = c.Onset

		switch {
		case c.Value.IsEmpty():
			v.addWarning(path, "unset_value", "%s cell has no value", col.Type)
		case c.Value.kind == KindMatrix:
			v.validateArgs(path, db.MatrixVocab(col.ID), c.Value.args)
		case c.Value.kind == KindPredicate && c.Value.pred != NoVocab:
			v.validateArgs(path, db.vocab.Get(c.Value.pred), c.Value.args)
		}
	}
}

func (v *Validator) validateArgs(path string, ve *VocabElement, args []Value) {
	if ve == nil {
		v.addError(path, "unknown_vocab", "value has no vocabulary element")
		return
	}
	if len(args) != len(ve.Args) {
		v.addError(path, "arity", "%s takes %d arguments, value has %d", ve.Name, len(ve.Args), len(args))
		return
	}
	for i, a := range args {
		if a.IsEmpty() {
			v.addWarning(path+"."+ve.Args[i].BareName(), "unset_argument", "argument %s is unset", ve.Args[i].Name)
		}
	}
}

func (v *Validator) addError(path, code, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *Validator) addWarning(path, code, format string, args ...any) {
	if v.strict {
		v.addError(path, code, format, args...)
		return
	}
	v.warnings = append(v.warnings, ValidationError{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}
