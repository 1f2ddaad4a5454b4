package coda

import (
	"fmt"
	"strings"
)

// Database is the ordered collection of columns, their cells, and the
// vocabulary registry. It is the single object a decode populates and an encode
// reads. A Database is not safe for concurrent mutation.
//
// Columns returned by accessors are owned by the Database; change them through
// Database methods only.
type Database struct {
	Name string

	vocab    *Registry
	columns  []*Column
	byID     map[ColumnID]*Column
	nextCol  ColumnID
	nextCell CellID
}

// New creates an empty database.
func New(name string) *Database {
	return &Database{
		Name:  name,
		vocab: NewRegistry(),
		byID:  make(map[ColumnID]*Column),
	}
}

// Registry returns the vocabulary registry.
func (db *Database) Registry() *Registry {
	return db.vocab
}

// DefinePredicate registers a predicate vocabulary element.
func (db *Database) DefinePredicate(name string, args ...FormalArg) (VocabID, error) {
	return db.vocab.DefinePredicate(name, args)
}

// AddColumn appends a non-matrix column.
func (db *Database) AddColumn(name string, typ ColumnType) (*Column, error) {
	if typ == ColumnMatrix {
		return nil, fmt.Errorf("coda: matrix column %s needs formal arguments", name)
	}
	return db.addColumn(name, typ)
}

// AddMatrixColumn appends a matrix column and binds its vocabulary.
func (db *Database) AddMatrixColumn(name string, args ...FormalArg) (*Column, error) {
	// Check the schema and the vocabulary name first so a failure never leaves
	// a column behind.
	if _, err := NewVocabElement(VocabMatrix, name, args); err != nil {
		return nil, err
	}
	if db.vocab.NameTaken(name) {
		return nil, fmt.Errorf("%w: %q already names a vocabulary element", ErrDuplicateName, name)
	}
	col, err := db.addColumn(name, ColumnMatrix)
	if err != nil {
		return nil, err
	}
	id, err := db.vocab.bindMatrix(col.ID, name, args)
	if err != nil {
		return nil, err
	}
	col.Vocab = id
	return col, nil
}

// BindMatrixSchema replaces the formal arguments of a matrix column. Every
// matrix cell already in the column must fit the new arguments.
func (db *Database) BindMatrixSchema(id ColumnID, args ...FormalArg) error {
	col := db.byID[id]
	if col == nil {
		return fmt.Errorf("coda: no column %d", id)
	}
	if col.Type != ColumnMatrix {
		return fmt.Errorf("coda: column %s is %s, not MATRIX", col.Name, col.Type)
	}
	ve, err := NewVocabElement(VocabMatrix, col.Name, args)
	if err != nil {
		return err
	}
	for i, c := range col.cells {
		if c.Value.kind != KindMatrix {
			continue
		}
		if err := checkArgs(ve, c.Value.args); err != nil {
			return fmt.Errorf("column %s cell %d: %w", col.Name, i, err)
		}
	}
	vid, err := db.vocab.bindMatrix(col.ID, col.Name, args)
	if err != nil {
		return err
	}
	col.Vocab = vid
	return nil
}

func (db *Database) addColumn(name string, typ ColumnType) (*Column, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	// A header starting with a digit would read as a data line.
	if startsWithDigit(name) {
		return nil, fmt.Errorf("%w: column %q starts with a digit", ErrInvalidName, name)
	}
	if db.ColumnByName(name) != nil {
		return nil, fmt.Errorf("%w: column %q", ErrDuplicateName, name)
	}
	db.nextCol++
	col := &Column{
		ID:      db.nextCol,
		Name:    name,
		Type:    typ,
		Ordinal: len(db.columns),
	}
	db.columns = append(db.columns, col)
	db.byID[col.ID] = col
	return col, nil
}

// Column returns the column with the given id, or nil.
func (db *Database) Column(id ColumnID) *Column {
	return db.byID[id]
}

// ColumnByName returns the named column, or nil.
func (db *Database) ColumnByName(name string) *Column {
	for _, c := range db.columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Columns returns the columns in column order.
func (db *Database) Columns() []*Column {
	out := make([]*Column, len(db.columns))
	copy(out, db.columns)
	return out
}

// MatrixVocab returns the vocabulary element of a matrix column, or nil.
func (db *Database) MatrixVocab(id ColumnID) *VocabElement {
	return db.vocab.MatrixFor(id)
}

// SetHidden records a column's visibility.
func (db *Database) SetHidden(id ColumnID, hidden bool) error {
	col := db.byID[id]
	if col == nil {
		return fmt.Errorf("coda: no column %d", id)
	}
	col.Hidden = hidden
	return nil
}

// SetComment records a column comment. Comments live inside the header's
// parentheses and so may not contain ')' or line breaks.
func (db *Database) SetComment(id ColumnID, comment string) error {
	col := db.byID[id]
	if col == nil {
		return fmt.Errorf("coda: no column %d", id)
	}
	if strings.ContainsAny(comment, ")\n\r") {
		return fmt.Errorf("%w: comment %q", ErrUnrepresentable, comment)
	}
	col.Comment = comment
	return nil
}

// AppendCell adds a cell to the end of a column after checking that the value
// fits the column's type and vocabulary.
func (db *Database) AppendCell(id ColumnID, onset, offset Ticks, v Value) (CellID, error) {
	col := db.byID[id]
	if col == nil {
		return 0, fmt.Errorf("coda: no column %d", id)
	}
	if err := db.checkValue(col, v); err != nil {
		return 0, fmt.Errorf("column %s: %w", col.Name, err)
	}
	db.nextCell++
	col.cells = append(col.cells, Cell{
		ID:     db.nextCell,
		Column: id,
		Onset:  onset,
		Offset: offset,
		Value:  v,
	})
	return db.nextCell, nil
}

func (db *Database) checkValue(col *Column, v Value) error {
	if v.IsEmpty() {
		return nil
	}
	want := KindEmpty
	switch col.Type {
	case ColumnText, ColumnUndefined:
		want = KindText
	case ColumnNominal:
		want = KindNominal
	case ColumnInteger:
		want = KindInt
	case ColumnFloat:
		want = KindFloat
	case ColumnMatrix:
		if v.kind != KindMatrix {
			break
		}
		ve := db.vocab.MatrixFor(col.ID)
		if ve == nil {
			return fmt.Errorf("coda: matrix column has no vocabulary")
		}
		return checkArgs(ve, v.args)
	case ColumnPredicate:
		if v.kind != KindPredicate {
			break
		}
		if v.pred == NoVocab {
			if len(v.args) != 0 {
				return fmt.Errorf("%w: empty predicate with arguments", ErrArgumentCountMismatch)
			}
			return nil
		}
		ve := db.vocab.Get(v.pred)
		if ve == nil || ve.Kind != VocabPredicate {
			return fmt.Errorf("%w: predicate #%d", ErrUnknownVocab, v.pred)
		}
		return checkArgs(ve, v.args)
	}
	if v.kind != want {
		return fmt.Errorf("coda: %s column cannot hold %s", col.Type, v.kind)
	}
	return nil
}

// CellCount returns the total number of cells.
func (db *Database) CellCount() int {
	n := 0
	for _, c := range db.columns {
		n += len(c.cells)
	}
	return n
}

// Equal reports whether two databases hold the same columns, vocabularies and
// cells in the same order. Ids are compared through the names they resolve to,
// so databases built independently compare equal.
func (db *Database) Equal(o *Database) bool {
	if db == nil || o == nil {
		return db == o
	}
	if !vocabListEqual(db.vocab.Predicates(), o.vocab.Predicates()) {
		return false
	}
	if len(db.columns) != len(o.columns) {
		return false
	}
	for i, a := range db.columns {
		b := o.columns[i]
		if a.Name != b.Name || a.Type != b.Type || a.Hidden != b.Hidden || a.Comment != b.Comment {
			return false
		}
		if a.Type == ColumnMatrix && !argsEqual(db.MatrixVocab(a.ID).Args, o.MatrixVocab(b.ID).Args) {
			return false
		}
		if len(a.cells) != len(b.cells) {
			return false
		}
		for j := range a.cells {
			ca, cb := a.cells[j], b.cells[j]
			if ca.Onset != cb.Onset || ca.Offset != cb.Offset {
				return false
			}
			if !db.valueEqualAcross(ca.Value, o, cb.Value) {
				return false
			}
		}
	}
	return true
}

// valueEqualAcross compares values whose predicate ids belong to different
// registries.
func (db *Database) valueEqualAcross(a Value, o *Database, b Value) bool {
	if a.kind != KindPredicate || b.kind != KindPredicate {
		return a.Equal(b)
	}
	if (a.pred == NoVocab) != (b.pred == NoVocab) {
		return false
	}
	if a.pred != NoVocab && db.vocab.Get(a.pred).Name != o.vocab.Get(b.pred).Name {
		return false
	}
	if len(a.args) != len(b.args) {
		return false
	}
	for i := range a.args {
		if !a.args[i].Equal(b.args[i]) {
			return false
		}
	}
	return true
}

func vocabListEqual(a, b []*VocabElement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !argsEqual(a[i].Args, b[i].Args) {
			return false
		}
	}
	return true
}

func argsEqual(a, b []FormalArg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
