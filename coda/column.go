package coda

import "strings"

// ColumnType is the type tag of a column.
type ColumnType uint8

const (
	ColumnUndefined ColumnType = iota
	ColumnText
	ColumnNominal
	ColumnInteger
	ColumnFloat
	ColumnMatrix
	ColumnPredicate
)

// String returns the keyword written to column headers.
func (t ColumnType) String() string {
	switch t {
	case ColumnText:
		return "TEXT"
	case ColumnNominal:
		return "NOMINAL"
	case ColumnInteger:
		return "INTEGER"
	case ColumnFloat:
		return "FLOAT"
	case ColumnMatrix:
		return "MATRIX"
	case ColumnPredicate:
		return "PREDICATE"
	default:
		return "UNDEFINED"
	}
}

// ParseColumnType matches a header type keyword case-insensitively.
// Unrecognised keywords yield ColumnUndefined.
func ParseColumnType(s string) ColumnType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ColumnText
	case "nominal":
		return ColumnNominal
	case "integer":
		return ColumnInteger
	case "float":
		return ColumnFloat
	case "matrix":
		return ColumnMatrix
	case "predicate":
		return ColumnPredicate
	default:
		return ColumnUndefined
	}
}

// IsScalar reports whether cells of this type hold a single scalar payload.
func (t ColumnType) IsScalar() bool {
	switch t {
	case ColumnText, ColumnNominal, ColumnInteger, ColumnFloat:
		return true
	default:
		return false
	}
}

// ColumnID identifies a column within a Database. Ids are never reused.
type ColumnID int

// CellID identifies a cell within a Database. Ids are never reused.
type CellID int

// Ticks is an onset or offset in the database time base.
type Ticks int64

// Column is a named, typed annotation variable.
type Column struct {
	ID      ColumnID
	Name    string
	Type    ColumnType
	Ordinal int     // position in column order
	Hidden  bool    // written by #3 and #4 headers
	Comment string  // written by #4 headers
	Vocab   VocabID // matrix vocabulary, NoVocab for other types

	cells []Cell
}

// Cell is a single timed observation.
type Cell struct {
	ID     CellID
	Column ColumnID
	Onset  Ticks
	Offset Ticks
	Value  Value
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	return len(c.cells)
}

// Cells returns the column's cells in file order.
func (c *Column) Cells() []Cell {
	out := make([]Cell, len(c.cells))
	copy(out, c.cells)
	return out
}

// Cell returns the i-th cell in file order.
func (c *Column) Cell(i int) (Cell, bool) {
	if i < 0 || i >= len(c.cells) {
		return Cell{}, false
	}
	return c.cells[i], true
}
