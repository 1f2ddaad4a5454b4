package coda

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// EncodeOptions configures the encoder.
type EncodeOptions struct {
	// Version selects the output format. Zero means Version2.
	Version Version

	// Logger receives format notices. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultEncodeOptions returns options for version 2 output.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{Version: Version2}
}

// Encode writes db in the annotation file format. Columns and cells are
// written in their stored order.
func Encode(w io.Writer, db *Database, opts EncodeOptions) error {
	if opts.Version == 0 {
		opts.Version = Version2
	}
	if opts.Version < VersionLegacy || opts.Version > Version4 {
		return fmt.Errorf("coda: unsupported version %d", opts.Version)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bw := bufio.NewWriter(w)
	e := &encoder{
		w:       bw,
		db:      db,
		version: opts.Version,
		cells:   &cellEncoder{db: db, escaped: opts.Version.Escaped()},
	}
	if err := e.encode(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	// Legacy files carry no definitions block.
	if !e.version.Escaped() && e.invocations > 0 {
		logger.With("component", "encode").Warn("legacy output has predicate invocations; readers need the definitions from a separate file",
			"invocations", e.invocations,
			"predicates", len(db.vocab.Predicates()))
	}
	return nil
}

// EncodeString encodes db as version 2 text.
func EncodeString(db *Database) (string, error) {
	var b strings.Builder
	if err := Encode(&b, db, DefaultEncodeOptions()); err != nil {
		return "", err
	}
	return b.String(), nil
}

type encoder struct {
	w       *bufio.Writer
	db      *Database
	version Version
	cells   *cellEncoder
	line    strings.Builder

	invocations int
}

func (e *encoder) encode() error {
	if e.version.Escaped() {
		if err := e.writeLine(e.version.Marker()); err != nil {
			return err
		}
		for i, ve := range e.db.vocab.Predicates() {
			if err := e.writeLine(EmitDefinition(i, ve)); err != nil {
				return err
			}
		}
	}

	for _, col := range e.db.columns {
		if err := e.encodeColumn(col); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeColumn(col *Column) error {
	h := &ColumnHeader{
		Name:    col.Name,
		Type:    col.Type,
		Hidden:  col.Hidden,
		Comment: col.Comment,
	}
	if col.Type == ColumnMatrix {
		ve := e.db.MatrixVocab(col.ID)
		if ve == nil {
			return &EncodeError{Column: col.Name, Cell: -1, Err: fmt.Errorf("matrix column has no vocabulary")}
		}
		h.Args = ve.Args
	}
	if err := e.writeLine(EmitColumnHeader(h, e.version)); err != nil {
		return err
	}

	for i, c := range col.cells {
		// Data lines are recognised by a leading digit.
		if c.Onset < 0 || c.Offset < 0 {
			return &EncodeError{Column: col.Name, Cell: i,
				Err: fmt.Errorf("%w: negative timestamp", ErrUnrepresentable)}
		}
		payload, err := e.cells.encode(col, c.Value)
		if err != nil {
			return &EncodeError{Column: col.Name, Cell: i, Err: err}
		}
		if c.Value.PredicateID() != NoVocab {
			e.invocations++
		}
		e.line.Reset()
		e.line.WriteString(strconv.FormatInt(int64(c.Onset), 10))
		e.line.WriteByte(',')
		e.line.WriteString(strconv.FormatInt(int64(c.Offset), 10))
		e.line.WriteByte(',')
		e.line.WriteString(payload)
		if err := e.writeLine(e.line.String()); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeLine(s string) error {
	if _, err := e.w.WriteString(s); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
