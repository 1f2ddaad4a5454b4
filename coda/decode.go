package coda

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ============================================================
// Decoder
// ============================================================
//
// States:
//   Start -> [#N marker] -> Definitions* -> Header -> Cells -> Header -> ... -> EOF
//
// Each Header -> Cells cycle creates exactly one column before its cells are
// read. The first line that does not begin with a digit ends a cell block and
// becomes the next header.

// queryVarName marks old query variables, which are skipped with their cells.
const queryVarName = "###QueryVar###"

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// Name of the resulting database.
	Name string

	// Predicates seeds the vocabulary before the file is read. Legacy files
	// carry no definitions block, so their predicate cells resolve only
	// against seeded elements.
	Predicates []*VocabElement

	// Logger receives lenient-recovery and skip notices. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Decode reads an annotation file into a new Database. On any fatal error the
// partially built model is discarded and a *DecodeError is returned. The
// context is checked before each column header.
func Decode(ctx context.Context, r io.Reader, opts DecodeOptions) (*Database, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &decoder{
		sc:      newLineScanner(r),
		db:      New(opts.Name),
		version: VersionLegacy,
		logger:  logger.With("component", "decode"),
	}

	for _, ve := range opts.Predicates {
		if _, err := d.db.DefinePredicate(ve.Name, ve.Args...); err != nil {
			return nil, &DecodeError{Kind: ErrKindVocab, Name: ve.Name, Err: err}
		}
	}

	if err := d.run(ctx); err != nil {
		return nil, err
	}

	d.logger.Debug("decoded",
		"version", d.version.String(),
		"columns", len(d.db.columns),
		"cells", d.db.CellCount())
	return d.db, nil
}

// DecodeString decodes an annotation file held in a string.
func DecodeString(s string) (*Database, error) {
	return Decode(context.Background(), strings.NewReader(s), DecodeOptions{})
}

type decoder struct {
	sc      *lineScanner
	db      *Database
	version Version
	logger  *slog.Logger
	cells   *cellDecoder
	cellAt  int // line number of the cell being decoded
}

func (d *decoder) run(ctx context.Context) error {
	line, ok := d.next()
	if !ok {
		return d.scanErr()
	}

	if v, isMarker := ParseVersionLine(line); isMarker {
		d.version = v
		var err error
		if line, ok, err = d.parseDefinitions(); err != nil {
			return err
		}
	}

	d.cells = &cellDecoder{
		db:      d.db,
		escaped: d.version.Escaped(),
		warn: func(format string, args ...any) {
			d.logger.Debug(fmt.Sprintf(format, args...), "line", d.cellAt)
		},
	}

	for ok {
		if err := ctx.Err(); err != nil {
			return &DecodeError{Line: d.sc.lineNo, Kind: ErrKindCanceled, Err: err}
		}
		if strings.TrimSpace(line) == "" {
			line, ok = d.next()
			continue
		}
		var err error
		if line, ok, err = d.parseVariable(line); err != nil {
			return err
		}
	}

	return d.scanErr()
}

// next returns the next physical line.
func (d *decoder) next() (string, bool) {
	if !d.sc.Scan() {
		return "", false
	}
	return d.sc.Text(), true
}

func (d *decoder) scanErr() error {
	if err := d.sc.Err(); err != nil {
		return &DecodeError{Line: d.sc.lineNo, Kind: ErrKindIO, Err: err}
	}
	return nil
}

// parseDefinitions consumes the predicate definitions block and returns the
// first line after it.
func (d *decoder) parseDefinitions() (string, bool, error) {
	for {
		line, ok := d.next()
		if !ok || !startsWithDigit(line) {
			return line, ok, nil
		}

		_, name, args, err := ParseDefinition(line)
		if err != nil {
			return "", false, &DecodeError{Line: d.sc.lineNo, Kind: ErrKindDefinition, Err: err}
		}

		// A seeded element may be repeated by the file verbatim.
		if seeded, lookupErr := d.db.vocab.LookupPredicate(name); lookupErr == nil {
			if argsEqual(seeded.Args, args) {
				continue
			}
		}

		if _, err := d.db.DefinePredicate(name, args...); err != nil {
			kind := ErrKindDefinition
			if errors.Is(err, ErrDuplicateName) {
				kind = ErrKindVocab
			}
			return "", false, &DecodeError{Line: d.sc.lineNo, Kind: kind, Name: name, Err: err}
		}
	}
}

// parseVariable reads one header and its cell block, returning the first
// line after the block.
func (d *decoder) parseVariable(header string) (string, bool, error) {
	headerLine := d.sc.lineNo

	h, err := ParseColumnHeader(header, d.version)
	if err != nil {
		return "", false, &DecodeError{Line: headerLine, Kind: ErrKindHeader, Err: err}
	}

	if h.Name == queryVarName {
		d.logger.Info("skipping query variable", "line", headerLine)
		line, ok := d.next()
		for ok && startsWithDigit(line) {
			line, ok = d.next()
		}
		return line, ok, nil
	}

	col, err := d.createColumn(h)
	if err != nil {
		kind := ErrKindHeader
		if errors.Is(err, ErrDuplicateName) {
			kind = ErrKindVocab
		}
		return "", false, &DecodeError{Line: headerLine, Kind: kind, Name: h.Name, Err: err}
	}
	if col.Type == ColumnUndefined {
		d.logger.Warn("unknown column type, cells kept verbatim",
			"column", col.Name, "type", h.RawType, "line", headerLine)
	}

	line, ok := d.next()
	for ok && startsWithDigit(line) {
		d.cellAt = d.sc.lineNo
		if col.Type == ColumnText {
			line = d.joinContinuations(line)
		}
		if err := d.parseCell(col, line); err != nil {
			return "", false, err
		}
		line, ok = d.next()
	}
	return line, ok, nil
}

func (d *decoder) createColumn(h *ColumnHeader) (*Column, error) {
	var (
		col *Column
		err error
	)
	if h.Type == ColumnMatrix {
		col, err = d.db.AddMatrixColumn(h.Name, h.Args...)
	} else {
		col, err = d.db.AddColumn(h.Name, h.Type)
	}
	if err != nil {
		return nil, err
	}
	col.Hidden = h.Hidden
	col.Comment = h.Comment
	return col, nil
}

// joinContinuations appends following physical lines while the current line
// ends in an unescaped backslash, replacing each marker with a line break.
func (d *decoder) joinContinuations(line string) string {
	for endsWithContinuation(line) {
		line = line[:len(line)-1]
		next, ok := d.next()
		if !ok {
			break
		}
		line += "\n" + next
	}
	return line
}

func (d *decoder) parseCell(col *Column, line string) error {
	cl, err := parseCellLine(line, d.version.Escaped())
	if err != nil {
		return &DecodeError{Line: d.cellAt, Kind: ErrKindCell, Name: col.Name, Err: err}
	}

	v, err := d.cells.decode(col, cl.fields)
	if err != nil {
		kind := ErrKindCell
		if errors.Is(err, ErrUnknownVocab) {
			kind = ErrKindVocab
		}
		return &DecodeError{Line: d.cellAt, Kind: kind, Name: col.Name, Err: err}
	}

	if _, err := d.db.AppendCell(col.ID, cl.onset, cl.offset, v); err != nil {
		return &DecodeError{Line: d.cellAt, Kind: ErrKindCell, Name: col.Name, Err: err}
	}
	return nil
}

func startsWithDigit(line string) bool {
	return len(line) > 0 && line[0] >= '0' && line[0] <= '9'
}
