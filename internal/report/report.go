// Package report summarizes annotation databases as Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Neumenon/coda/coda"
)

// Summary is a per-column overview of a database.
type Summary struct {
	Name       string
	Cells      int
	Columns    []ColumnSummary
	Predicates []PredicateSummary
}

// ColumnSummary describes one column.
type ColumnSummary struct {
	Name   string
	Type   coda.ColumnType
	Hidden bool
	Cells  int
	Empty  int        // cells with no value
	Start  coda.Ticks // earliest onset
	End    coda.Ticks // latest offset
	Schema string     // matrix arguments, e.g. "x INTEGER, y FLOAT"
}

// PredicateSummary describes one predicate and how often cells invoke it.
type PredicateSummary struct {
	Name   string
	Schema string
	Uses   int
}

// Summarize walks db once and collects counts and time spans.
func Summarize(db *coda.Database) Summary {
	s := Summary{Name: db.Name, Cells: db.CellCount()}

	preds := db.Registry().Predicates()
	uses := make(map[coda.VocabID]int, len(preds))

	for _, col := range db.Columns() {
		cs := ColumnSummary{
			Name:   col.Name,
			Type:   col.Type,
			Hidden: col.Hidden,
			Cells:  col.Len(),
		}
		if ve := db.MatrixVocab(col.ID); ve != nil {
			cs.Schema = schema(ve)
		}
		for i, c := range col.Cells() {
			if i == 0 || c.Onset < cs.Start {
				cs.Start = c.Onset
			}
			if i == 0 || c.Offset > cs.End {
				cs.End = c.Offset
			}
			if c.Value.IsEmpty() {
				cs.Empty++
			}
			if id := c.Value.PredicateID(); id != coda.NoVocab {
				uses[id]++
			}
		}
		s.Columns = append(s.Columns, cs)
	}

	for _, ve := range preds {
		s.Predicates = append(s.Predicates, PredicateSummary{
			Name:   ve.Name,
			Schema: schema(ve),
			Uses:   uses[ve.ID],
		})
	}
	return s
}

func schema(ve *coda.VocabElement) string {
	parts := make([]string, len(ve.Args))
	for i, fa := range ve.Args {
		parts[i] = fa.BareName() + " " + fa.Kind.String()
	}
	return strings.Join(parts, ", ")
}

// Markdown renders the summary as a Markdown document with GFM tables.
func Markdown(s Summary) string {
	var b strings.Builder

	title := s.Name
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", cell(title))
	fmt.Fprintf(&b, "%d columns, %d cells, %d predicates.\n", len(s.Columns), s.Cells, len(s.Predicates))

	if len(s.Columns) > 0 {
		b.WriteString("\n## Columns\n\n")
		b.WriteString("| Column | Type | Cells | Empty | Span | Schema |\n")
		b.WriteString("|---|---|---:|---:|---|---|\n")
		for _, c := range s.Columns {
			name := cell(c.Name)
			if c.Hidden {
				name += " (hidden)"
			}
			span := ""
			if c.Cells > 0 {
				span = fmt.Sprintf("%d..%d", c.Start, c.End)
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %s | %s |\n",
				name, c.Type, c.Cells, c.Empty, span, cell(c.Schema))
		}
	}

	if len(s.Predicates) > 0 {
		b.WriteString("\n## Predicates\n\n")
		b.WriteString("| Predicate | Arguments | Uses |\n")
		b.WriteString("|---|---|---:|\n")
		for _, p := range s.Predicates {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", cell(p.Name), cell(p.Schema), p.Uses)
		}
	}

	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`<`, `&lt;`,
)

// cell escapes text for use inside a table cell or heading.
func cell(s string) string {
	return markdownEscaper.Replace(s)
}

var renderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the summary's Markdown to an HTML fragment.
func HTML(s Summary) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(Markdown(s)), &buf); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}
