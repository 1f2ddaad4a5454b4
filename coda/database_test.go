package coda

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabElement(t *testing.T) {
	ve, err := NewVocabElement(VocabPredicate, "greet", []FormalArg{
		{Name: "a", Kind: ArgNominal},
		NewFormalArg("b", ArgInteger),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ve.Arity())
	assert.Equal(t, "<a>", ve.Args[0].Name)
	assert.Equal(t, 1, ve.ArgIndex("b"))
	assert.Equal(t, 1, ve.ArgIndex("<b>"))
	assert.Equal(t, -1, ve.ArgIndex("c"))

	_, err = NewVocabElement(VocabPredicate, "none", nil)
	assert.ErrorIs(t, err, ErrArgumentCountMismatch)

	_, err = NewVocabElement(VocabPredicate, "twice", []FormalArg{NewFormalArg("a", ArgNominal), NewFormalArg("a", ArgFloat)})
	assert.ErrorIs(t, err, ErrDuplicateName)

	for _, bad := range []string{"", " pad", "a(b", "a|b", "line\nbreak"} {
		_, err = NewVocabElement(VocabPredicate, bad, []FormalArg{NewFormalArg("a", ArgNominal)})
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", bad)
	}
}

func TestFormalArgAccepts(t *testing.T) {
	tests := []struct {
		kind ArgKind
		v    Value
		want bool
	}{
		{ArgInteger, Int(1), true},
		{ArgInteger, Float(1), false},
		{ArgFloat, Float(1), true},
		{ArgText, Text("x"), true},
		{ArgText, Nominal("x"), false},
		{ArgNominal, Nominal("x"), true},
		{ArgUntyped, Nominal("x"), true},
		{ArgUntyped, Int(1), false},
		{ArgFloat, Empty(), true},
		{ArgNominal, EmptyPredicate(), false},
	}
	for _, tt := range tests {
		fa := NewFormalArg("a", tt.kind)
		assert.Equal(t, tt.want, fa.Accepts(tt.v), "%s accepts %s", tt.kind, tt.v)
	}
}

func TestParseArgKind(t *testing.T) {
	assert.Equal(t, ArgText, ParseArgKind("QUOTE_STRING"))
	assert.Equal(t, ArgText, ParseArgKind("quote_string"))
	assert.Equal(t, ArgNominal, ParseArgKind(" Nominal "))
	assert.Equal(t, ArgInteger, ParseArgKind("integer"))
	assert.Equal(t, ArgFloat, ParseArgKind("FLOAT"))
	assert.Equal(t, ArgUntyped, ParseArgKind("whatever"))
}

func TestMatrixArityRejected(t *testing.T) {
	ve, err := NewVocabElement(VocabMatrix, "M", []FormalArg{NewFormalArg("x", ArgInteger), NewFormalArg("y", ArgFloat)})
	require.NoError(t, err)

	_, err = NewMatrix(ve, Int(1))
	assert.ErrorIs(t, err, ErrArgumentCountMismatch)
	_, err = NewMatrix(ve, Int(1), Float(2), Float(3))
	assert.ErrorIs(t, err, ErrArgumentCountMismatch)
	_, err = NewMatrix(ve, Float(1), Float(2))
	assert.Error(t, err, "argument kind must match its slot")

	v, err := NewMatrix(ve, Int(1), Empty())
	require.NoError(t, err)
	assert.Len(t, v.Args(), 2)

	_, err = NewPredicate(ve, Int(1), Float(2))
	assert.Error(t, err, "a matrix element cannot back a predicate")
}

func TestValueAccessors(t *testing.T) {
	var zero Value
	assert.True(t, zero.IsEmpty())
	assert.Equal(t, KindEmpty, zero.Kind())

	_, err := Int(3).AsText()
	assert.Error(t, err)
	n, err := Int(3).AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.False(t, Text("a").Equal(Nominal("a")))
	assert.False(t, Int(0).Equal(Empty()))
	assert.True(t, Float(0.5).Equal(Float(0.5)))
	assert.Equal(t, NoVocab, Int(1).PredicateID())

	ve, err := NewVocabElement(VocabMatrix, "M", []FormalArg{NewFormalArg("x", ArgInteger)})
	require.NoError(t, err)
	v, err := NewMatrix(ve, Int(1))
	require.NoError(t, err)
	args := v.Args()
	args[0] = Int(99)
	assert.True(t, v.Args()[0].Equal(Int(1)), "Args returns a copy")
}

func TestRegistryNamespace(t *testing.T) {
	db := New("x")
	_, err := db.DefinePredicate("greet", NewFormalArg("a", ArgNominal))
	require.NoError(t, err)

	_, err = db.DefinePredicate("greet", NewFormalArg("b", ArgNominal))
	assert.ErrorIs(t, err, ErrDuplicateName)

	// A predicate column may carry the name of a predicate it holds.
	_, err = db.AddColumn("greet", ColumnPredicate)
	require.NoError(t, err)

	// Matrix vocabularies share the predicate namespace.
	_, err = db.AddMatrixColumn("greet", NewFormalArg("x", ArgInteger))
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = db.AddMatrixColumn("M", NewFormalArg("x", ArgInteger))
	require.NoError(t, err)
	_, err = db.DefinePredicate("M", NewFormalArg("a", ArgNominal))
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.True(t, db.Registry().NameTaken("M"))

	_, err = db.Registry().LookupPredicate("missing")
	assert.ErrorIs(t, err, ErrUnknownVocab)
}

func TestBindMatrixSchemaReplaces(t *testing.T) {
	db := New("x")
	col, err := db.AddMatrixColumn("M", NewFormalArg("x", ArgInteger))
	require.NoError(t, err)
	id := col.Vocab

	require.NoError(t, db.BindMatrixSchema(col.ID, NewFormalArg("x", ArgInteger), NewFormalArg("y", ArgFloat)))
	assert.Equal(t, id, col.Vocab, "rebinding keeps the id")
	assert.Equal(t, 2, db.MatrixVocab(col.ID).Arity())
	assert.Equal(t, "M", db.MatrixVocab(col.ID).Name)

	assert.Error(t, db.BindMatrixSchema(col.ID))
}

func TestBindMatrixSchemaRejectsCellsThatNoLongerFit(t *testing.T) {
	db := New("x")
	col, err := db.AddMatrixColumn("M", NewFormalArg("x", ArgInteger), NewFormalArg("y", ArgFloat))
	require.NoError(t, err)
	m, err := NewMatrix(db.MatrixVocab(col.ID), Int(3), Float(2.5))
	require.NoError(t, err)
	_, err = db.AppendCell(col.ID, 0, 10, m)
	require.NoError(t, err)

	err = db.BindMatrixSchema(col.ID, NewFormalArg("x", ArgInteger))
	assert.ErrorIs(t, err, ErrArgumentCountMismatch)
	assert.Equal(t, 2, db.MatrixVocab(col.ID).Arity(), "schema unchanged")

	err = db.BindMatrixSchema(col.ID, NewFormalArg("x", ArgInteger), NewFormalArg("y", ArgInteger))
	assert.Error(t, err, "float cell in an integer slot")

	// Renaming the arguments keeps the cells valid.
	require.NoError(t, db.BindMatrixSchema(col.ID, NewFormalArg("a", ArgInteger), NewFormalArg("b", ArgFloat)))

	out, err := EncodeString(db)
	require.NoError(t, err)
	assert.Equal(t, "#2\nM (MATRIX)-a|INTEGER,b|FLOAT\n0,10,[3,2.5]\n", out)
}

func TestBindMatrixSchemaRejectsOtherColumns(t *testing.T) {
	db := New("x")
	nom, err := db.AddColumn("V", ColumnNominal)
	require.NoError(t, err)

	err = db.BindMatrixSchema(nom.ID, NewFormalArg("x", ArgInteger))
	assert.Error(t, err)
	assert.Nil(t, db.MatrixVocab(nom.ID))
	assert.False(t, db.Registry().NameTaken("V"))

	err = db.BindMatrixSchema(ColumnID(999), NewFormalArg("x", ArgInteger))
	assert.Error(t, err)
	assert.Empty(t, db.Registry().Predicates())

	_, err = db.AddMatrixColumn("Ghost", NewFormalArg("x", ArgInteger))
	assert.NoError(t, err, "name stays free after a rejected bind")
}

func TestAddColumn(t *testing.T) {
	db := New("x")

	_, err := db.AddColumn("V", ColumnNominal)
	require.NoError(t, err)

	_, err = db.AddColumn("V", ColumnText)
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = db.AddColumn("M", ColumnMatrix)
	assert.Error(t, err, "matrix columns need arguments")

	_, err = db.AddColumn("9lives", ColumnText)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = db.AddColumn("a(b", ColumnText)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = db.AddMatrixColumn("Empty")
	assert.ErrorIs(t, err, ErrArgumentCountMismatch)
	assert.Nil(t, db.ColumnByName("Empty"), "failed matrix column leaves nothing behind")

	cols := db.Columns()
	require.Len(t, cols, 1)
	assert.Equal(t, 0, cols[0].Ordinal)
}

func TestAppendCellChecksType(t *testing.T) {
	db := New("x")
	greetID, err := db.DefinePredicate("greet", NewFormalArg("a", ArgNominal))
	require.NoError(t, err)

	nom, err := db.AddColumn("N", ColumnNominal)
	require.NoError(t, err)
	_, err = db.AppendCell(nom.ID, 0, 1, Int(3))
	assert.Error(t, err)
	_, err = db.AppendCell(nom.ID, 0, 1, Empty())
	assert.NoError(t, err)

	mat, err := db.AddMatrixColumn("M", NewFormalArg("x", ArgInteger))
	require.NoError(t, err)
	pv, err := NewPredicate(db.Registry().Get(greetID), Nominal("a"))
	require.NoError(t, err)
	_, err = db.AppendCell(mat.ID, 0, 1, pv)
	assert.Error(t, err, "matrix column rejects predicate values")

	other, err := NewVocabElement(VocabMatrix, "Other", []FormalArg{NewFormalArg("x", ArgInteger), NewFormalArg("y", ArgInteger)})
	require.NoError(t, err)
	mv, err := NewMatrix(other, Int(1), Int(2))
	require.NoError(t, err)
	_, err = db.AppendCell(mat.ID, 0, 1, mv)
	assert.ErrorIs(t, err, ErrArgumentCountMismatch, "matrix value must fit the column schema")

	pred, err := db.AddColumn("P", ColumnPredicate)
	require.NoError(t, err)
	_, err = db.AppendCell(pred.ID, 0, 1, pv)
	assert.NoError(t, err)
	_, err = db.AppendCell(pred.ID, 0, 1, EmptyPredicate())
	assert.NoError(t, err)

	foreign := New("y")
	fid, err := foreign.DefinePredicate("a1", NewFormalArg("a", ArgNominal))
	require.NoError(t, err)
	_, err = foreign.DefinePredicate("a2", NewFormalArg("a", ArgNominal))
	require.NoError(t, err)
	fv, err := NewPredicate(foreign.Registry().Predicates()[1], Nominal("z"))
	require.NoError(t, err)
	assert.NotEqual(t, fid, fv.PredicateID())
	_, err = db.AppendCell(pred.ID, 0, 1, fv)
	assert.ErrorIs(t, err, ErrUnknownVocab)

	_, err = db.AppendCell(ColumnID(999), 0, 1, Empty())
	assert.Error(t, err)
}

func TestSetComment(t *testing.T) {
	db := New("x")
	col, err := db.AddColumn("V", ColumnNominal)
	require.NoError(t, err)

	require.NoError(t, db.SetComment(col.ID, "fine, really"))
	assert.ErrorIs(t, db.SetComment(col.ID, "bad)"), ErrUnrepresentable)
	assert.ErrorIs(t, db.SetComment(col.ID, "two\nlines"), ErrUnrepresentable)
	assert.Equal(t, "fine, really", col.Comment)
}

func TestDatabaseEqualAcrossRegistries(t *testing.T) {
	src := "#2\n0:greet-a|nominal\nP (predicate)\n0,1,greet(x)\n"
	a, err := Decode(context.Background(), strings.NewReader(src), DecodeOptions{Logger: quietLogger()})
	require.NoError(t, err)

	// Seeding an unrelated predicate first shifts every id in b.
	seed, err := NewVocabElement(VocabPredicate, "zzz", []FormalArg{NewFormalArg("q", ArgNominal)})
	require.NoError(t, err)
	b, err := Decode(context.Background(),
		strings.NewReader("#2\n0:greet-a|nominal\nP (predicate)\n0,1,greet(x)\n"),
		DecodeOptions{Predicates: []*VocabElement{seed}, Logger: quietLogger()})
	require.NoError(t, err)
	assert.False(t, a.Equal(b), "predicate lists differ")

	c, err := Decode(context.Background(), strings.NewReader(src), DecodeOptions{Logger: quietLogger()})
	require.NoError(t, err)
	assert.True(t, a.Equal(c))

	d, err := Decode(context.Background(), strings.NewReader(strings.Replace(src, "greet(x)", "greet(y)", 1)), DecodeOptions{Logger: quietLogger()})
	require.NoError(t, err)
	assert.False(t, a.Equal(d))
}
