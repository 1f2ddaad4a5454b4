package coda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidatorClean(t *testing.T) {
	db := decode(t, "Var (nominal)\n0,1000,red\n1000,2000,blue\n")

	res := NewValidator().Validate(db)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidatorFindings(t *testing.T) {
	db := decode(t, "I (integer)\n0,10,abc\n20,5,3\n1,2,4\nM (matrix)-x|integer,y|float\n0,1,[3,<y>]\n")

	res := NewValidator().Validate(db)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"offset_before_onset"}, codes(res.Errors))
	assert.Equal(t, []string{"unset_value", "out_of_order", "unset_argument"}, codes(res.Warnings))

	assert.Equal(t, "I[1]", res.Errors[0].Path)
	assert.Equal(t, "M[0].y", res.Warnings[2].Path)
	assert.Equal(t, "M[0].y: argument <y> is unset", res.Warnings[2].Error())
}

func TestStrictValidator(t *testing.T) {
	db := decode(t, "I (integer)\n0,10,abc\n")

	res := NewValidator().Validate(db)
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)

	res = NewStrictValidator().Validate(db)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"unset_value"}, codes(res.Errors))
	assert.Empty(t, res.Warnings)
}
