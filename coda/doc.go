// Package coda reads and writes temporal behavioural-coding annotation files.
//
// A Database holds typed columns (variables). Each column owns time-ordered
// cells whose values are scalars, matrices shaped by the column's own
// vocabulary, or invocations of named predicates from a shared vocabulary.
//
// # File Format
//
// Line oriented. An optional version marker opens the file; version 2 and
// later enable backslash escaping and a predicate definitions block:
//
//	#2
//	0:greet-a|nominal,b|integer
//	Var (NOMINAL)
//	0,1000,red
//	M (MATRIX)-x|INTEGER,y|FLOAT
//	0,500,[3,2.5]
//	P (PREDICATE)
//	0,500,greet(hi,3)
//	500,900,()
//
// A header is followed by its cells; a cell line starts with a digit (the
// onset tick) and the first line that does not ends the block.
//
// # Values
//
// Value is a closed union: Text, Nominal, Int, Float, Matrix, Predicate and
// Empty. Empty is what the decoder produces for an absent or unparseable
// token; it is never coerced to a zero or blank value.
//
// # Errors
//
// Header and vocabulary errors are fatal and surface as *DecodeError with no
// partial Database. Bad numeric tokens are recovered as Empty and logged at
// debug level; use Validator for strict checking after a decode.
package coda
