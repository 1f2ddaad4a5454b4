package coda

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildValue builds the value of one matrix or predicate argument from its raw
// field token. Blank tokens, tokens equal to the argument's placeholder name
// ("<x>") and unparseable numbers all yield Empty. When escaped is set the
// token is unescaped before use.
func BuildValue(token string, fa FormalArg, escaped bool) Value {
	v, _ := buildValue(token, fa, escaped)
	return v
}

// buildValue is BuildValue that also reports a lenient substitution.
func buildValue(token string, fa FormalArg, escaped bool) (Value, error) {
	if token == "" || isPlaceholder(token, fa, escaped) {
		return Empty(), nil
	}

	switch fa.Kind {
	case ArgText:
		t := strings.TrimSpace(token)
		if len(t) >= 2 && t[0] == '"' && t[len(t)-1] == '"' {
			token = t[1 : len(t)-1]
		}
		return Text(unescapeIf(token, escaped)), nil

	case ArgNominal, ArgUntyped:
		return Nominal(unescapeIf(token, escaped)), nil

	case ArgInteger:
		return parseIntValue(token)

	case ArgFloat:
		return parseFloatValue(token)

	default:
		return Empty(), fmt.Errorf("unknown argument kind %d", fa.Kind)
	}
}

// scalarValue builds the payload of a Text, Nominal, Integer or Float cell.
func scalarValue(typ ColumnType, token string, escaped bool) (Value, error) {
	if token == "" {
		return Empty(), nil
	}
	switch typ {
	case ColumnText:
		return Text(unescapeIf(token, escaped)), nil
	case ColumnNominal:
		return Nominal(unescapeIf(token, escaped)), nil
	case ColumnInteger:
		return parseIntValue(token)
	case ColumnFloat:
		return parseFloatValue(token)
	default:
		return Empty(), fmt.Errorf("%s is not a scalar column type", typ)
	}
}

func parseIntValue(token string) (Value, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return Empty(), nil
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return Empty(), fmt.Errorf("integer %q: %w", t, err)
	}
	return Int(n), nil
}

func parseFloatValue(token string) (Value, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return Empty(), nil
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return Empty(), fmt.Errorf("float %q: %w", t, err)
	}
	return Float(f), nil
}

// isPlaceholder reports whether token is the argument's own name, which
// stands for an unset argument.
func isPlaceholder(token string, fa FormalArg, escaped bool) bool {
	t := strings.TrimSpace(token)
	return t == fa.Name || (escaped && Unescape(t) == fa.Name)
}

func unescapeIf(s string, escaped bool) string {
	if escaped {
		return Unescape(s)
	}
	return s
}
