package vm

import (
	"strconv"
	"strings"

	"github.com/chazu/stackfx/effect"
)

// Value is a runtime value. Kind selects which field is meaningful:
// Num, Bool and Str for atomic kinds, Items for arrays and wrapped values,
// Elems for tuples.
type Value struct {
	Kind  effect.Kind
	Num   float64
	Bool  bool
	Str   string
	Items []Value   // array, wrapped: the values the inner expression produced
	Elems [][]Value // tuple: one value list per element
}

// NewNumber returns a number value.
func NewNumber(f float64) Value {
	return Value{Kind: effect.KindNumber, Num: f}
}

// NewBoolean returns a boolean value.
func NewBoolean(b bool) Value {
	return Value{Kind: effect.KindBoolean, Bool: b}
}

// NewString returns a string value.
func NewString(s string) Value {
	return Value{Kind: effect.KindString, Str: s}
}

// NewArray returns an array holding items.
func NewArray(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: effect.KindArray, Items: items}
}

// NewWrapped returns a wrapped value holding items.
func NewWrapped(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: effect.KindWrapped, Items: items}
}

// NewTuple returns a tuple with the given element value lists.
func NewTuple(elems [][]Value) Value {
	if elems == nil {
		elems = [][]Value{}
	}
	return Value{Kind: effect.KindTuple, Elems: elems}
}

// String renders v as program text that would push it again.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.Kind {
	case effect.KindNumber:
		b.WriteString(strconv.FormatFloat(v.Num, 'g', -1, 64))
	case effect.KindBoolean:
		b.WriteString(strconv.FormatBool(v.Bool))
	case effect.KindString:
		quote := "'"
		if strings.Contains(v.Str, "'") {
			quote = `"`
		}
		b.WriteString(quote + v.Str + quote)
	case effect.KindArray:
		b.WriteByte('[')
		formatValues(b, v.Items)
		b.WriteByte(']')
	case effect.KindWrapped:
		b.WriteByte('{')
		formatValues(b, v.Items)
		b.WriteByte('}')
	case effect.KindTuple:
		b.WriteByte('(')
		for i, elem := range v.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			formatValues(b, elem)
		}
		b.WriteByte(')')
	default:
		b.WriteString("<invalid>")
	}
}

func formatValues(b *strings.Builder, vals []Value) {
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		v.format(b)
	}
}

// FormatValues renders a value list the way it would appear on a stack,
// bottom first.
func FormatValues(vals []Value) string {
	var b strings.Builder
	formatValues(&b, vals)
	return b.String()
}

// Interface converts v to plain Go values: float64, bool, string, and
// []any for arrays, wrapped values and tuples (a tuple is a list of
// element lists).
func (v Value) Interface() any {
	switch v.Kind {
	case effect.KindNumber:
		return v.Num
	case effect.KindBoolean:
		return v.Bool
	case effect.KindString:
		return v.Str
	case effect.KindArray, effect.KindWrapped:
		return Interfaces(v.Items)
	case effect.KindTuple:
		out := make([]any, len(v.Elems))
		for i, elem := range v.Elems {
			out[i] = Interfaces(elem)
		}
		return out
	}
	return nil
}

// Interfaces converts every value of vals with Interface.
func Interfaces(vals []Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.Interface()
	}
	return out
}

// Equal reports whether v and w hold the same kind and contents.
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	switch v.Kind {
	case effect.KindNumber:
		return v.Num == w.Num
	case effect.KindBoolean:
		return v.Bool == w.Bool
	case effect.KindString:
		return v.Str == w.Str
	case effect.KindArray, effect.KindWrapped:
		return equalValues(v.Items, w.Items)
	case effect.KindTuple:
		if len(v.Elems) != len(w.Elems) {
			return false
		}
		for i := range v.Elems {
			if !equalValues(v.Elems[i], w.Elems[i]) {
				return false
			}
		}
		return true
	}
	return true
}

func equalValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
