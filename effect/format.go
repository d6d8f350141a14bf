package effect

import (
	"reflect"
	"strings"
)

// String renders s in stack-effect notation, for example
// "number number -- number" or "-- [ -- string ]".
func (s Signature) String() string {
	return effectString(s.Types, Effect{Input: s.Input, Output: s.Output})
}

// Describe renders the type of value id.
func (s Signature) Describe(id ID) string {
	return describe(s.Types, id)
}

func effectString(t Table, e Effect) string {
	parts := make([]string, 0, len(e.Input)+len(e.Output)+1)
	for _, id := range e.Input {
		parts = append(parts, describe(t, id))
	}
	parts = append(parts, "--")
	for _, id := range e.Output {
		parts = append(parts, describe(t, id))
	}
	return strings.Join(parts, " ")
}

func describe(t Table, id ID) string {
	typ, ok := t[id]
	if !ok {
		return "?"
	}
	switch typ.Kind {
	case KindArray:
		return "[ " + innerString(t, typ.Inner) + " ]"
	case KindWrapped:
		return "{ " + innerString(t, typ.Inner) + " }"
	case KindTuple:
		if len(typ.Elems) == 0 {
			return "( )"
		}
		elems := make([]string, len(typ.Elems))
		for i, e := range typ.Elems {
			elems[i] = effectString(t, e)
		}
		return "( " + strings.Join(elems, ", ") + " )"
	}
	return typ.Kind.String()
}

func innerString(t Table, e *Effect) string {
	if e == nil {
		return "--"
	}
	return effectString(t, *e)
}

// ---------------------------------------------------------------------------
// Canonical form
// ---------------------------------------------------------------------------

// Canonical renumbers s so that identifiers count up from 0 in order of
// first appearance: inputs, then outputs, each followed depth-first by the
// identifiers its nested effects reference. Unreachable table entries are
// dropped. Two signatures that differ only in numbering have equal
// canonical forms.
func Canonical(s Signature) Signature {
	mapping := make(map[ID]ID)
	var order []ID
	var visit func(ID)
	visit = func(id ID) {
		if _, done := mapping[id]; done {
			return
		}
		mapping[id] = ID(len(order))
		order = append(order, id)
		if t, ok := s.Types[id]; ok {
			t.refs(visit)
		}
	}
	for _, id := range s.Input {
		visit(id)
	}
	for _, id := range s.Output {
		visit(id)
	}

	remap := func(ids []ID) []ID {
		out := make([]ID, len(ids))
		for i, id := range ids {
			out[i] = mapping[id]
		}
		return out
	}
	remapEffect := func(e Effect) Effect {
		return Effect{Input: remap(e.Input), Output: remap(e.Output)}
	}

	types := make(Table, len(order))
	for _, old := range order {
		t, ok := s.Types[old]
		if !ok {
			continue
		}
		nt := Type{Kind: t.Kind}
		if t.Inner != nil {
			inner := remapEffect(*t.Inner)
			nt.Inner = &inner
		}
		if t.Kind == KindTuple {
			nt.Elems = make([]Effect, len(t.Elems))
			for i, e := range t.Elems {
				nt.Elems[i] = remapEffect(e)
			}
		}
		types[mapping[old]] = nt
	}
	return Signature{Input: remap(s.Input), Output: remap(s.Output), Types: types}
}

// Equal reports whether a and b describe the same effect up to renumbering.
func Equal(a, b Signature) bool {
	return reflect.DeepEqual(Canonical(a), Canonical(b))
}
