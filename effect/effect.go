// Package effect implements stack-effect signatures and the algebra that
// composes them.
//
// A Signature describes what a token or a sequence of tokens does to the
// stack: which values it requires (Input), which it leaves behind (Output)
// and the type of every value involved (Types). Identifiers are local to one
// signature; composing two signatures first shifts the second past the
// identifiers used by the first.
package effect

import (
	"fmt"
	"sort"
)

// ID identifies a value within one signature's type table.
type ID int

// Kind tags a type descriptor.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindBoolean
	KindString
	KindArray
	KindWrapped
	KindTuple
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindNumber:  "number",
	KindBoolean: "boolean",
	KindString:  "string",
	KindArray:   "array",
	KindWrapped: "wrapped",
	KindTuple:   "tuple",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsAtomic reports whether k carries no nested effect.
func (k Kind) IsAtomic() bool {
	return k == KindNumber || k == KindBoolean || k == KindString
}

// ParseKind maps a kind name ("number", "array", ...) to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && k != KindInvalid {
			return k, true
		}
	}
	return KindInvalid, false
}

// Effect is a nested stack effect. Its identifiers resolve in the type
// table of the signature that contains it.
type Effect struct {
	Input  []ID `cbor:"1,keyasint"`
	Output []ID `cbor:"2,keyasint"`
}

// Type is a type descriptor.
type Type struct {
	Kind  Kind     `cbor:"1,keyasint"`
	Inner *Effect  `cbor:"2,keyasint,omitempty"` // array, wrapped
	Elems []Effect `cbor:"3,keyasint,omitempty"` // tuple
}

// Atomic returns the descriptor of an atomic kind.
func Atomic(k Kind) Type {
	return Type{Kind: k}
}

// ArrayOf returns an array descriptor holding e.
func ArrayOf(e Effect) Type {
	return Type{Kind: KindArray, Inner: &e}
}

// WrappedOf returns a wrapped descriptor holding e.
func WrappedOf(e Effect) Type {
	return Type{Kind: KindWrapped, Inner: &e}
}

// TupleOf returns a tuple descriptor with the given element effects.
func TupleOf(elems ...Effect) Type {
	if elems == nil {
		elems = []Effect{}
	}
	return Type{Kind: KindTuple, Elems: elems}
}

// refs calls fn for every identifier the descriptor references.
func (t Type) refs(fn func(ID)) {
	if t.Inner != nil {
		for _, id := range t.Inner.Input {
			fn(id)
		}
		for _, id := range t.Inner.Output {
			fn(id)
		}
	}
	for _, e := range t.Elems {
		for _, id := range e.Input {
			fn(id)
		}
		for _, id := range e.Output {
			fn(id)
		}
	}
}

// Table maps identifiers to type descriptors.
type Table map[ID]Type

// Signature is the net effect of a token or a token sequence.
type Signature struct {
	Input  []ID  `cbor:"1,keyasint"`
	Output []ID  `cbor:"2,keyasint"`
	Types  Table `cbor:"3,keyasint"`
}

// Empty returns the signature of the empty sequence.
func Empty() Signature {
	return Signature{Input: []ID{}, Output: []ID{}, Types: Table{}}
}

// Literal returns the signature of a token that pushes one value of kind k.
func Literal(k Kind) Signature {
	return Signature{
		Input:  []ID{},
		Output: []ID{0},
		Types:  Table{0: Atomic(k)},
	}
}

// Next returns the lowest identifier not used by s.
func (s Signature) Next() ID {
	next := ID(0)
	for id := range s.Types {
		if id >= next {
			next = id + 1
		}
	}
	for _, id := range s.Input {
		if id >= next {
			next = id + 1
		}
	}
	for _, id := range s.Output {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// Shift returns a copy of s with every identifier increased by offset.
func (s Signature) Shift(offset ID) Signature {
	shift := func(ids []ID) []ID {
		out := make([]ID, len(ids))
		for i, id := range ids {
			out[i] = id + offset
		}
		return out
	}
	shiftEffect := func(e Effect) Effect {
		return Effect{Input: shift(e.Input), Output: shift(e.Output)}
	}

	types := make(Table, len(s.Types))
	for id, t := range s.Types {
		nt := Type{Kind: t.Kind}
		if t.Inner != nil {
			inner := shiftEffect(*t.Inner)
			nt.Inner = &inner
		}
		if t.Elems != nil {
			nt.Elems = make([]Effect, len(t.Elems))
			for i, e := range t.Elems {
				nt.Elems[i] = shiftEffect(e)
			}
		}
		types[id+offset] = nt
	}
	return Signature{Input: shift(s.Input), Output: shift(s.Output), Types: types}
}

// Effect returns the identifier lists of s without its table.
func (s Signature) Effect() Effect {
	return Effect{Input: cloneIDs(s.Input), Output: cloneIDs(s.Output)}
}

// Nested returns the effect held by the composite value id as a standalone
// signature whose table holds only the identifiers that effect reaches.
func (s Signature) Nested(id ID) (Signature, bool) {
	t, ok := s.Types[id]
	if !ok || t.Inner == nil {
		return Signature{}, false
	}
	return s.restrict(*t.Inner), true
}

// Element returns the i-th element effect of the tuple value id as a
// standalone signature.
func (s Signature) Element(id ID, i int) (Signature, bool) {
	t, ok := s.Types[id]
	if !ok || t.Kind != KindTuple || i < 0 || i >= len(t.Elems) {
		return Signature{}, false
	}
	return s.restrict(t.Elems[i]), true
}

func (s Signature) restrict(e Effect) Signature {
	out := Signature{Input: cloneIDs(e.Input), Output: cloneIDs(e.Output)}
	out.Types = s.Types.reachable(out.Input, out.Output)
	return out
}

// Reachable returns the identifiers referenced by s's Input and Output,
// directly or through nested effects, in ascending order.
func (s Signature) Reachable() []ID {
	table := s.Types.reachable(s.Input, s.Output)
	ids := make([]ID, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks that every referenced identifier has a descriptor.
func (s Signature) Validate() error {
	var missing []ID
	seen := make(map[ID]bool)
	var visit func(ID)
	visit = func(id ID) {
		if seen[id] {
			return
		}
		seen[id] = true
		t, ok := s.Types[id]
		if !ok {
			missing = append(missing, id)
			return
		}
		t.refs(visit)
	}
	for _, id := range s.Input {
		visit(id)
	}
	for _, id := range s.Output {
		visit(id)
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return fmt.Errorf("effect: dangling identifiers %v", missing)
	}
	return nil
}

// reachable returns the sub-table reachable from the given roots.
func (t Table) reachable(roots ...[]ID) Table {
	out := make(Table)
	var visit func(ID)
	visit = func(id ID) {
		if _, done := out[id]; done {
			return
		}
		typ, ok := t[id]
		if !ok {
			return
		}
		out[id] = typ
		typ.refs(visit)
	}
	for _, ids := range roots {
		for _, id := range ids {
			visit(id)
		}
	}
	return out
}

func cloneIDs(ids []ID) []ID {
	out := make([]ID, len(ids))
	copy(out, ids)
	return out
}
