package effect

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func numbers(in, out int) Signature {
	s := Signature{Input: []ID{}, Output: []ID{}, Types: Table{}}
	for i := 0; i < in; i++ {
		s.Input = append(s.Input, ID(i))
		s.Types[ID(i)] = Atomic(KindNumber)
	}
	for i := 0; i < out; i++ {
		s.Output = append(s.Output, ID(in+i))
		s.Types[ID(in+i)] = Atomic(KindNumber)
	}
	return s
}

var addSig = numbers(2, 1)

func TestComposeAddAdd(t *testing.T) {
	got, err := Compose(addSig, addSig)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	want := Signature{
		Input:  []ID{3, 0, 1},
		Output: []ID{5},
		Types: Table{
			0: Atomic(KindNumber),
			1: Atomic(KindNumber),
			3: Atomic(KindNumber),
			5: Atomic(KindNumber),
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compose(add, add) = %+v, want %+v", got, want)
	}
}

func TestComposeLiterals(t *testing.T) {
	got, err := Compose(Literal(KindString), Literal(KindNumber))
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	want := Signature{
		Input:  []ID{},
		Output: []ID{0, 1},
		Types:  Table{0: Atomic(KindString), 1: Atomic(KindNumber)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compose(s, n) = %+v, want %+v", got, want)
	}
}

func TestComposeMismatch(t *testing.T) {
	_, err := Compose(Literal(KindString), addSig)
	if err == nil {
		t.Fatal("expected a type mismatch")
	}
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("errors.Is(err, ErrTypeMismatch) = false for %v", err)
	}
	var me *MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("error %T is not a *MismatchError", err)
	}
	if me.Depth != 0 || me.Expected != "number" || me.Actual != "string" {
		t.Errorf("mismatch = %+v, want depth 0, expected number, got string", me)
	}
}

func TestComposeMismatchBelowTop(t *testing.T) {
	current, err := Compose(Literal(KindString), Literal(KindNumber))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Compose(current, addSig)
	var me *MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MismatchError, got %v", err)
	}
	if me.Depth != 1 {
		t.Errorf("Depth = %d, want 1", me.Depth)
	}
}

func TestComposePartialConsumption(t *testing.T) {
	// n add: one value supplied, one still required from outside.
	got, err := Compose(Literal(KindNumber), addSig)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Input) != 1 || len(got.Output) != 1 {
		t.Errorf("n add = %s, want 1 input and 1 output", got)
	}
	if got.String() != "number -- number" {
		t.Errorf("String() = %q, want %q", got.String(), "number -- number")
	}
}

func TestComposeEmptyInputNeverErrors(t *testing.T) {
	kinds := []Kind{KindNumber, KindBoolean, KindString}
	for _, a := range kinds {
		for _, b := range kinds {
			current, err := Compose(Literal(a), Literal(b))
			if err != nil {
				t.Fatalf("Compose(%s, %s) returned error: %v", a, b, err)
			}
			if len(current.Output) != 2 || len(current.Input) != 0 {
				t.Errorf("Compose(%s, %s) = %s", a, b, current)
			}
		}
	}
}

func TestComposeKeepsNestedReferences(t *testing.T) {
	// [add] requires two numbers and pushes an array whose nested effect
	// references them. Supplying one of them must not orphan the reference.
	arr := Signature{
		Input:  []ID{0, 1},
		Output: []ID{3},
		Types: Table{
			0: Atomic(KindNumber),
			1: Atomic(KindNumber),
			2: Atomic(KindNumber),
			3: ArrayOf(Effect{Input: []ID{0, 1}, Output: []ID{2}}),
		},
	}
	got, err := Compose(Literal(KindNumber), arr)
	if err != nil {
		t.Fatal(err)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if len(got.Input) != 1 {
		t.Errorf("Input = %v, want one remaining requirement", got.Input)
	}
	nested, ok := got.Nested(got.Output[0])
	if !ok {
		t.Fatal("output is not a composite")
	}
	if !Equal(nested, addSig) {
		t.Errorf("nested = %s, want %s", nested, addSig)
	}
}

func TestComposeDropsUnreachable(t *testing.T) {
	// An array consumed by a word leaves no trace of its payload.
	arr := Signature{
		Input:  []ID{},
		Output: []ID{1},
		Types: Table{
			0: Atomic(KindString),
			1: ArrayOf(Effect{Input: []ID{}, Output: []ID{0}}),
		},
	}
	consume := Signature{
		Input:  []ID{0},
		Output: []ID{},
		Types: Table{
			0: ArrayOf(Effect{Input: []ID{}, Output: []ID{1}}),
			1: Atomic(KindString),
		},
	}
	got, err := Compose(arr, consume)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Types) != 0 {
		t.Errorf("Types = %v, want empty", got.Types)
	}
}

func TestCompatibleComposites(t *testing.T) {
	table := Table{
		0: Atomic(KindString),
		1: Atomic(KindNumber),
		2: ArrayOf(Effect{Input: []ID{}, Output: []ID{0}}),
		3: ArrayOf(Effect{Input: []ID{}, Output: []ID{1}}),
		4: WrappedOf(Effect{Input: []ID{}, Output: []ID{0}}),
		5: TupleOf(Effect{Input: []ID{}, Output: []ID{0}}, Effect{Input: []ID{}, Output: []ID{1}}),
		6: TupleOf(Effect{Input: []ID{}, Output: []ID{1}}, Effect{Input: []ID{}, Output: []ID{0}}),
		7: TupleOf(Effect{Input: []ID{}, Output: []ID{0}}),
		8: ArrayOf(Effect{Input: []ID{}, Output: []ID{0}}),
	}
	tests := []struct {
		a, b ID
		want bool
	}{
		{0, 0, true},
		{0, 1, false},
		{2, 8, true},
		{2, 3, false},
		{2, 4, false},
		{5, 5, true},
		{5, 6, false},
		{5, 7, false},
	}
	for _, tc := range tests {
		if got := Compatible(table, tc.a, table, tc.b); got != tc.want {
			t.Errorf("Compatible(%s, %s) = %v, want %v", describe(table, tc.a), describe(table, tc.b), got, tc.want)
		}
	}
}

func TestSequence(t *testing.T) {
	got, err := Sequence()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, Empty()) {
		t.Errorf("Sequence() = %+v, want empty", got)
	}

	got, err = Sequence(Literal(KindNumber), Literal(KindNumber), addSig)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "-- number" {
		t.Errorf("Sequence(n n add) = %q, want %q", got.String(), "-- number")
	}

	_, err = Sequence(Literal(KindBoolean), Literal(KindNumber), addSig)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Sequence(b n add) error = %v, want type mismatch", err)
	}
}

func TestCollect(t *testing.T) {
	combined, shifted := Collect(Literal(KindNumber), Literal(KindString), addSig)
	if len(shifted) != 3 {
		t.Fatalf("len(shifted) = %d, want 3", len(shifted))
	}
	if !reflect.DeepEqual(shifted[0].Output, []ID{0}) || !reflect.DeepEqual(shifted[1].Output, []ID{1}) {
		t.Errorf("shifted outputs = %v, %v", shifted[0].Output, shifted[1].Output)
	}
	if !reflect.DeepEqual(shifted[2].Input, []ID{2, 3}) {
		t.Errorf("shifted[2].Input = %v, want [2 3]", shifted[2].Input)
	}
	if !reflect.DeepEqual(combined.Input, []ID{2, 3}) {
		t.Errorf("combined.Input = %v, want [2 3]", combined.Input)
	}
	if len(combined.Output) != 0 {
		t.Errorf("combined.Output = %v, want empty", combined.Output)
	}
	if combined.Next() != 5 {
		t.Errorf("combined.Next() = %d, want 5", combined.Next())
	}
}

func randomSignature(r *rand.Rand) Signature {
	kinds := []Kind{KindNumber, KindBoolean, KindString}
	in, out := r.Intn(4), r.Intn(4)
	s := Signature{Input: []ID{}, Output: []ID{}, Types: Table{}}
	next := ID(in + out)
	atom := func() ID {
		id := next
		next++
		s.Types[id] = Atomic(kinds[r.Intn(len(kinds))])
		return id
	}
	// nested effects take at most one value and leave at most one so that
	// composite slots still pair up often enough
	nested := func() Effect {
		e := Effect{Input: []ID{}, Output: []ID{}}
		if r.Intn(2) == 0 {
			e.Input = append(e.Input, atom())
		}
		if r.Intn(2) == 0 {
			e.Output = append(e.Output, atom())
		}
		return e
	}
	for i := 0; i < in+out; i++ {
		switch r.Intn(6) {
		case 0:
			s.Types[ID(i)] = ArrayOf(nested())
		case 1:
			s.Types[ID(i)] = WrappedOf(nested())
		case 2:
			elems := make([]Effect, r.Intn(3))
			for j := range elems {
				elems[j] = nested()
			}
			s.Types[ID(i)] = TupleOf(elems...)
		default:
			s.Types[ID(i)] = Atomic(kinds[r.Intn(len(kinds))])
		}
		if i < in {
			s.Input = append(s.Input, ID(i))
		} else {
			s.Output = append(s.Output, ID(i))
		}
	}
	return s
}

func hasComposite(sig Signature) bool {
	for _, typ := range sig.Types {
		if !typ.Kind.IsAtomic() {
			return true
		}
	}
	return false
}

func TestComposeAssociative(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	checked, composite := 0, 0
	for i := 0; i < 5000; i++ {
		a, b, c := randomSignature(r), randomSignature(r), randomSignature(r)
		for _, sig := range []Signature{a, b, c} {
			if err := sig.Validate(); err != nil {
				t.Fatalf("generated invalid signature %+v: %v", sig, err)
			}
		}

		left, errL := Compose(a, b)
		if errL == nil {
			left, errL = Compose(left, c)
		}
		right, errR := Compose(b, c)
		if errR == nil {
			right, errR = Compose(a, right)
		}

		if (errL == nil) != (errR == nil) {
			t.Fatalf("grouping changed the outcome for %s | %s | %s: %v vs %v", a, b, c, errL, errR)
		}
		if errL != nil {
			continue
		}
		checked++
		if hasComposite(left) {
			composite++
		}
		if !Equal(left, right) {
			t.Fatalf("(%s . %s) . %s = %s, but %s . (%s . %s) = %s", a, b, c, left, a, b, c, right)
		}
		for _, sig := range []Signature{left, right} {
			if len(sig.Types) != len(sig.Reachable()) {
				t.Fatalf("orphaned table entries in %+v", sig)
			}
		}
	}
	if checked == 0 {
		t.Fatal("no well-typed triples generated")
	}
	if composite == 0 {
		t.Fatal("no well-typed triple carried a composite type")
	}
}
