package effect

import (
	"bytes"
	"reflect"
	"testing"
)

func TestSignatureWireRoundTrip(t *testing.T) {
	num := Atomic(KindNumber)
	sigs := []Signature{
		Empty(),
		Literal(KindString),
		{
			Input:  []ID{3, 0, 1},
			Output: []ID{5},
			Types:  Table{0: num, 1: num, 3: num, 5: num},
		},
		{
			Input:  []ID{},
			Output: []ID{3},
			Types: Table{
				0: num,
				1: Atomic(KindString),
				2: ArrayOf(Effect{Input: []ID{}, Output: []ID{0, 1}}),
				3: TupleOf(Effect{Input: []ID{}, Output: []ID{2}}, Effect{Input: []ID{}, Output: []ID{}}),
			},
		},
		{
			Input:  []ID{},
			Output: []ID{0},
			Types:  Table{0: TupleOf()},
		},
	}

	for _, sig := range sigs {
		data, err := MarshalSignature(sig)
		if err != nil {
			t.Fatalf("MarshalSignature(%v): %v", sig, err)
		}
		got, err := UnmarshalSignature(data)
		if err != nil {
			t.Fatalf("UnmarshalSignature(%v): %v", sig, err)
		}
		if !reflect.DeepEqual(got, sig) {
			t.Errorf("round trip = %#v, want %#v", got, sig)
		}
	}
}

func TestSignatureWireDeterministic(t *testing.T) {
	num := Atomic(KindNumber)
	sig := Signature{
		Input:  []ID{0, 1, 2, 3},
		Output: []ID{4},
		Types:  Table{0: num, 1: num, 2: num, 3: num, 4: num},
	}
	first, err := MarshalSignature(sig)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := MarshalSignature(sig)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("canonical encoding differs between runs")
		}
	}
}

func TestUnmarshalSignatureRejectsDangling(t *testing.T) {
	data, err := MarshalSignature(Signature{Input: []ID{}, Output: []ID{7}, Types: Table{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalSignature(data); err == nil {
		t.Error("expected an error for a dangling identifier")
	}
	if _, err := UnmarshalSignature([]byte{0xff, 0x00}); err == nil {
		t.Error("expected an error for malformed input")
	}
}
