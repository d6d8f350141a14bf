package hash

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/chazu/stackfx/compiler"
)

func mustParse(t *testing.T, src string) []compiler.Node {
	t.Helper()
	nodes, err := compiler.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return nodes
}

func TestSerialize_Deterministic(t *testing.T) {
	nodes := mustParse(t, "1 'x' [add {n s}] (true, false n)")

	data1 := Serialize(nodes)
	data2 := Serialize(nodes)

	if string(data1) != string(data2) {
		t.Error("serialization is not deterministic")
	}
}

func TestSerialize_VersionPrefix(t *testing.T) {
	data := Serialize(nil)

	// version(1) + tag(1) + count(4) = 6
	if len(data) != 6 {
		t.Fatalf("length: got %d, want 6", len(data))
	}
	if data[0] != HashVersion {
		t.Errorf("version prefix: got 0x%02X, want 0x%02X", data[0], HashVersion)
	}
	if data[1] != TagSequence {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagSequence)
	}
}

func TestSerialize_Number(t *testing.T) {
	data := Serialize(mustParse(t, "2.5"))

	// header(6) + tag(1) + float64(8) = 15
	if len(data) != 15 {
		t.Fatalf("length: got %d, want 15", len(data))
	}
	if data[6] != TagNumber {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[6], TagNumber)
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(data[7:15]))
	if v != 2.5 {
		t.Errorf("value: got %v, want 2.5", v)
	}
}

func TestSerialize_String(t *testing.T) {
	data := Serialize(mustParse(t, "'hi'"))

	// header(6) + tag(1) + len(4) + "hi"(2) = 13
	if len(data) != 13 {
		t.Fatalf("length: got %d, want 13", len(data))
	}
	if data[6] != TagString {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[6], TagString)
	}
	if n := binary.BigEndian.Uint32(data[7:11]); n != 2 {
		t.Errorf("length prefix: got %d, want 2", n)
	}
	if string(data[11:]) != "hi" {
		t.Errorf("payload: got %q", data[11:])
	}
}

func TestSerialize_Bool(t *testing.T) {
	tr := Serialize(mustParse(t, "true"))
	fa := Serialize(mustParse(t, "false"))
	if tr[6] != TagBool || tr[7] != 1 {
		t.Errorf("true: got % X", tr[6:])
	}
	if fa[6] != TagBool || fa[7] != 0 {
		t.Errorf("false: got % X", fa[6:])
	}
}

func TestSerialize_GroupTags(t *testing.T) {
	cases := map[string]byte{
		"[]": TagArray,
		"{}": TagWrap,
		"()": TagTuple,
		"x":  TagRef,
	}
	for src, tag := range cases {
		data := Serialize(mustParse(t, src))
		if data[6] != tag {
			t.Errorf("%s: tag 0x%02X, want 0x%02X", src, data[6], tag)
		}
	}
}

func TestHashProgram_Golden(t *testing.T) {
	cases := map[string]string{
		"":      "76b724e6dcf0ce1fba246b4dfe1b63c0e2d0d71531f36f223186f4e41190b164",
		"1 add": "0331cd22c75daabe5471dbdfbcffd65d170438b47c0684b8909a7113a22d77bc",
	}
	for src, want := range cases {
		if got := String(HashProgram(mustParse(t, src))); got != want {
			t.Errorf("HashProgram(%q) = %s, want %s", src, got, want)
		}
	}
}

func TestHashProgram_IgnoresLayout(t *testing.T) {
	same := [][2]string{
		{"1 add", "  1\n\tadd # sum\n"},
		{"2.50", "2.5"},
		{"0", "-0"},
		{"'a b'", `"a b"`},
		{"(n,s)", "( n , s )"},
	}
	for _, pair := range same {
		a, err := HashSource(pair[0])
		if err != nil {
			t.Fatal(err)
		}
		b, err := HashSource(pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Errorf("HashSource(%q) != HashSource(%q)", pair[0], pair[1])
		}
	}
}

func TestHashProgram_Distinguishes(t *testing.T) {
	distinct := []string{
		"1 add",
		"add 1",
		"[1 add]",
		"{1 add}",
		"(1, add)",
		"(1 add)",
		"'add'",
		"1 add add",
		"(1, add, )",
	}
	seen := make(map[[32]byte]string)
	for _, src := range distinct {
		h, err := HashSource(src)
		if err != nil {
			t.Fatal(err)
		}
		if prev, ok := seen[h]; ok {
			t.Errorf("HashSource(%q) collides with %q", src, prev)
		}
		seen[h] = src
	}
}

func TestHashSource_ParseError(t *testing.T) {
	if _, err := HashSource("[1"); err == nil {
		t.Error("expected parse error")
	}
}
