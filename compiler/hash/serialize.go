package hash

import (
	"encoding/binary"
	"math"

	"github.com/chazu/stackfx/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a parsed program.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Counts: uint32 big-endian
//   - Numbers: IEEE 754 big-endian 8B
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans: single byte (0/1)
//   - Child nodes: serialized inline (flat)
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of nodes.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(nodes []compiler.Node) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeSeq(nodes)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeFloat64(v float64) {
	// -0 and 0 are the same literal
	if v == 0 {
		v = 0
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeSeq(nodes []compiler.Node) {
	s.writeByte(TagSequence)
	s.writeUint32(uint32(len(nodes)))
	for _, n := range nodes {
		s.serializeNode(n)
	}
}

func (s *serializer) serializeNode(node compiler.Node) {
	switch n := node.(type) {
	case *compiler.NumberLit:
		s.writeByte(TagNumber)
		s.writeFloat64(n.Value)

	case *compiler.BoolLit:
		s.writeByte(TagBool)
		if n.Value {
			s.writeByte(1)
		} else {
			s.writeByte(0)
		}

	case *compiler.StringLit:
		s.writeByte(TagString)
		s.writeString(n.Value)

	case *compiler.Ref:
		s.writeByte(TagRef)
		s.writeString(n.Name)

	case *compiler.ArrayNode:
		s.writeByte(TagArray)
		s.serializeSeq(n.Body)

	case *compiler.WrapNode:
		s.writeByte(TagWrap)
		s.serializeSeq(n.Body)

	case *compiler.TupleNode:
		s.writeByte(TagTuple)
		s.writeUint32(uint32(len(n.Elems)))
		for _, elem := range n.Elems {
			s.serializeSeq(elem)
		}
	}
}
