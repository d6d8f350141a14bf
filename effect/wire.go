package effect

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal signatures encode to equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("effect: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes v, typically a Signature, to canonical CBOR.
func Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// MarshalSignature serializes s to canonical CBOR bytes.
func MarshalSignature(s Signature) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSignature deserializes a Signature from CBOR bytes. Missing
// lists decode as empty, never nil.
func UnmarshalSignature(data []byte) (Signature, error) {
	var s Signature
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Signature{}, fmt.Errorf("effect: unmarshal signature: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Signature{}, fmt.Errorf("effect: unmarshal signature: %w", err)
	}
	return normalize(s), nil
}

// normalize replaces nil lists with empty ones.
func normalize(s Signature) Signature {
	if s.Input == nil {
		s.Input = []ID{}
	}
	if s.Output == nil {
		s.Output = []ID{}
	}
	if s.Types == nil {
		s.Types = Table{}
	}
	for id, t := range s.Types {
		if t.Inner != nil {
			inner := normalizeEffect(*t.Inner)
			t.Inner = &inner
		}
		if t.Kind == KindTuple {
			elems := make([]Effect, len(t.Elems))
			for i, e := range t.Elems {
				elems[i] = normalizeEffect(e)
			}
			t.Elems = elems
		}
		s.Types[id] = t
	}
	return s
}

func normalizeEffect(e Effect) Effect {
	if e.Input == nil {
		e.Input = []ID{}
	}
	if e.Output == nil {
		e.Output = []ID{}
	}
	return e
}
