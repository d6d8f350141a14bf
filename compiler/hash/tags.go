package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the program serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cached signature keyed by a program hash.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing program hashes.
const HashVersion byte = 1

// Node tags. Each tag uniquely identifies a node kind in the serialized
// byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Literals
	TagNumber byte = 0x01
	TagBool   byte = 0x02
	TagString byte = 0x03

	// Names
	TagRef byte = 0x04

	// Grouping
	TagArray    byte = 0x05
	TagWrap     byte = 0x06
	TagTuple    byte = 0x07
	TagSequence byte = 0x08

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagNumber, TagBool, TagString,
	TagRef,
	TagArray, TagWrap, TagTuple, TagSequence,
}
