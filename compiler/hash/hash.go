// Package hash computes content hashes of parsed programs. Two programs
// that differ only in layout, comments, quote style or number spelling
// hash the same.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/stackfx/compiler"
)

// HashProgram computes the SHA-256 content hash of a parsed program.
func HashProgram(nodes []compiler.Node) [32]byte {
	return sha256.Sum256(Serialize(nodes))
}

// HashSource parses src and hashes the result.
func HashSource(src string) ([32]byte, error) {
	nodes, err := compiler.Parse(src)
	if err != nil {
		return [32]byte{}, err
	}
	return HashProgram(nodes), nil
}

// String renders a hash as lowercase hex.
func String(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
