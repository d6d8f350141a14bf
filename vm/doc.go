// Package vm implements the runtime evaluator for stackfx programs.
//
// This package contains:
//   - Tagged runtime values mirroring the effect kinds
//   - A value stack whose children draw from their parent when empty
//   - An interpreter that walks parsed nodes against a stack
//
// The interpreter is the structural mirror of the static checker in
// package compiler: every node that the checker types, the interpreter
// executes, and the values a successful run leaves behind have the kinds
// the checker predicts.
package vm
