// Package q32 rewrites an SSA module produced by package lower,
// replacing every f32 value, parameter, and operation with its Q16.16
// fixed-point equivalent (spec §4.3).
//
// The shape generalizes asyncify/internal/engine: an Engine, configured
// once, drives one FunctionTransformer per function; the
// FunctionTransformer walks the function's blocks instruction by
// instruction, dispatching on opcode through a RuleRegistry the same
// way asyncify/internal/handler.Registry dispatches on WASM opcode byte.
// Where the teacher flattens a structured tree to a linear stream of
// stack operations, this pass rewrites an already-flat SSA stream in
// place: each matched instruction is replaced by zero or more
// replacement instructions that preserve its original Result ValueID,
// so every other instruction's Args referencing that value keep working
// unchanged.
//
// Constant pre-materialization (spec §4.3, §8 property 5) reuses the
// same entry-block-only discipline package lower already establishes
// for its own constants: q32/constant.go's ConstPool memoizes every
// auxiliary constant this pass introduces (INT32_MIN/MAX, zero, the
// Q16.16 unit) in the function's entry block, so a saturating-add
// sequence built deep inside a loop body never introduces a constant
// that fails to dominate its uses.
package q32
