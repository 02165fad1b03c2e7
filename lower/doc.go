// Package lower translates a typed module (package sema) into the
// generic low-level SSA IR (package ssa), per spec §4.2.
//
// The tree-to-linear-stream walk is grounded on
// asyncify/internal/ir/linearize.go's emit/emitSeq/emitBlock/emitIf
// dispatch, generalized from "flatten a block tree into a WASM
// instruction stream" to "flatten a statement tree into SSA blocks with
// explicit branch instructions."
//
// Two deliberate simplifications keep the construction a straight
// single forward walk instead of a full SSA-construction algorithm:
//
//   - Every stack slot (one per array/struct/matrix local, and every
//     out/inout parameter's backing storage is the caller's problem, not
//     this function's) is addressed once, in the entry block, before any
//     other code is emitted. A StackAddr result dominates every block in
//     the function, so no slot pointer ever needs a block parameter.
//   - Every integer/float constant is likewise materialized once in the
//     entry block and reused by value, rather than sunk to its nearest
//     use. This trivially satisfies the constant-dominance invariant
//     (spec §3.3) at the cost of occasionally keeping a constant live
//     longer than strictly necessary — exactly the tradeoff spec §4.2
//     allows ("constants used only within a block may be local to that
//     block", not "must be").
//
// Struct field access, array indexing, and matrix element access all
// need pointer arithmetic the instruction set has no dedicated opcode
// for: a TypePtr value is just a 32-bit address, so computing a field
// or element address reuses OpIAdd/OpIMul with TypePtr as the result
// type rather than inventing a GEP-style instruction. The Q32 pass
// never touches these — they stay integer arithmetic on addresses
// before and after the fp-to-fixed-point rewrite.
//
// Scalars and vectors, by contrast, are carried as ordinary SSA values
// (spec §4.2: "live in SSA values by default"). Where a branch
// reconverges (an if/else join, a loop header), package lower inserts
// block parameters for exactly the register-backed locals whose value
// differs across the incoming edges — see reconcileBranch in stmt.go.
package lower
