// Package ssa implements the generic SSA IR that sits between lowering
// and the Q32 transform (spec §3.3): named functions with an ordered
// list of basic blocks, block parameters standing in for φ-nodes, an
// explicit per-function value table, and a stack-slot table for
// address-taken locals.
//
// The value/type shape generalizes the teacher's WebAssembly value-type
// enum (asyncify/internal/engine/valtype.go's {i32,i64,f32,f64,v128})
// down to this core's four IR types {i8,i32,f32,ptr} (see DESIGN.md).
// Verifier checks the three invariants spec §3.3/§8 name (SSA dominance,
// block-parameter type agreement, and constant dominance) from a map of
// each value's defining location and an iterative dominator computation
// over the block graph; it runs no liveness pass and does not use the
// package's bitSet type.
package ssa
