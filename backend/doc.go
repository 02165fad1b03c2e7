// Package backend turns a post-Q32 (all-integer) ssa.Module into
// executable RISC-V32 (RV32IMAC) code. Instruction selection
// (select.go) is a baseline "every SSA value lives in a stack slot"
// codegen: no register allocation, scratch registers reloaded around
// every instruction, in the spirit of an unoptimizing JIT's first
// tier rather than the teacher's own compiler (which never targets a
// real ISA). The byte-level writer discipline and the relocation/
// symbol sum-type come from wasm/internal/binary and
// linker/internal/resolve respectively; see DESIGN.md for the full
// per-file grounding ledger.
package backend
