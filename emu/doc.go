// Package emu is a single-threaded RV32IMAC instruction-set simulator:
// 32 general-purpose registers, a program counter, a cycle counter, and
// a permissioned linear guest memory (memory.go). The fetch/execute
// loop (cpu.go's Step/Run) and the "execute one instruction, report
// what happened" Step contract are grounded on rcornwell-S370's
// emu/cpu.CycleCPU, generalized from a package-level singleton to an
// explicitly allocated, independently runnable *CPU so multiple
// instances can run on separate goroutines without sharing state.
// Instruction decode (decode.go) covers the base integer set, the M
// (multiply/divide) and A (atomic, single-core semantics) extensions,
// and the C (compressed) 16-bit encodings; decodeCompressed expands
// every compressed form to the same decoded shape decode32 produces so
// exec.go never special-cases instruction width. Traps (ebreak) and
// syscalls (ecall, syscall.go) are both caller-registered tables, kept
// that way so the emulator itself stays free of any hard-coded
// knowledge of backend's trap-code vocabulary or the three calls this
// core's guest programs actually need (time_now_us, write_stdout,
// exit).
package emu
