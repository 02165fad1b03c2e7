// Package backend lowers SSA (post-Q32, all-integer) functions into
// RISC-V machine code and assembles the result into one of three
// module flavors: HostJIT, Emulator, or Object. Its relocation model
// generalizes linker/internal/resolve.Entity's ModuleExport/
// DirectMemory/TrapFunc sum type from Component Model imports to
// RISC-V relocation kinds.
package backend

// RelocKind identifies the RISC-V relocation types the assembler
// understands (spec §4.5's minimum set).
type RelocKind int

const (
	R_RISCV_32 RelocKind = iota
	R_RISCV_BRANCH
	R_RISCV_JAL
	R_RISCV_CALL
	R_RISCV_CALL_PLT
	R_RISCV_HI20
	R_RISCV_LO12_I
	R_RISCV_LO12_S
	R_RISCV_GOT_HI20
	R_RISCV_PCREL_LO12_I
)

func (k RelocKind) String() string {
	switch k {
	case R_RISCV_32:
		return "R_RISCV_32"
	case R_RISCV_BRANCH:
		return "R_RISCV_BRANCH"
	case R_RISCV_JAL:
		return "R_RISCV_JAL"
	case R_RISCV_CALL:
		return "R_RISCV_CALL"
	case R_RISCV_CALL_PLT:
		return "R_RISCV_CALL_PLT"
	case R_RISCV_HI20:
		return "R_RISCV_HI20"
	case R_RISCV_LO12_I:
		return "R_RISCV_LO12_I"
	case R_RISCV_LO12_S:
		return "R_RISCV_LO12_S"
	case R_RISCV_GOT_HI20:
		return "R_RISCV_GOT_HI20"
	case R_RISCV_PCREL_LO12_I:
		return "R_RISCV_PCREL_LO12_I"
	default:
		return "RelocKind(?)"
	}
}

// Relocation records a single cross-symbol fixup pending against a
// code image: at offset Offset into the image's text, apply Kind
// against the final address of Symbol plus Addend.
type Relocation struct {
	Offset int
	Kind   RelocKind
	Symbol string
	Addend int32
}

// RelocTarget is the sealed sum type a relocation's Symbol resolves
// to, mirroring resolve.EntitySource's closed variant set: a function
// defined in this same module, a builtin imported by name, a GOT-held
// data slot, or an unresolved name kept only to produce a trap stub.
type RelocTarget interface {
	isRelocTarget()
}

// IntraModuleFunc resolves to a function defined by this same
// compilation (mirrors resolve.ModuleExport).
type IntraModuleFunc struct {
	Name       string
	CodeOffset int
}

func (IntraModuleFunc) isRelocTarget() {}

// ImportedBuiltin resolves to a GLSL builtin or Q32 runtime routine
// supplied by the host or the builtin ELF library (mirrors
// resolve.DirectMemory's "resolved against something outside this
// module" shape).
type ImportedBuiltin struct {
	Name string
}

func (ImportedBuiltin) isRelocTarget() {}

// GOTDataSlot resolves to an indirect data address held in the
// global-offset-table, used for R_RISCV_GOT_HI20 relocations.
type GOTDataSlot struct {
	Name string
}

func (GOTDataSlot) isRelocTarget() {}

// UnresolvedTrap marks a symbol that could not be resolved at
// assembly time. Linking does not fail on this: patchRelocations
// writes a trap stub in its place so an unreachable call path does not
// block compilation of the rest of the module. Executing the stub loads
// a negative trap code (unresolvedSymbolTrapCode) into a0 and runs
// ebreak, which compiler.Module.Call reports as an errors.Trap
// (mirrors resolve.TrapFunc).
type UnresolvedTrap struct {
	Name   string
	Reason string
}

func (UnresolvedTrap) isRelocTarget() {}

// SymbolKind distinguishes a function symbol from a data symbol in
// the assembled symbol table.
type SymbolKind int

const (
	SymbolFunc SymbolKind = iota
	SymbolData
)

// Symbol is one entry of the assembled image's symbol table: a
// defined or imported name, its kind, and (for a defined symbol) its
// offset into the code or data image.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Defined bool
	Offset  int
	Target  RelocTarget
}
