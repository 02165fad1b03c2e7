package backend

import (
	"encoding/binary"

	"github.com/lightplayer/lightplayer/backend/riscv"
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/ssa"
)

// LinkedImage is the product of assembling every function of a module
// into one contiguous text section: concatenated code, an absolute
// symbol table, and pending relocations whose symbols have not yet
// been bound to a final address. Binding happens per module flavor
// (NewHostJITModule/NewEmulatorModule patch against runtime/guest
// addresses; NewObjectModule leaves the relocation section for an
// external linker), mirroring runtime.Module's two-phase
// Compile-then-Instantiate split.
type LinkedImage struct {
	Code    []byte
	Symbols map[string]Symbol
	Relocs  []Relocation
}

// Assembler drives per-function instruction selection and stitches
// the results into one LinkedImage.
type Assembler struct {
	mod   *ssa.Module
	funcs []*FuncImage
}

func NewAssembler(mod *ssa.Module) *Assembler {
	return &Assembler{mod: mod}
}

// SelectAll runs instruction selection over every function in the
// module, in declaration order.
func (a *Assembler) SelectAll() error {
	a.funcs = a.funcs[:0]
	for _, fn := range a.mod.Funcs {
		img, err := SelectFunction(fn, a.mod)
		if err != nil {
			return err
		}
		a.funcs = append(a.funcs, img)
	}
	return nil
}

// Link concatenates every selected function's code into one text
// section, recording each defined function's absolute symbol entry
// and translating each function-local relocation offset into an
// absolute one.
func (a *Assembler) Link() (*LinkedImage, error) {
	img := &LinkedImage{Symbols: make(map[string]Symbol)}

	bases := make(map[string]int, len(a.funcs))
	for _, f := range a.funcs {
		bases[f.Name] = len(img.Code)
		for _, word := range f.Code {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], word)
			img.Code = append(img.Code, b[:]...)
		}
	}

	for _, f := range a.funcs {
		base := bases[f.Name]
		img.Symbols[f.Name] = Symbol{
			Name:    f.Name,
			Kind:    SymbolFunc,
			Defined: true,
			Offset:  base,
			Target:  IntraModuleFunc{Name: f.Name, CodeOffset: base},
		}
		for _, r := range f.Relocs {
			img.Relocs = append(img.Relocs, Relocation{
				Offset: base + r.Offset,
				Kind:   r.Kind,
				Symbol: r.Symbol,
				Addend: r.Addend,
			})
		}
	}

	for _, imp := range a.mod.Imports {
		if _, ok := img.Symbols[imp.Name]; !ok {
			img.Symbols[imp.Name] = Symbol{Name: imp.Name, Kind: SymbolFunc, Target: ImportedBuiltin{Name: imp.Name}}
		}
	}

	return img, nil
}

// resolvedAddress answers the absolute address a relocation's symbol
// binds to, given a host/guest-specific lookup for anything not
// defined inside this image. base is added to every intra-module
// offset so the image can be relocated as a unit (mmap base address,
// or the guest memory region the emulator loaded it into).
func resolvedAddress(img *LinkedImage, name string, base uint32, lookup func(string) (uint32, bool)) (uint32, RelocTarget, bool) {
	if sym, ok := img.Symbols[name]; ok && sym.Defined {
		return base + uint32(sym.Offset), sym.Target, true
	}
	if lookup != nil {
		if addr, ok := lookup(name); ok {
			return addr, ImportedBuiltin{Name: name}, true
		}
	}
	return 0, nil, false
}

// patchRelocations applies every pending relocation in img against
// code (a copy of img.Code living at base), using lookup to resolve
// names img does not itself define. Relocations that still cannot be
// resolved are rewritten in place to a two-instruction trap stub
// (spec §4.4: "UnresolvedSymbol... never silently ignored") so the
// rest of the module keeps working; only invoking the unresolved path
// faults, via the emulator's own errors.UnresolvedSymbol report.
func patchRelocations(img *LinkedImage, code []byte, base uint32, lookup func(string) (uint32, bool)) ([]string, error) {
	var trapped []string
	for _, r := range img.Relocs {
		addr, _, ok := resolvedAddress(img, r.Symbol, base, lookup)
		if !ok {
			trapCode := int32(len(trapped))
			trapped = append(trapped, r.Symbol)
			if err := writeTrapStub(code, r.Offset, trapCode); err != nil {
				return trapped, err
			}
			continue
		}
		if err := applyRelocation(code, r, base, addr); err != nil {
			return trapped, err
		}
	}
	return trapped, nil
}

// ArrayBoundsCode and friends live in the emulator's trap-code
// vocabulary; unresolved-symbol traps use a disjoint, negative range
// so the two can never be confused by a handler keyed on TrapCode.
func unresolvedSymbolTrapCode(index int) int32 { return -1 - int32(index) }

func writeTrapStub(code []byte, offset int, index int32) error {
	trapCode := unresolvedSymbolTrapCode(int(index))
	if offset+8 > len(code) || trapCode < -2048 || trapCode > 2047 {
		return errors.Internal("backend.image", "trap stub write out of bounds").Pass("link")
	}
	putWord(code, offset, riscv.Addi(riscv.A0, riscv.Zero, trapCode))
	putWord(code, offset+4, riscv.Ebreak())
	return nil
}

func putWord(code []byte, offset int, w uint32) {
	binary.LittleEndian.PutUint32(code[offset:offset+4], w)
}

// applyRelocation patches the auipc+jalr pair (or, for R_RISCV_32, the
// single data word) at r.Offset so it resolves to target, an absolute
// address in the same address space code will execute/be read from.
func applyRelocation(code []byte, r Relocation, base uint32, target uint32) error {
	if r.Offset+8 > len(code) {
		return errors.Internal("backend.image", "relocation offset out of bounds").Pass("link")
	}
	pc := base + uint32(r.Offset)
	delta := int32(target) - int32(pc) + r.Addend

	switch r.Kind {
	case R_RISCV_32:
		binary.LittleEndian.PutUint32(code[r.Offset:r.Offset+4], target)
		return nil

	case R_RISCV_CALL, R_RISCV_CALL_PLT, R_RISCV_GOT_HI20, R_RISCV_HI20, R_RISCV_PCREL_LO12_I:
		hi := (delta + 0x800) & ^0xFFF
		lo := delta - hi
		auipc := binary.LittleEndian.Uint32(code[r.Offset : r.Offset+4])
		jalr := binary.LittleEndian.Uint32(code[r.Offset+4 : r.Offset+8])
		rd := riscv.Reg((auipc >> 7) & 0x1F)
		jrd := riscv.Reg((jalr >> 7) & 0x1F)
		jrs1 := riscv.Reg((jalr >> 15) & 0x1F)
		putWord(code, r.Offset, riscv.Auipc(rd, hi))
		putWord(code, r.Offset+4, riscv.Jalr(jrd, jrs1, lo))
		return nil

	case R_RISCV_JAL:
		putWord(code, r.Offset, riscv.Jal(riscv.Zero, delta))
		return nil

	case R_RISCV_BRANCH, R_RISCV_LO12_I, R_RISCV_LO12_S:
		return errors.UnsupportedRelocation(r.Kind.String())

	default:
		return errors.UnsupportedRelocation(r.Kind.String())
	}
}
