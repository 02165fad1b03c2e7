package elf

import (
	"encoding/binary"

	"github.com/lightplayer/lightplayer/backend"
	"github.com/lightplayer/lightplayer/backend/riscv"
	"github.com/lightplayer/lightplayer/emu"
	"github.com/lightplayer/lightplayer/errors"
)

// Resolver supplies the guest address a symbol this object does not
// itself define resolves to (a builtin loaded elsewhere in the same
// guest image, or a Q32 runtime routine).
type Resolver func(name string) (uint32, bool)

// LoadResult reports where an object ended up and which referenced
// symbols could not be resolved (each now reachable only through a
// trap stub, mirroring backend's own unresolved-symbol policy).
type LoadResult struct {
	LoadBase   uint32
	Size       uint32
	Unresolved []string
}

// relocKindFromELFType inverts backend's relocELFType mapping.
func relocKindFromELFType(t uint32) (backend.RelocKind, bool) {
	switch t {
	case 1:
		return backend.R_RISCV_32, true
	case 16:
		return backend.R_RISCV_BRANCH, true
	case 17:
		return backend.R_RISCV_JAL, true
	case 18:
		return backend.R_RISCV_CALL, true
	case 19:
		return backend.R_RISCV_CALL_PLT, true
	case 20:
		return backend.R_RISCV_GOT_HI20, true
	case 26:
		return backend.R_RISCV_HI20, true
	case 27:
		return backend.R_RISCV_LO12_I, true
	case 28:
		return backend.R_RISCV_LO12_S, true
	case 24:
		return backend.R_RISCV_PCREL_LO12_I, true
	default:
		return 0, false
	}
}

// Load parses data as an ELF object, applies its relocations against
// loadBase (resolving intra-object symbols from its own .symtab and
// everything else through resolve), and copies the patched code into
// mem at loadBase with read+execute permission.
//
// Unresolved symbols do not fail the load: the reference is rewritten
// to a two-instruction trap stub, same as backend.NewEmulatorModule,
// so an unreachable call path never blocks loading the rest of the
// object.
func Load(data []byte, mem *emu.Memory, loadBase uint32, resolve Resolver) (*LoadResult, error) {
	obj, err := Parse(data)
	if err != nil {
		return nil, err
	}

	code := append([]byte(nil), obj.Text...)

	defined := make(map[string]uint32, len(obj.Symbols))
	for _, s := range obj.Symbols {
		if s.Defined {
			defined[s.Name] = s.Value
		}
	}

	var unresolved []string
	for _, r := range obj.Relocs {
		if int(r.SymIdx) >= len(obj.Symbols) {
			return nil, errors.InvalidELF("relocation references an out-of-range symbol index")
		}
		name := obj.Symbols[r.SymIdx].Name

		var target uint32
		var ok bool
		if off, defOK := defined[name]; defOK {
			target, ok = loadBase+off, true
		} else if resolve != nil {
			target, ok = resolve(name)
		}

		kind, kindOK := relocKindFromELFType(r.Type)
		if !kindOK {
			return nil, errors.InvalidELF("unknown relocation type")
		}

		if !ok {
			index := int32(len(unresolved))
			unresolved = append(unresolved, name)
			if err := writeTrapStub(code, int(r.Offset), index); err != nil {
				return nil, err
			}
			continue
		}
		if err := applyRelocation(code, int(r.Offset), kind, r.Addend, loadBase, target); err != nil {
			return nil, err
		}
	}

	if err := mem.Map(loadBase, uint32(len(code)), emu.PermRead|emu.PermExec); err != nil {
		return nil, err
	}
	if err := mem.LoadBytes(loadBase, code); err != nil {
		return nil, err
	}

	return &LoadResult{LoadBase: loadBase, Size: uint32(len(code)), Unresolved: unresolved}, nil
}

// unresolvedSymbolTrapCode mirrors backend.image's disjoint, negative
// trap-code range for symbols an object load could not bind.
func unresolvedSymbolTrapCode(index int) int32 { return -1 - int32(index) }

func writeTrapStub(code []byte, offset int, index int32) error {
	trapCode := unresolvedSymbolTrapCode(int(index))
	if offset+8 > len(code) || trapCode < -2048 || trapCode > 2047 {
		return errors.InvalidELF("trap stub write out of bounds")
	}
	putWord(code, offset, riscv.Addi(riscv.A0, riscv.Zero, trapCode))
	putWord(code, offset+4, riscv.Ebreak())
	return nil
}

func putWord(code []byte, offset int, w uint32) {
	binary.LittleEndian.PutUint32(code[offset:offset+4], w)
}

// applyRelocation mirrors backend.image's applyRelocation, operating
// on a loader-owned byte slice rather than the assembler's in-flight
// image; the two must stay in lockstep since they encode/decode the
// same auipc+jalr pairs.
func applyRelocation(code []byte, offset int, kind backend.RelocKind, addend int32, base, target uint32) error {
	if offset+8 > len(code) {
		return errors.InvalidELF("relocation offset out of bounds")
	}
	pc := base + uint32(offset)
	delta := int32(target) - int32(pc) + addend

	switch kind {
	case backend.R_RISCV_32:
		binary.LittleEndian.PutUint32(code[offset:offset+4], target)
		return nil

	case backend.R_RISCV_CALL, backend.R_RISCV_CALL_PLT, backend.R_RISCV_GOT_HI20,
		backend.R_RISCV_HI20, backend.R_RISCV_PCREL_LO12_I:
		hi := (delta + 0x800) &^ 0xFFF
		lo := delta - hi
		auipc := binary.LittleEndian.Uint32(code[offset : offset+4])
		jalr := binary.LittleEndian.Uint32(code[offset+4 : offset+8])
		rd := riscv.Reg((auipc >> 7) & 0x1F)
		jrd := riscv.Reg((jalr >> 7) & 0x1F)
		jrs1 := riscv.Reg((jalr >> 15) & 0x1F)
		putWord(code, offset, riscv.Auipc(rd, hi))
		putWord(code, offset+4, riscv.Jalr(jrd, jrs1, lo))
		return nil

	case backend.R_RISCV_JAL:
		putWord(code, offset, riscv.Jal(riscv.Zero, delta))
		return nil

	default:
		return errors.UnsupportedRelocation(kind.String())
	}
}
