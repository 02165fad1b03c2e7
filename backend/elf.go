package backend

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// ELF32 relocatable-object layout: ELF header, then (in file order)
// .text, .rela.text, .symtab, .strtab, .shstrtab, followed by the
// section header table. This is the exact layout emu/elf's loader
// expects to parse back (spec §8's round-trip property 7).
const (
	elfClass32   = 1
	elfDataLE    = 1
	elfVersion   = 1
	elfOSABINone = 0
	etREL        = 1
	emRISCV      = 243
	shtPROGBITS  = 1
	shtSYMTAB    = 2
	shtSTRTAB    = 3
	shtRELA      = 4
	shfALLOC     = 0x2
	shfEXECINSTR = 0x4
	stbGLOBAL    = 1
	sttFUNC      = 2
)

// relocELFType maps our RelocKind vocabulary to the numeric r_type
// values assigned by the RISC-V ELF psABI.
func relocELFType(k RelocKind) uint32 {
	switch k {
	case R_RISCV_32:
		return 1
	case R_RISCV_BRANCH:
		return 16
	case R_RISCV_JAL:
		return 17
	case R_RISCV_CALL:
		return 18
	case R_RISCV_CALL_PLT:
		return 19
	case R_RISCV_GOT_HI20:
		return 20
	case R_RISCV_HI20:
		return 26
	case R_RISCV_LO12_I:
		return 27
	case R_RISCV_LO12_S:
		return 28
	case R_RISCV_PCREL_LO12_I:
		return 24
	default:
		return 0
	}
}

type strtab struct {
	buf    bytes.Buffer
	offset map[string]uint32
}

func newStrtab() *strtab {
	t := &strtab{offset: make(map[string]uint32)}
	t.buf.WriteByte(0) // index 0 is always the empty string
	return t
}

func (t *strtab) intern(s string) uint32 {
	if s == "" {
		return 0
	}
	if off, ok := t.offset[s]; ok {
		return off
	}
	off := uint32(t.buf.Len())
	t.buf.WriteString(s)
	t.buf.WriteByte(0)
	t.offset[s] = off
	return off
}

// Marshal serializes m.Image as a 32-bit little-endian RISC-V ET_REL
// object: one .text section holding the code, a .rela.text recording
// every still-unresolved relocation, and a .symtab/.strtab pair naming
// every defined and imported symbol.
func (m *ObjectModule) Marshal() []byte {
	img := m.Image
	strs := newStrtab()

	var names []string
	for name := range img.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	symIndex := map[string]uint32{"": 0}
	for i, name := range names {
		symIndex[name] = uint32(i + 1)
	}

	var symtab bytes.Buffer
	writeSymEntry(&symtab, 0, 0, 0, 0, 0) // STN_UNDEF
	for _, name := range names {
		sym := img.Symbols[name]
		nameOff := strs.intern(name)
		shndx := uint16(1) // .text; imports keep shndx 0 (SHN_UNDEF)
		value := uint32(0)
		if sym.Defined {
			value = uint32(sym.Offset)
		} else {
			shndx = 0
		}
		writeSymEntry(&symtab, nameOff, value, 0, uint8(stbGLOBAL<<4|sttFUNC), shndx)
	}

	var rela bytes.Buffer
	for _, r := range img.Relocs {
		writeRelaEntry(&rela, uint32(r.Offset), symIndex[r.Symbol], relocELFType(r.Kind), r.Addend)
	}

	shstrtab := newStrtab()
	textOff := shstrtab.intern(".text")
	relaOff := shstrtab.intern(".rela.text")
	symtabOff := shstrtab.intern(".symtab")
	strtabOff := shstrtab.intern(".strtab")
	shstrtabOff := shstrtab.intern(".shstrtab")

	const ehsize = 52

	textOffset := uint32(ehsize)
	relaOffset := textOffset + uint32(len(img.Code))
	symtabOffset := relaOffset + uint32(rela.Len())
	strtabOffset := symtabOffset + uint32(symtab.Len())
	shstrtabOffset := strtabOffset + uint32(strs.buf.Len())
	shoff := shstrtabOffset + uint32(shstrtab.buf.Len())

	var out bytes.Buffer
	writeELFHeader(&out, shoff, 6)
	out.Write(img.Code)
	rela.WriteTo(&out)
	symtab.WriteTo(&out)
	strs.buf.WriteTo(&out)
	shstrtab.buf.WriteTo(&out)

	writeSectionHeader(&out, 0, 0, 0, 0, 0, 0, 0, 0, 0) // SHN_UNDEF
	writeSectionHeader(&out, textOff, shtPROGBITS, shfALLOC|shfEXECINSTR, textOffset, uint32(len(img.Code)), 0, 0, 1)
	writeSectionHeader(&out, relaOff, shtRELA, 0, relaOffset, uint32(rela.Len()), 3 /*symtab idx*/, 1 /*applies to .text*/, 4)
	writeSectionHeader(&out, symtabOff, shtSYMTAB, 0, symtabOffset, uint32(symtab.Len()), 4 /*strtab idx*/, 1, 4)
	writeSectionHeader(&out, strtabOff, shtSTRTAB, 0, strtabOffset, uint32(strs.buf.Len()), 0, 0, 1)
	writeSectionHeader(&out, shstrtabOff, shtSTRTAB, 0, shstrtabOffset, uint32(shstrtab.buf.Len()), 0, 0, 1)

	return out.Bytes()
}

func writeELFHeader(w *bytes.Buffer, shoff uint32, shnum uint16) {
	w.Write([]byte{0x7f, 'E', 'L', 'F', elfClass32, elfDataLE, elfVersion, elfOSABINone})
	w.Write(make([]byte, 8)) // padding
	writeU16(w, etREL)
	writeU16(w, emRISCV)
	writeU32(w, uint32(elfVersion))
	writeU32(w, 0) // e_entry
	writeU32(w, 0) // e_phoff
	writeU32(w, shoff)
	writeU32(w, 0)  // e_flags
	writeU16(w, 52) // e_ehsize
	writeU16(w, 0)  // e_phentsize
	writeU16(w, 0)  // e_phnum
	writeU16(w, 40) // e_shentsize
	writeU16(w, shnum)
	writeU16(w, 5) // e_shstrndx (shstrtab is section 5)
}

func writeSectionHeader(w *bytes.Buffer, nameOff uint32, shType uint32, flags uint32, offset, size, link, info, align uint32) {
	writeU32(w, nameOff)
	writeU32(w, shType)
	writeU32(w, flags)
	writeU32(w, 0) // sh_addr
	writeU32(w, offset)
	writeU32(w, size)
	writeU32(w, link)
	writeU32(w, info)
	writeU32(w, align)
	writeU32(w, 0) // sh_entsize
}

func writeSymEntry(w *bytes.Buffer, nameOff, value, size uint32, info uint8, shndx uint16) {
	writeU32(w, nameOff)
	writeU32(w, value)
	writeU32(w, size)
	w.WriteByte(byte(info))
	w.WriteByte(0) // other
	writeU16(w, shndx)
}

func writeRelaEntry(w *bytes.Buffer, offset, symIdx, relType uint32, addend int32) {
	writeU32(w, offset)
	writeU32(w, symIdx<<8|relType&0xFF)
	writeU32(w, uint32(addend))
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
