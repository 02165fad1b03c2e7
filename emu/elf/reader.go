// Package elf parses the 32-bit little-endian RISC-V ET_REL objects
// backend.ObjectModule.Marshal produces, and loads the result into an
// emu.CPU's memory. It is the read side of backend/elf.go's write
// side; the two must agree byte-for-byte on section order and layout
// (spec §8 property 7: "ELF round-trip").
package elf

import (
	"encoding/binary"

	"github.com/lightplayer/lightplayer/errors"
)

const (
	ehSize    = 52
	shEntSz   = 40
	symEntSz  = 16
	relaEntSz = 12

	shtPROGBITS = 1
	shtSYMTAB   = 2
	shtSTRTAB   = 3
	shtRELA     = 4
)

// Section is one parsed section header plus the raw bytes it covers.
type Section struct {
	Name  string
	Type  uint32
	Flags uint32
	Link  uint32
	Info  uint32
	Data  []byte
}

// Sym is one parsed symbol-table entry.
type Sym struct {
	Name    string
	Value   uint32
	Defined bool // shndx != SHN_UNDEF
}

// Rela is one parsed relocation-table entry.
type Rela struct {
	Offset uint32
	SymIdx uint32
	Type   uint32
	Addend int32
}

// Object is a fully parsed ELF object: its sections by name, and the
// decoded symbol/relocation tables for .text.
type Object struct {
	Sections map[string]*Section
	Symbols  []Sym
	Relocs   []Rela
	Text     []byte
}

// Parse reads data as an ELF32 ET_REL RISC-V object.
func Parse(data []byte) (*Object, error) {
	if len(data) < ehSize {
		return nil, errors.InvalidELF("file too short for an ELF header")
	}
	if data[0] != 0x7f || data[1] != 'E' || data[2] != 'L' || data[3] != 'F' {
		return nil, errors.InvalidELF("missing ELF magic")
	}
	if data[4] != 1 {
		return nil, errors.InvalidELF("not a 32-bit object")
	}
	if data[5] != 1 {
		return nil, errors.InvalidELF("not little-endian")
	}

	shoff := binary.LittleEndian.Uint32(data[32:36])
	shentsize := binary.LittleEndian.Uint16(data[44:46])
	shnum := binary.LittleEndian.Uint16(data[48:50])
	shstrndx := binary.LittleEndian.Uint16(data[50:52])
	if shentsize != shEntSz {
		return nil, errors.InvalidELF("unexpected section header entry size")
	}

	type rawHeader struct {
		nameOff, typ, flags, offset, size, link, info uint32
	}
	headers := make([]rawHeader, shnum)
	for i := range headers {
		off := int(shoff) + i*shEntSz
		if off+shEntSz > len(data) {
			return nil, errors.InvalidELF("section header table truncated")
		}
		h := data[off : off+shEntSz]
		headers[i] = rawHeader{
			nameOff: binary.LittleEndian.Uint32(h[0:4]),
			typ:     binary.LittleEndian.Uint32(h[4:8]),
			flags:   binary.LittleEndian.Uint32(h[8:12]),
			offset:  binary.LittleEndian.Uint32(h[16:20]),
			size:    binary.LittleEndian.Uint32(h[20:24]),
			link:    binary.LittleEndian.Uint32(h[24:28]),
			info:    binary.LittleEndian.Uint32(h[28:32]),
		}
	}
	if int(shstrndx) >= len(headers) {
		return nil, errors.InvalidELF("shstrndx out of range")
	}
	shstrtab, err := sliceAt(data, headers[shstrndx].offset, headers[shstrndx].size)
	if err != nil {
		return nil, err
	}

	obj := &Object{Sections: make(map[string]*Section)}
	for _, h := range headers {
		name := cstr(shstrtab, h.nameOff)
		sectData, err := sliceAt(data, h.offset, h.size)
		if err != nil {
			return nil, err
		}
		if name != "" {
			obj.Sections[name] = &Section{Name: name, Type: h.typ, Flags: h.flags, Link: h.link, Info: h.info, Data: sectData}
		}
	}

	text, ok := obj.Sections[".text"]
	if !ok || text.Type != shtPROGBITS {
		return nil, errors.InvalidELF("missing or malformed .text section")
	}
	obj.Text = append([]byte(nil), text.Data...)

	strtab, ok := obj.Sections[".strtab"]
	if !ok || strtab.Type != shtSTRTAB {
		return nil, errors.InvalidELF("missing or malformed .strtab section")
	}

	if symtab, ok := obj.Sections[".symtab"]; ok {
		if symtab.Type != shtSYMTAB {
			return nil, errors.InvalidELF("malformed .symtab section")
		}
		syms, err := parseSymtab(symtab.Data, strtab.Data)
		if err != nil {
			return nil, err
		}
		obj.Symbols = syms
	}

	if rela, ok := obj.Sections[".rela.text"]; ok {
		if rela.Type != shtRELA {
			return nil, errors.InvalidELF("malformed .rela.text section")
		}
		relas, err := parseRela(rela.Data)
		if err != nil {
			return nil, err
		}
		obj.Relocs = relas
	}

	return obj, nil
}

func sliceAt(data []byte, offset, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	end := uint64(offset) + uint64(size)
	if end > uint64(len(data)) {
		return nil, errors.InvalidELF("section extends past end of file")
	}
	return data[offset:end], nil
}

func cstr(buf []byte, off uint32) string {
	if int(off) >= len(buf) {
		return ""
	}
	end := int(off)
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[off:end])
}

func parseSymtab(data, strtab []byte) ([]Sym, error) {
	if len(data)%symEntSz != 0 {
		return nil, errors.InvalidELF("malformed .symtab")
	}
	n := len(data) / symEntSz
	syms := make([]Sym, n)
	for i := 0; i < n; i++ {
		e := data[i*symEntSz : (i+1)*symEntSz]
		nameOff := binary.LittleEndian.Uint32(e[0:4])
		value := binary.LittleEndian.Uint32(e[4:8])
		shndx := binary.LittleEndian.Uint16(e[14:16])
		syms[i] = Sym{Name: cstr(strtab, nameOff), Value: value, Defined: shndx != 0}
	}
	return syms, nil
}

func parseRela(data []byte) ([]Rela, error) {
	if len(data)%relaEntSz != 0 {
		return nil, errors.InvalidELF("malformed .rela.text")
	}
	n := len(data) / relaEntSz
	relas := make([]Rela, n)
	for i := 0; i < n; i++ {
		e := data[i*relaEntSz : (i+1)*relaEntSz]
		offset := binary.LittleEndian.Uint32(e[0:4])
		info := binary.LittleEndian.Uint32(e[4:8])
		addend := int32(binary.LittleEndian.Uint32(e[8:12]))
		relas[i] = Rela{Offset: offset, SymIdx: info >> 8, Type: info & 0xFF, Addend: addend}
	}
	return relas, nil
}
