package emu

import "github.com/lightplayer/lightplayer/errors"

// Perm is a region-level permission bitmask (spec §4.5: "a linear
// byte-addressable space with region-level permission bits").
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// region is one permissioned span of guest memory, in the order it was
// mapped; overlapping regions are not supported (the loader never
// produces them).
type region struct {
	base  uint32
	size  uint32
	perms Perm
}

func (r region) contains(addr uint32, n uint32) bool {
	return addr >= r.base && uint64(addr)+uint64(n) <= uint64(r.base)+uint64(r.size)
}

// Memory is the emulator's guest address space: a flat byte buffer
// plus a small ordered list of permissioned regions. Every access is
// checked against the regions before touching the buffer, mirroring
// memory.GetWord/PutWord's own bounds check but generalized from "one
// flat space with uniform permission" to "named regions with distinct
// read/write/execute rights" per spec §4.5/§4.6.
type Memory struct {
	bytes   []byte
	regions []region
}

// NewMemory allocates size bytes of guest address space with no
// mapped regions; Map must be called before any region is accessible.
func NewMemory(size uint32) *Memory {
	return &Memory{bytes: make([]byte, size)}
}

// Map registers a permissioned region [base, base+size). Later Map
// calls are not checked against earlier ones; the loader is trusted to
// lay the guest image out without overlap.
func (m *Memory) Map(base, size uint32, perms Perm) error {
	if uint64(base)+uint64(size) > uint64(len(m.bytes)) {
		return errors.InvalidELF("mapped region exceeds guest memory size")
	}
	m.regions = append(m.regions, region{base: base, size: size, perms: perms})
	return nil
}

func (m *Memory) find(addr, n uint32, need Perm) (region, bool) {
	for _, r := range m.regions {
		if r.contains(addr, n) && r.perms&need == need {
			return r, true
		}
	}
	return region{}, false
}

// checkAccess reports whether the byte range [addr, addr+n) is fully
// covered by a region granting every bit in need.
func (m *Memory) checkAccess(addr, n uint32, need Perm) bool {
	_, ok := m.find(addr, n, need)
	return ok
}

func (m *Memory) Read8(addr uint32) (uint8, error) {
	if !m.checkAccess(addr, 1, PermRead) {
		return 0, errors.Trap(TrapPermission, "read8 out of permission")
	}
	return m.bytes[addr], nil
}

func (m *Memory) Read32(addr uint32) (uint32, error) {
	if !m.checkAccess(addr, 4, PermRead) {
		return 0, errors.Trap(TrapPermission, "read32 out of permission")
	}
	return uint32(m.bytes[addr]) | uint32(m.bytes[addr+1])<<8 |
		uint32(m.bytes[addr+2])<<16 | uint32(m.bytes[addr+3])<<24, nil
}

// FetchHalf reads the 16 bits at addr with execute permission; the
// caller decides whether a second halfword is needed for a 32-bit
// instruction (RVC requires reading 16 bits at a time since a 32-bit
// instruction may start on a non-word-aligned half).
func (m *Memory) FetchHalf(addr uint32) (uint16, error) {
	if !m.checkAccess(addr, 2, PermExec) {
		return 0, errors.Trap(TrapPermission, "instruction fetch out of permission")
	}
	return uint16(m.bytes[addr]) | uint16(m.bytes[addr+1])<<8, nil
}

func (m *Memory) Write8(addr uint32, v uint8) error {
	if !m.checkAccess(addr, 1, PermWrite) {
		return errors.Trap(TrapPermission, "write8 out of permission")
	}
	m.bytes[addr] = v
	return nil
}

func (m *Memory) Write32(addr uint32, v uint32) error {
	if !m.checkAccess(addr, 4, PermWrite) {
		return errors.Trap(TrapPermission, "write32 out of permission")
	}
	m.bytes[addr] = byte(v)
	m.bytes[addr+1] = byte(v >> 8)
	m.bytes[addr+2] = byte(v >> 16)
	m.bytes[addr+3] = byte(v >> 24)
	return nil
}

// LoadBytes copies data into the guest image at addr, bypassing
// permission checks; used once by the loader to place code/data before
// the corresponding region is mapped read-only or executable.
func (m *Memory) LoadBytes(addr uint32, data []byte) error {
	if uint64(addr)+uint64(len(data)) > uint64(len(m.bytes)) {
		return errors.InvalidELF("load segment exceeds guest memory size")
	}
	copy(m.bytes[addr:], data)
	return nil
}

// Size reports the guest address space's total byte length.
func (m *Memory) Size() uint32 { return uint32(len(m.bytes)) }
