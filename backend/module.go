package backend

import (
	"github.com/lightplayer/lightplayer/errors"
)

// Module is the uniform surface every flavor (HostJIT, Emulator,
// Object) exposes once assembled, generalizing runtime.Module/
// Instance's Compile-then-Instantiate split: backend.Assembler.Link
// plays the Compile role (flavor-independent), and NewHostJITModule/
// NewEmulatorModule/NewObjectModule each play a flavor-specific
// Instantiate, binding the image's pending relocations against
// addresses only that flavor can supply.
type Module interface {
	// Symbol reports the absolute, flavor-specific address of a
	// defined function, or false if name is not exported.
	Symbol(name string) (addr uint64, ok bool)
	// Unresolved lists every symbol this instantiation could not bind
	// (each now reachable only through a trap stub).
	Unresolved() []string
}

// HostResolver supplies the address a named builtin/runtime routine
// is callable at on the current host, for the HostJIT flavor.
type HostResolver func(name string) (addr uint64, ok bool)

// GuestResolver supplies the address a named builtin resolves to
// inside the emulator's guest address space (typically a JIT-compiled
// helper routine, or a symbol loaded from the builtin ELF library).
type GuestResolver func(name string) (addr uint32, ok bool)

// HostJITModule holds read/execute-mapped host memory containing the patched
// machine code, ready for direct invocation from Go via a function
// pointer cast. Per spec §9's design note, this flavor only makes
// sense on an actual RISC-V host; on any other GOARCH, the compiler
// package falls back to building an EmulatorModule and driving it
// in-process instead of constructing one of these.
type HostJITModule struct {
	pages      []byte
	base       uint64
	symbols    map[string]uint64
	unresolved []string
}

func (m *HostJITModule) Symbol(name string) (uint64, bool) {
	addr, ok := m.symbols[name]
	return addr, ok
}

func (m *HostJITModule) Unresolved() []string { return m.unresolved }

// EmulatorModule holds the patched code image plus the absolute guest
// addresses it was relocated against, ready to be copied into an
// emu.CPU's memory at LoadBase by the caller (kept decoupled from the
// emu package so backend has no dependency on the interpreter it
// feeds).
type EmulatorModule struct {
	Code       []byte
	LoadBase   uint32
	symbols    map[string]uint64
	unresolved []string
}

func (m *EmulatorModule) Symbol(name string) (uint64, bool) {
	addr, ok := m.symbols[name]
	return addr, ok
}

func (m *EmulatorModule) Unresolved() []string { return m.unresolved }

// ObjectModule is a relocatable image whose relocations are left
// unresolved for an external linker (spec §4.4: "external linking
// deferred"); it never patches code and so never produces trap stubs.
type ObjectModule struct {
	Image *LinkedImage
}

func (m *ObjectModule) Symbol(name string) (uint64, bool) {
	sym, ok := m.Image.Symbols[name]
	if !ok || !sym.Defined {
		return 0, false
	}
	return uint64(sym.Offset), true
}

func (m *ObjectModule) Unresolved() []string { return nil }

func symbolAddresses(img *LinkedImage, base uint64) map[string]uint64 {
	out := make(map[string]uint64, len(img.Symbols))
	for name, sym := range img.Symbols {
		if sym.Defined {
			out[name] = base + uint64(sym.Offset)
		}
	}
	return out
}

// NewEmulatorModule patches img's text against loadBase (the guest
// address the caller intends to place the image at) and resolve (for
// names img does not itself define). It never fails on an unresolved
// symbol; it traps instead, per the same policy as HostJIT.
func NewEmulatorModule(img *LinkedImage, loadBase uint32, resolve GuestResolver) (*EmulatorModule, error) {
	code := make([]byte, len(img.Code))
	copy(code, img.Code)

	lookup := func(name string) (uint32, bool) {
		if resolve == nil {
			return 0, false
		}
		return resolve(name)
	}
	trapped, err := patchRelocations(img, code, loadBase, lookup)
	if err != nil {
		return nil, err
	}

	return &EmulatorModule{
		Code:       code,
		LoadBase:   loadBase,
		symbols:    symbolAddresses(img, uint64(loadBase)),
		unresolved: trapped,
	}, nil
}

// NewObjectModule wraps img for ELF serialization; see elf.go. No
// relocation is applied here, matching the "external linking
// deferred" flavor contract.
func NewObjectModule(img *LinkedImage) (*ObjectModule, error) {
	return &ObjectModule{Image: img}, nil
}

// checkCodeSpace enforces a configured code-heap ceiling before a
// flavor commits to mapping or copying an image (spec §4.4's
// OutOfCodeSpace failure mode).
func checkCodeSpace(needed, available int) error {
	if available > 0 && needed > available {
		return errors.OutOfCodeSpace(needed, available)
	}
	return nil
}
