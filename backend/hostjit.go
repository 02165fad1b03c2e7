package backend

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// hostAddr returns the virtual address backing an mmap'd slice.
func hostAddr(pages []byte) uint64 {
	if len(pages) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&pages[0])))
}

// HostJITConfig bounds the host code heap a HostJIT instantiation may
// claim (spec §4.4's OutOfCodeSpace failure mode).
type HostJITConfig struct {
	MaxCodeBytes int // 0 means unbounded
}

// NewHostJITModule mmaps a RW page, copies img's text into it, patches
// every relocation against the page's real virtual address and
// resolve's host function pointers, then mprotects the page RX. The
// returned pointer is only safely callable when GOARCH is the RV32
// target this core compiles for; on any other host, construct an
// EmulatorModule and execute it in-process instead (spec §9's
// HostJIT-on-non-RISC-V design note).
func NewHostJITModule(img *LinkedImage, cfg HostJITConfig, resolve HostResolver) (*HostJITModule, error) {
	size := len(img.Code)
	if err := checkCodeSpace(size, cfg.MaxCodeBytes); err != nil {
		return nil, err
	}

	pageSize := unix.Getpagesize()
	mapSize := ((size + pageSize - 1) / pageSize) * pageSize
	if mapSize == 0 {
		mapSize = pageSize
	}

	pages, err := unix.Mmap(-1, 0, mapSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	copy(pages, img.Code)

	base := hostAddr(pages)
	lookup := func(name string) (uint32, bool) {
		if resolve == nil {
			return 0, false
		}
		addr, ok := resolve(name)
		return uint32(addr), ok
	}
	trapped, err := patchRelocations(img, pages[:size], uint32(base), lookup)
	if err != nil {
		unix.Munmap(pages)
		return nil, err
	}

	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(pages)
		return nil, err
	}

	return &HostJITModule{
		pages:      pages,
		base:       base,
		symbols:    symbolAddresses(img, base),
		unresolved: trapped,
	}, nil
}

// Close unmaps the JIT'd pages. Callers must not invoke any symbol
// from this module afterward.
func (m *HostJITModule) Close() error {
	if m.pages == nil {
		return nil
	}
	err := unix.Munmap(m.pages)
	m.pages = nil
	return err
}
