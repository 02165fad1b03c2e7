package elf

import (
	"testing"

	"github.com/lightplayer/lightplayer/backend"
	"github.com/lightplayer/lightplayer/backend/riscv"
	"github.com/lightplayer/lightplayer/emu"
	"github.com/lightplayer/lightplayer/ssa"
)

// addObject marshals `func add(a, b i32) i32 { return a + b }` into the
// ET_REL bytes backend.ObjectModule.Marshal produces.
func addObject(t *testing.T) []byte {
	t.Helper()
	fn := ssa.NewFunction("add", ssa.Signature{
		Params: []ssa.Type{ssa.TypeI32, ssa.TypeI32},
		Result: ssa.TypeI32,
	}, ssa.LinkageExported)

	entry := fn.NewBlock()
	a := fn.NewValue(ssa.TypeI32)
	b := fn.NewValue(ssa.TypeI32)
	entry.Params = []ssa.Param{{Value: a, Type: ssa.TypeI32}, {Value: b, Type: ssa.TypeI32}}
	sum := fn.NewValue(ssa.TypeI32)
	entry.Instrs = []ssa.Instr{
		{Op: ssa.OpIAdd, Result: sum, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{a, b}},
		{Op: ssa.OpReturn, RetValues: []ssa.ValueID{sum}},
	}

	mod := &ssa.Module{Name: "m", Funcs: []*ssa.Function{fn}}
	asm := backend.NewAssembler(mod)
	if err := asm.SelectAll(); err != nil {
		t.Fatalf("SelectAll: %v", err)
	}
	img, err := asm.Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	om, err := backend.NewObjectModule(img)
	if err != nil {
		t.Fatalf("NewObjectModule: %v", err)
	}
	return om.Marshal()
}

func TestLoadRoundTripsBackendMarshaledObject(t *testing.T) {
	data := addObject(t)

	var trapCode int32 = -1
	cpu := emu.NewCPU(emu.Config{
		MemorySize: 0x10000,
		Traps: func(c *emu.CPU, code int32) error {
			trapCode = code
			c.RequestStop()
			return nil
		},
	})

	const loadBase = 0x1000
	result, err := Load(data, cpu.Mem, loadBase, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Unresolved) != 0 {
		t.Fatalf("unexpected unresolved symbols: %v", result.Unresolved)
	}

	// Map a trap pad right after the function's own code, and point RA
	// at it so returning from add halts execution cleanly via ebreak.
	trapPad := loadBase + result.Size
	if err := cpu.Mem.Map(trapPad, 8, emu.PermRead|emu.PermWrite|emu.PermExec); err != nil {
		t.Fatalf("Map trap pad: %v", err)
	}
	putTrapStub(cpu, trapPad)

	cpu.PC = loadBase
	cpu.Regs[riscv.A0] = 2
	cpu.Regs[riscv.A1] = 3
	cpu.Regs[riscv.RA] = trapPad

	if _, err := cpu.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cpu.Regs[riscv.A0] != 5 {
		t.Fatalf("a0 = %d, want 5 (2+3 through a real ELF round trip)", cpu.Regs[riscv.A0])
	}
	if trapCode != 5 {
		t.Fatalf("trap code = %d, want 5 (ebreak reads a0, which still holds add's result)", trapCode)
	}
}

// putTrapStub writes a lone ebreak so returning from add halts through
// the trap handler without disturbing a0.
func putTrapStub(cpu *emu.CPU, addr uint32) {
	var b [4]byte
	putWord32(b[:], riscv.Ebreak())
	cpu.Mem.LoadBytes(addr, b[:])
}

func putWord32(b []byte, w uint32) {
	b[0] = byte(w)
	b[1] = byte(w >> 8)
	b[2] = byte(w >> 16)
	b[3] = byte(w >> 24)
}
