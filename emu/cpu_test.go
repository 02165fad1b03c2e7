package emu

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/lightplayer/lightplayer/backend/riscv"
)

func putWord(mem *Memory, addr uint32, w uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], w)
	mem.LoadBytes(addr, b[:])
}

// newTestCPU builds a CPU with a code region at 0 and a data/stack
// region immediately after it.
func newTestCPU(t *testing.T, code []uint32) *CPU {
	t.Helper()
	cpu := NewCPU(Config{MemorySize: 0x10000})
	base := uint32(0)
	for i, w := range code {
		putWord(cpu.Mem, base+uint32(i*4), w)
	}
	if err := cpu.Mem.Map(base, uint32(len(code)*4), PermRead|PermExec); err != nil {
		t.Fatalf("Map code: %v", err)
	}
	if err := cpu.Mem.Map(0x8000, 0x8000, PermRead|PermWrite); err != nil {
		t.Fatalf("Map data: %v", err)
	}
	cpu.PC = base
	return cpu
}

func TestAddImmediateAndHalt(t *testing.T) {
	// addi a0, zero, 5; addi a0, a0, 37; ecall (exit)
	code := []uint32{
		riscv.Addi(riscv.A0, riscv.Zero, 5),
		riscv.Addi(riscv.A0, riscv.A0, 37),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallExit)),
		riscv.Ecall(),
	}
	cpu := newTestCPU(t, code)
	cpu.syscalls = DefaultSyscalls(nil, nil)

	outcome, err := cpu.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != StepHalted {
		t.Fatalf("outcome = %v, want StepHalted", outcome)
	}
	if cpu.ExitCode() != 42 {
		t.Fatalf("exit code = %d, want 42", cpu.ExitCode())
	}
}

func TestBranchLoop(t *testing.T) {
	// Counts a0 down from 5 to 0 using bne, then exits with a0.
	// loop: addi a0, a0, -1; bne a0, zero, loop; ecall
	code := []uint32{
		riscv.Addi(riscv.A0, riscv.Zero, 5),
		riscv.Addi(riscv.A0, riscv.A0, -1), // offset 4: loop target
		riscv.Bne(riscv.A0, riscv.Zero, -4),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallExit)),
		riscv.Ecall(),
	}
	cpu := newTestCPU(t, code)
	cpu.syscalls = DefaultSyscalls(nil, nil)

	outcome, err := cpu.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != StepHalted || cpu.ExitCode() != 0 {
		t.Fatalf("outcome=%v exit=%d, want StepHalted/0", outcome, cpu.ExitCode())
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	// sw a0, 0(s0); lw a1, 0(s0); ecall(exit with a1)
	code := []uint32{
		riscv.Addi(riscv.S0, riscv.Zero, 0), // s0 will be overwritten below via Lui/Addi pattern
		riscv.Lui(riscv.S0, 0x8000),
		riscv.Addi(riscv.A0, riscv.Zero, 123),
		riscv.Sw(riscv.S0, riscv.A0, 0),
		riscv.Lw(riscv.A1, riscv.S0, 0),
		riscv.Add(riscv.A0, riscv.A1, riscv.Zero),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallExit)),
		riscv.Ecall(),
	}
	cpu := newTestCPU(t, code)
	cpu.syscalls = DefaultSyscalls(nil, nil)

	outcome, err := cpu.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != StepHalted || cpu.ExitCode() != 123 {
		t.Fatalf("outcome=%v exit=%d, want StepHalted/123", outcome, cpu.ExitCode())
	}
}

func TestWriteStdoutSyscall(t *testing.T) {
	var out bytes.Buffer
	code := []uint32{
		riscv.Lui(riscv.S0, 0x8000),
		riscv.Addi(riscv.T0, riscv.Zero, 'h'),
		riscv.Sb(riscv.S0, riscv.T0, 0),
		riscv.Addi(riscv.A0, riscv.S0, 0),
		riscv.Addi(riscv.A1, riscv.Zero, 1),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallWriteStdout)),
		riscv.Ecall(),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallExit)),
		riscv.Ecall(),
	}
	cpu := newTestCPU(t, code)
	cpu.syscalls = DefaultSyscalls(&out, nil)

	outcome, err := cpu.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != StepHalted {
		t.Fatalf("outcome = %v, want StepHalted", outcome)
	}
	if out.String() != "h" {
		t.Fatalf("stdout = %q, want %q", out.String(), "h")
	}
}

func TestTrapHandlerInvokedOnEbreak(t *testing.T) {
	var gotCode int32 = -999
	code := []uint32{
		riscv.Addi(riscv.A0, riscv.Zero, 7),
		riscv.Ebreak(),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallExit)),
		riscv.Ecall(),
	}
	cpu := newTestCPU(t, code)
	cpu.syscalls = DefaultSyscalls(nil, nil)
	cpu.traps = func(c *CPU, code int32) error {
		gotCode = code
		return nil
	}

	if _, err := cpu.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotCode != 7 {
		t.Fatalf("trap code = %d, want 7", gotCode)
	}
}

func TestBudgetExhaustedStopsWithoutDiscardingState(t *testing.T) {
	code := []uint32{
		riscv.Addi(riscv.A0, riscv.Zero, 1),
		riscv.Addi(riscv.A0, riscv.A0, 1),
		riscv.Jal(riscv.Zero, -4),
	}
	cpu := newTestCPU(t, code)
	cpu.cycleBudget = 3

	outcome, err := cpu.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != StepBudgetExhausted {
		t.Fatalf("outcome = %v, want StepBudgetExhausted", outcome)
	}
	if cpu.Regs[riscv.A0] == 0 {
		t.Fatal("expected guest register state to survive budget exhaustion")
	}
}

func TestTraceDisabledByDefault(t *testing.T) {
	code := []uint32{
		riscv.Addi(riscv.A0, riscv.Zero, 1),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallExit)),
		riscv.Ecall(),
	}
	cpu := newTestCPU(t, code)
	cpu.syscalls = DefaultSyscalls(nil, nil)
	if cpu.trace != nil {
		t.Fatal("LogOff must leave the trace ring unallocated")
	}

	if _, err := cpu.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := cpu.Trace(); got != nil {
		t.Fatalf("Trace() = %v, want nil under LogOff", got)
	}
}

func TestTraceRingCapturesInstructionWords(t *testing.T) {
	code := []uint32{
		riscv.Addi(riscv.A0, riscv.Zero, 1),
		riscv.Addi(riscv.A0, riscv.A0, 1),
		riscv.Addi(riscv.A7, riscv.Zero, int32(SyscallExit)),
		riscv.Ecall(),
	}
	cpu := NewCPU(Config{MemorySize: 0x10000, LogLevel: LogTrace, TraceSize: 3})
	base := uint32(0)
	for i, w := range code {
		putWord(cpu.Mem, base+uint32(i*4), w)
	}
	if err := cpu.Mem.Map(base, uint32(len(code)*4), PermRead|PermExec); err != nil {
		t.Fatalf("Map code: %v", err)
	}
	cpu.PC = base
	cpu.syscalls = DefaultSyscalls(nil, nil)

	if _, err := cpu.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Ring capacity 3 over 4 executed instructions: the oldest entry
	// (code[0]) is overwritten, leaving code[1:4] in order.
	got := cpu.Trace()
	want := code[1:]
	if len(got) != len(want) {
		t.Fatalf("Trace() has %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("Trace()[%d] = %#x, want %#x", i, got[i], w)
		}
	}
}

func TestPermissionViolationTraps(t *testing.T) {
	code := []uint32{
		riscv.Lui(riscv.S0, 0), // address 0, no write permission in the code region
		riscv.Addi(riscv.T0, riscv.Zero, 1),
		riscv.Sw(riscv.S0, riscv.T0, 0),
	}
	cpu := newTestCPU(t, code)
	_, err := cpu.Run()
	if err == nil {
		t.Fatal("expected a permission trap writing into the read/exec-only code region")
	}
}
