package emu

import "github.com/lightplayer/lightplayer/errors"

// Internal fault codes the emulator itself raises, kept in a range far
// from both the program's own ebreak codes (small non-negative ints,
// spec's ArrayBoundsCode and friends) and backend's unresolved-symbol
// range (small negative ints, see backend.unresolvedSymbolTrapCode) so
// a handler keyed on TrapCode can always tell the three apart.
const (
	TrapPermission    int32 = -1 << 20
	TrapMisaligned    int32 = -1<<20 - 1
	TrapIllegalInstr  int32 = -1<<20 - 2
	TrapUnimplemented int32 = -1<<20 - 3
)

// TrapHandler is the caller-registered table mapping an ebreak's code
// (loaded into a0 by the guest before trapping, per backend/select.go's
// selectTrapnz/writeTrapStub) to a handling tag (spec §4.5: "a
// caller-registered code mapping breakpoints to handler tags").
type TrapHandler func(cpu *CPU, code int32) error

// Syscall is a host-implemented ecall handler, keyed by the call number
// the guest loads into a7 before trapping (spec §4.5's designated
// register convention, following the RV32 calling convention).
type Syscall func(cpu *CPU, args [6]uint32) (uint32, error)

// LogLevel gates CPU's per-instruction trace ring. LogOff, the zero
// value, leaves the ring unallocated and skips the one branch Step
// pays for it; LogTrace allocates the ring and records every executed
// instruction's raw word into it.
type LogLevel int32

const (
	LogOff LogLevel = iota
	LogTrace
)

// defaultTraceSize is the trace ring's capacity when LogLevel is
// LogTrace and Config.TraceSize is left at 0.
const defaultTraceSize = 256

// Config configures one CPU instance (spec's "emu.Config (memory size,
// cycle budget, trap handler table)").
type Config struct {
	MemorySize  uint32
	CycleBudget int64 // 0 means unbounded
	Traps       TrapHandler
	Syscalls    map[uint32]Syscall

	// LogLevel gates the per-instruction trace ring. Defaults to LogOff.
	LogLevel LogLevel
	// TraceSize bounds the ring's capacity under LogTrace. 0 means
	// defaultTraceSize.
	TraceSize int
}

// StepOutcome reports what happened during one Step call.
type StepOutcome int

const (
	StepContinue StepOutcome = iota
	StepHalted               // guest issued exit via ecall
	StepBudgetExhausted
)

// CPU is one RV32IMAC instruction-set simulator instance (spec §4.5):
// 32 general-purpose registers, a program counter, a cycle counter, and
// a private guest memory image. Grounded on rcornwell-S370's
// emu/cpu.CycleCPU "execute one instruction, report cycles taken"
// shape, generalized from a fixed global cpuState singleton to an
// explicitly-allocated, independently-runnable instance (spec §8's "no
// ambient global state... usable in a sandboxed context").
type CPU struct {
	Regs [32]uint32
	PC   uint32

	Cycles      int64
	cycleBudget int64

	Mem *Memory

	traps    TrapHandler
	syscalls map[uint32]Syscall

	halted   bool
	exitCode int32

	shouldStop bool

	// logLevel, trace, and traceHead back the per-instruction trace
	// ring. trace stays nil under LogOff, so a disabled CPU never
	// allocates or writes any per-instruction side storage.
	logLevel  LogLevel
	trace     []uint32
	traceHead int
	traceFull bool
}

// NewCPU allocates a CPU with cfg's memory size and trap/syscall
// tables. The caller loads code/data into cpu.Mem before the first
// Step.
func NewCPU(cfg Config) *CPU {
	size := cfg.MemorySize
	if size == 0 {
		size = 1 << 20
	}
	c := &CPU{
		Mem:         NewMemory(size),
		cycleBudget: cfg.CycleBudget,
		traps:       cfg.Traps,
		syscalls:    cfg.Syscalls,
		logLevel:    cfg.LogLevel,
	}
	if cfg.LogLevel != LogOff {
		traceSize := cfg.TraceSize
		if traceSize == 0 {
			traceSize = defaultTraceSize
		}
		c.trace = make([]uint32, traceSize)
	}
	return c
}

// RequestStop sets the cooperative "should stop" flag Step checks
// between instructions (spec §4.6: "the caller polls a should-stop
// flag between steps").
func (c *CPU) RequestStop() { c.shouldStop = true }

// Resume clears halted/should-stop/cycle-budget state and sets PC to
// entry, so one CPU instance can be driven through a sequence of
// separate Run calls (spec §4.4's compiled Module invoking more than
// one export against the same guest image) instead of being good for
// only a single Run.
func (c *CPU) Resume(entry uint32) {
	c.halted = false
	c.shouldStop = false
	c.Cycles = 0
	c.PC = entry
}

// ExitCode reports the value the guest passed to the exit syscall,
// valid only once Run/Step has returned StepHalted.
func (c *CPU) ExitCode() int32 { return c.exitCode }

// reg reads register r; x0 always reads as zero regardless of what was
// last written to it.
func (c *CPU) reg(r uint32) uint32 {
	if r == 0 {
		return 0
	}
	return c.Regs[r]
}

// setReg writes register r; writes to x0 are discarded.
func (c *CPU) setReg(r uint32, v uint32) {
	if r != 0 {
		c.Regs[r] = v
	}
}

// Step executes exactly one instruction (32-bit or compressed 16-bit),
// advancing PC and the cycle counter, or reports why it could not.
func (c *CPU) Step() (StepOutcome, error) {
	if c.halted {
		return StepHalted, nil
	}
	if c.shouldStop || (c.cycleBudget > 0 && c.Cycles >= c.cycleBudget) {
		return StepBudgetExhausted, nil
	}

	instr, size, word, err := c.fetch()
	if err != nil {
		return StepContinue, err
	}
	if c.logLevel != LogOff {
		c.recordTrace(word)
	}

	next := c.PC + size
	if err := c.execute(instr, next); err != nil {
		return StepContinue, err
	}

	c.Cycles++
	return StepContinue, nil
}

// recordTrace appends word to the trace ring, overwriting the oldest
// entry once full. Only reached when logLevel != LogOff.
func (c *CPU) recordTrace(word uint32) {
	c.trace[c.traceHead] = word
	c.traceHead++
	if c.traceHead == len(c.trace) {
		c.traceHead = 0
		c.traceFull = true
	}
}

// Trace returns the captured instruction words in execution order,
// oldest first, bounded by the ring's capacity. Empty under LogOff.
func (c *CPU) Trace() []uint32 {
	if c.trace == nil {
		return nil
	}
	if !c.traceFull {
		out := make([]uint32, c.traceHead)
		copy(out, c.trace[:c.traceHead])
		return out
	}
	out := make([]uint32, len(c.trace))
	n := copy(out, c.trace[c.traceHead:])
	copy(out[n:], c.trace[:c.traceHead])
	return out
}

// Run steps until budget exhaustion (or a stop request), a halt, or an
// error, and returns that outcome and error exactly as Step reported
// them; budget exhaustion comes back as StepBudgetExhausted with a nil
// error.
func (c *CPU) Run() (StepOutcome, error) {
	for {
		outcome, err := c.Step()
		if err != nil {
			return outcome, err
		}
		if outcome != StepContinue {
			return outcome, nil
		}
	}
}

// fetch reads the instruction at PC, returning its decoded form, its
// encoded length in bytes (2 for compressed, 4 otherwise), and the raw
// instruction bits as actually read from memory (the compressed
// halfword zero-extended to 32 bits, or the full word) — Step reuses
// this value directly as the trace ring's log datum instead of
// re-encoding the decoded form.
func (c *CPU) fetch() (decoded, uint32, uint32, error) {
	lo, err := c.Mem.FetchHalf(c.PC)
	if err != nil {
		return decoded{}, 0, 0, err
	}
	if lo&0x3 != 0x3 {
		d, err := decodeCompressed(lo)
		if err != nil {
			return decoded{}, 0, 0, errors.Trap(TrapIllegalInstr, err.Error())
		}
		return d, 2, uint32(lo), nil
	}
	hi, err := c.Mem.FetchHalf(c.PC + 2)
	if err != nil {
		return decoded{}, 0, 0, err
	}
	word := uint32(lo) | uint32(hi)<<16
	d, err := decode32(word)
	if err != nil {
		return decoded{}, 0, 0, errors.Trap(TrapIllegalInstr, err.Error())
	}
	return d, 4, word, nil
}
