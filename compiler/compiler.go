// Package compiler is the top-level entry point gluing together the
// frontend, lowering, Q32 transform, backend, and (for two of the
// three module flavors) the emulator into one synchronous call,
// following the teacher's runtime.New/Runtime.LoadWASM shape: a single
// call returns a *Module or a diagnostics list, starting no goroutines
// of its own (spec §5). Parallel compilation is the caller's
// responsibility; a *builtin.Registry populated once and shared
// read-only across goroutines is safe, matching the teacher's
// sync.Once-guarded logger singleton.
package compiler

import (
	"fmt"
	"runtime"

	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/backend"
	"github.com/lightplayer/lightplayer/backend/riscv"
	"github.com/lightplayer/lightplayer/builtin"
	"github.com/lightplayer/lightplayer/emu"
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/lower"
	"github.com/lightplayer/lightplayer/q32"
	"github.com/lightplayer/lightplayer/sema"
	"github.com/lightplayer/lightplayer/ssa"
)

// Target selects which of the three module flavors spec §4.4 defines
// Compile should produce.
type Target int

const (
	// TargetHostJIT runs the compiled image directly on the host CPU.
	// Per spec §9's resolved design note this only makes sense when the
	// running process's GOARCH is itself the RV32 target this core
	// compiles for; Compile falls back to TargetEmulator transparently
	// on every other host.
	TargetHostJIT Target = iota
	// TargetEmulator relocates the image against an in-process emu.CPU
	// and keeps that CPU around so the caller can invoke exports.
	TargetEmulator
	// TargetObject leaves every relocation unresolved and returns a
	// serialized ET_REL object for an external linker (spec §4.4).
	TargetObject
)

func (t Target) String() string {
	switch t {
	case TargetHostJIT:
		return "hostjit"
	case TargetEmulator:
		return "emulator"
	case TargetObject:
		return "object"
	default:
		return "unknown"
	}
}

// rv32GOARCH is the runtime.GOARCH value a HostJIT-capable process runs
// under. No such GOARCH exists in the Go toolchain at the time of
// writing, so TargetHostJIT always falls back to TargetEmulator today;
// the check is still real, not a permanent stub, against the day a
// riscv32 GOARCH ships.
const rv32GOARCH = "riscv32"

// Config configures one Compile call (spec "compiler.Config (code-heap
// size, target flavor, symbol table, log level)").
type Config struct {
	// Registry supplies the builtin catalog sema and lower resolve
	// calls against. Nil means builtin.NewRegistry() populated by
	// builtin.RegisterStandardLibrary.
	Registry *builtin.Registry

	Target Target

	// CodeHeapBytes bounds the assembled image's code size (backend's
	// OutOfCodeSpace failure mode). 0 means unbounded.
	CodeHeapBytes int

	// MemoryBytes sizes the emu.CPU's guest address space for
	// TargetEmulator and HostJIT's emulator fallback. 0 means emu's own
	// default.
	MemoryBytes uint32

	// LoadBase is the guest address the image is relocated against for
	// TargetEmulator / HostJIT's fallback.
	LoadBase uint32

	// GuestBuiltins supplies the guest address of every builtin symbol
	// the caller has already loaded elsewhere in the same guest image
	// (spec §1: the builtin math/noise library is an external
	// collaborator), keyed by symbolKey. Absent entries trap.
	GuestBuiltins map[string]uint32

	// HostBuiltins is GuestBuiltins' HostJIT analogue: real host
	// function addresses for the builtin library, when the process
	// actually runs as rv32GOARCH.
	HostBuiltins map[string]uint64

	// Verify runs ssa.Verifier after lowering and after the Q32 pass.
	// Defaults to true. A plain Verify=false is ignored, since the zero
	// Config cannot tell it from unset; disable verification with
	// WithVerify(false).
	Verify    bool
	verifySet bool
}

// WithVerify returns a copy of cfg with Verify explicitly set, so the
// zero Config's "Verify defaults to true" rule can distinguish "unset"
// from "explicitly false."
func (cfg Config) WithVerify(on bool) Config {
	cfg.Verify = on
	cfg.verifySet = true
	return cfg
}

func (cfg Config) verifyEnabled() bool {
	return !cfg.verifySet || cfg.Verify
}

func defaultConfig() Config {
	reg := builtin.NewRegistry()
	builtin.RegisterStandardLibrary(reg)
	return Config{Registry: reg, Target: TargetEmulator}
}

// Module is the result of a successful Compile call: the post-Q32 SSA
// (kept for diagnostics/tests), the assembled image, and either a
// ready-to-run emu.CPU (TargetEmulator, and TargetHostJIT's fallback)
// or a mapped host-executable image (a genuine TargetHostJIT result).
type Module struct {
	SSA   *ssa.Module
	Image *backend.LinkedImage

	// Object holds the serialized ET_REL bytes; non-nil only for
	// TargetObject.
	Object []byte

	// CPU is non-nil for TargetEmulator and for TargetHostJIT's
	// fallback; the code is already mapped and loaded at Base.
	CPU  *emu.CPU
	Base uint32

	// Unresolved lists every builtin symbol neither GuestBuiltins nor
	// HostBuiltins could supply; calling into one traps instead of
	// failing the compile (spec §4.4's unresolved-symbol policy).
	Unresolved []string

	// hostJIT is set instead of CPU for a genuine TargetHostJIT result
	// (GOARCH matches rv32GOARCH). This core has no native trampoline
	// generator (spec §1's stated scope), so Call refuses to invoke
	// through it directly; Func still reports real callable addresses
	// for a caller that builds its own trampoline.
	hostJIT *backend.HostJITModule

	padAddr  uint32
	trapCode int32
	trapPC   uint32
}

// Func looks up an exported function's entry address in the compiled
// image, or reports it as undefined. For a genuine TargetHostJIT
// result the address is directly callable host memory; for every other
// flavor it is a guest address meaningful only against m.CPU.
func (m *Module) Func(name string) (uint64, bool) {
	if m.hostJIT != nil {
		return m.hostJIT.Symbol(name)
	}
	if m.Image == nil {
		return 0, false
	}
	sym, ok := m.Image.Symbols[name]
	if !ok || !sym.Defined {
		return 0, false
	}
	return uint64(m.Base) + uint64(sym.Offset), true
}

var argRegs = [8]riscv.Reg{riscv.A0, riscv.A1, riscv.A2, riscv.A3, riscv.A4, riscv.A5, riscv.A6, riscv.A7}

// Call invokes an exported function on m.CPU (TargetEmulator, or
// TargetHostJIT's emulator fallback): argument values are staged into
// a0.. per the RV32 calling convention, ra is pointed at a dedicated
// single-ebreak return pad so a normal `ret` halts execution cleanly,
// and the function's a0 result is returned. An in-flight trap (an
// ebreak anywhere other than the return pad) surfaces as an
// *errors.Error instead. Each call resets m.CPU via Resume, so the same
// Module can be called repeatedly.
func (m *Module) Call(name string, args ...uint32) (uint32, error) {
	if m.hostJIT != nil {
		return 0, errors.Internal("compiler.call", fmt.Sprintf("%s: direct hostjit invocation needs a native trampoline this core does not generate; use Func and call through one yourself", name))
	}
	if m.CPU == nil {
		return 0, errors.Internal("compiler.call", fmt.Sprintf("module has no running CPU (target %s)", name))
	}
	addr, ok := m.Func(name)
	if !ok {
		return 0, errors.UnresolvedSymbol(name)
	}
	if len(args) > len(argRegs) {
		return 0, errors.Internal("compiler.call", fmt.Sprintf("%s: %d arguments exceed the %d-register calling convention", name, len(args), len(argRegs)))
	}

	for i, a := range args {
		m.CPU.Regs[argRegs[i]] = a
	}
	m.CPU.Regs[riscv.RA] = m.padAddr
	m.CPU.Resume(uint32(addr))

	if _, err := m.CPU.Run(); err != nil {
		return 0, err
	}
	if m.trapPC != m.padAddr {
		return 0, errors.Trap(m.trapCode, fmt.Sprintf("%s trapped before returning", name))
	}
	return m.CPU.Regs[riscv.A0], nil
}

// installReturnPad maps a one-word read/execute region just past the loaded
// code and writes a lone ebreak into it, then wires cpu's trap handler
// to record the trapping code/PC on mod (Call tells a clean return from
// a genuine trap by comparing that PC against padAddr, since a0 is
// legitimately overloaded as both a function's real result and various
// trap-code conventions, so it cannot serve as the sentinel on its own).
func installReturnPad(mod *Module, cpu *emu.CPU, codeEnd uint32) error {
	pad := codeEnd
	if pad%4 != 0 {
		pad += 4 - pad%4
	}
	if err := cpu.Mem.Map(pad, 4, emu.PermRead|emu.PermExec); err != nil {
		return err
	}
	var buf [4]byte
	w := riscv.Ebreak()
	buf[0], buf[1], buf[2], buf[3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
	if err := cpu.Mem.LoadBytes(pad, buf[:]); err != nil {
		return err
	}
	mod.padAddr = pad
	return nil
}

func makeTraps(mod *Module) emu.TrapHandler {
	return func(c *emu.CPU, code int32) error {
		mod.trapCode = code
		mod.trapPC = c.PC
		c.RequestStop()
		return nil
	}
}

// Compile runs the full pipeline — semantic analysis, lowering, the
// Q32 rewrite, instruction selection/linking, and (outside
// TargetObject) module instantiation — over m and returns the result,
// or every diagnostic collected along the way. A nil cfg uses
// defaultConfig().
func Compile(m *ast.Module, cfg *Config) (mod *Module, errs []error) {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if c.Registry == nil {
		c.Registry = defaultConfig().Registry
	}

	defer func() {
		if r := recover(); r != nil {
			mod = nil
			errs = []error{errors.Internal("compiler.compile", fmt.Sprintf("panic: %v", r))}
		}
	}()

	semaMod, semaErrs := sema.New(c.Registry).Analyze(m)
	if len(semaErrs) > 0 {
		return nil, semaErrs
	}

	ssaMod := lower.New(c.Registry).Module(semaMod)
	if c.verifyEnabled() {
		if verr := verifyModule(ssaMod, "lower"); len(verr) > 0 {
			return nil, verr
		}
	}

	ssaMod = q32.New(q32.Config{Registry: c.Registry}).Transform(ssaMod)
	if c.verifyEnabled() {
		if verr := verifyModule(ssaMod, "q32"); len(verr) > 0 {
			return nil, verr
		}
		for _, fn := range ssaMod.Funcs {
			if err := ssa.CheckNoFloat(fn); err != nil {
				return nil, []error{err}
			}
		}
	}

	asm := backend.NewAssembler(ssaMod)
	if err := asm.SelectAll(); err != nil {
		return nil, []error{err}
	}
	img, err := asm.Link()
	if err != nil {
		return nil, []error{err}
	}
	if err := checkCodeHeap(len(img.Code), c.CodeHeapBytes); err != nil {
		return nil, []error{err}
	}

	switch c.Target {
	case TargetObject:
		om, err := backend.NewObjectModule(img)
		if err != nil {
			return nil, []error{err}
		}
		return &Module{SSA: ssaMod, Image: img, Object: om.Marshal()}, nil

	case TargetHostJIT:
		if runtime.GOARCH == rv32GOARCH {
			return compileHostJIT(ssaMod, img, c)
		}
		Logger().Sugar().Debugf("hostjit requested on GOARCH=%s, falling back to in-process emulator", runtime.GOARCH)
		fallthrough

	default: // TargetEmulator
		return compileEmulator(ssaMod, img, c)
	}
}

func checkCodeHeap(needed, available int) error {
	if available > 0 && needed > available {
		return errors.OutOfCodeSpace(needed, available)
	}
	return nil
}

func compileEmulator(ssaMod *ssa.Module, img *backend.LinkedImage, c Config) (*Module, []error) {
	em, err := backend.NewEmulatorModule(img, c.LoadBase, guestResolver(c.Registry, c.GuestBuiltins))
	if err != nil {
		return nil, []error{err}
	}

	mod := &Module{SSA: ssaMod, Image: img, Base: c.LoadBase, Unresolved: em.Unresolved()}
	cpu := emu.NewCPU(emu.Config{MemorySize: c.MemoryBytes, Traps: makeTraps(mod)})
	mod.CPU = cpu

	if err := cpu.Mem.Map(c.LoadBase, uint32(len(em.Code)), emu.PermRead|emu.PermExec|emu.PermWrite); err != nil {
		return nil, []error{err}
	}
	if err := cpu.Mem.LoadBytes(c.LoadBase, em.Code); err != nil {
		return nil, []error{err}
	}
	// installReturnPad maps its own read/execute region just past the
	// code, separate from the read/write/execute block above.
	if err := installReturnPad(mod, cpu, c.LoadBase+uint32(len(em.Code))); err != nil {
		return nil, []error{err}
	}

	return mod, nil
}

func compileHostJIT(ssaMod *ssa.Module, img *backend.LinkedImage, c Config) (*Module, []error) {
	hj, err := backend.NewHostJITModule(img, backend.HostJITConfig{MaxCodeBytes: c.CodeHeapBytes}, hostResolver(c.HostBuiltins))
	if err != nil {
		return nil, []error{err}
	}
	return &Module{SSA: ssaMod, Image: img, hostJIT: hj, Unresolved: hj.Unresolved()}, nil
}

func verifyModule(m *ssa.Module, pass string) []error {
	v := ssa.NewVerifier(pass)
	var errs []error
	for _, fn := range m.Funcs {
		if err := v.Verify(fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
