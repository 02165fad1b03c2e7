package emu

import "github.com/lightplayer/lightplayer/errors"

// Fixed syscall numbers (spec §4.5: "implementations must document the
// exact numeric assignment; the core depends on at least time_now_us,
// write_stdout, exit"). Grounded on the shape of the teacher's own
// syscall-number tables in `wasi` (one fixed integer per call, never
// renumbered once shipped) without carrying that package's
// filesystem/network surface, which has no RISC-V-microcontroller
// analog.
const (
	SyscallTimeNowUS   uint32 = 1
	SyscallWriteStdout uint32 = 2
	SyscallExit        uint32 = 3
)

// Stdout is the writer write_stdout appends to; tests substitute a
// bytes.Buffer, a real deployment wires the device's serial port.
type Stdout interface {
	Write(p []byte) (int, error)
}

// NowFunc supplies time_now_us's return value. Defaults to a
// caller-injected clock rather than time.Now directly so emulator runs
// stay reproducible (spec §8 property 8: "emulator determinism").
type NowFunc func() int64

// DefaultSyscalls builds the three syscalls this core depends on,
// reading guest argument registers by the standard RV32 ecall
// convention (a0..a5 are arguments, a7 is the call number, a0 on
// return holds the result).
func DefaultSyscalls(out Stdout, now NowFunc) map[uint32]Syscall {
	return map[uint32]Syscall{
		SyscallTimeNowUS: func(cpu *CPU, args [6]uint32) (uint32, error) {
			var us int64
			if now != nil {
				us = now()
			}
			return uint32(us), nil
		},
		SyscallWriteStdout: func(cpu *CPU, args [6]uint32) (uint32, error) {
			addr, length := args[0], args[1]
			buf := make([]byte, length)
			for i := uint32(0); i < length; i++ {
				b, err := cpu.Mem.Read8(addr + i)
				if err != nil {
					return 0, err
				}
				buf[i] = b
			}
			if out == nil {
				return uint32(len(buf)), nil
			}
			n, err := out.Write(buf)
			if err != nil {
				return 0, errors.SyscallError(SyscallWriteStdout, err.Error())
			}
			return uint32(n), nil
		},
		SyscallExit: func(cpu *CPU, args [6]uint32) (uint32, error) {
			cpu.halted = true
			cpu.exitCode = int32(args[0])
			return 0, nil
		},
	}
}

// execEcall dispatches the current ecall against the syscall table by
// a7's value, storing the result (or trapping) in a0.
func (c *CPU) execEcall() error {
	number := c.reg(regA7)
	handler, ok := c.syscalls[number]
	if !ok {
		return errors.SyscallError(number, "no handler registered")
	}
	var args [6]uint32
	for i := range args {
		args[i] = c.reg(uint32(regA0 + i))
	}
	result, err := handler(c, args)
	if err != nil {
		return err
	}
	c.setReg(regA0, result)
	return nil
}
