package emu

import "github.com/lightplayer/lightplayer/errors"

// registers following the standard RV32 calling convention, used only
// to name the ecall/ebreak argument registers below.
const (
	regA0 = 10
	regA7 = 17
)

func (c *CPU) execute(d decoded, next uint32) error {
	switch d.kind {
	case kLUI:
		c.setReg(d.rd, uint32(d.imm))
		c.PC = next

	case kAUIPC:
		c.setReg(d.rd, c.PC+uint32(d.imm))
		c.PC = next

	case kJAL:
		target := c.PC + uint32(d.imm)
		if target%2 != 0 {
			return errors.Trap(TrapMisaligned, "jal target not halfword-aligned")
		}
		c.setReg(d.rd, next)
		c.PC = target

	case kJALR:
		target := (c.reg(d.rs1) + uint32(d.imm)) &^ 1
		if target%2 != 0 {
			return errors.Trap(TrapMisaligned, "jalr target not halfword-aligned")
		}
		c.setReg(d.rd, next)
		c.PC = target

	case kBranch:
		if branchTaken(d.cond, c.reg(d.rs1), c.reg(d.rs2)) {
			target := c.PC + uint32(d.imm)
			if target%2 != 0 {
				return errors.Trap(TrapMisaligned, "branch target not halfword-aligned")
			}
			c.PC = target
		} else {
			c.PC = next
		}

	case kLoad:
		addr := c.reg(d.rs1) + uint32(d.imm)
		v, err := c.loadSized(addr, d.width, d.signed)
		if err != nil {
			return err
		}
		c.setReg(d.rd, v)
		c.PC = next

	case kStore:
		addr := c.reg(d.rs1) + uint32(d.imm)
		if err := c.storeSized(addr, d.width, c.reg(d.rs2)); err != nil {
			return err
		}
		c.PC = next

	case kOpImm:
		c.setReg(d.rd, aluCompute(d.alu, c.reg(d.rs1), uint32(d.imm)))
		c.PC = next

	case kOp:
		v, err := aluComputeChecked(d.alu, c.reg(d.rs1), c.reg(d.rs2))
		if err != nil {
			return err
		}
		c.setReg(d.rd, v)
		c.PC = next

	case kAMO:
		if err := c.execAMO(d); err != nil {
			return err
		}
		c.PC = next

	case kFence:
		c.PC = next

	case kSystemECall:
		if err := c.execEcall(); err != nil {
			return err
		}
		if !c.halted {
			c.PC = next
		}

	case kSystemEBreak:
		code := int32(c.reg(regA0))
		if c.traps == nil {
			return errors.Trap(code, "ebreak with no registered trap handler")
		}
		if err := c.traps(c, code); err != nil {
			return err
		}
		c.PC = next

	default:
		return errors.Internal("emu.exec", "unhandled decoded instruction kind")
	}
	return nil
}

func branchTaken(cond branchCond, a, b uint32) bool {
	switch cond {
	case brEq:
		return a == b
	case brNe:
		return a != b
	case brLt:
		return int32(a) < int32(b)
	case brGe:
		return int32(a) >= int32(b)
	case brLtu:
		return a < b
	case brGeu:
		return a >= b
	default:
		return false
	}
}

func (c *CPU) loadSized(addr uint32, width int, signed bool) (uint32, error) {
	switch width {
	case 1:
		v, err := c.Mem.Read8(addr)
		if err != nil {
			return 0, err
		}
		if signed {
			return uint32(int32(int8(v))), nil
		}
		return uint32(v), nil
	case 2:
		lo, err := c.Mem.Read8(addr)
		if err != nil {
			return 0, err
		}
		hi, err := c.Mem.Read8(addr + 1)
		if err != nil {
			return 0, err
		}
		v := uint32(lo) | uint32(hi)<<8
		if signed {
			return uint32(int32(int16(v))), nil
		}
		return v, nil
	case 4:
		return c.Mem.Read32(addr)
	default:
		return 0, errors.Internal("emu.exec", "unsupported load width")
	}
}

func (c *CPU) storeSized(addr uint32, width int, v uint32) error {
	switch width {
	case 1:
		return c.Mem.Write8(addr, uint8(v))
	case 2:
		if err := c.Mem.Write8(addr, uint8(v)); err != nil {
			return err
		}
		return c.Mem.Write8(addr+1, uint8(v>>8))
	case 4:
		return c.Mem.Write32(addr, v)
	default:
		return errors.Internal("emu.exec", "unsupported store width")
	}
}

// aluCompute handles the OP-IMM forms, where shift amounts are already
// masked to 5 bits by the decoder.
func aluCompute(op aluOp, a, b uint32) uint32 {
	switch op {
	case aluAdd:
		return a + b
	case aluSll:
		return a << (b & 0x1F)
	case aluSlt:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case aluSltu:
		if a < b {
			return 1
		}
		return 0
	case aluXor:
		return a ^ b
	case aluSrl:
		return a >> (b & 0x1F)
	case aluSra:
		return uint32(int32(a) >> (b & 0x1F))
	case aluOr:
		return a | b
	case aluAnd:
		return a & b
	default:
		return 0
	}
}

// aluComputeChecked handles the OP (register-register) forms, which
// additionally cover the M extension and the aluSub variant OP-IMM
// never produces (subi doesn't exist; addi with a negated immediate
// covers it instead).
func aluComputeChecked(op aluOp, a, b uint32) (uint32, error) {
	switch op {
	case aluSub:
		return a - b, nil
	case aluMul:
		return a * b, nil
	case aluMulh:
		return uint32((int64(int32(a)) * int64(int32(b))) >> 32), nil
	case aluMulhsu:
		return uint32((int64(int32(a)) * int64(uint64(b))) >> 32), nil
	case aluMulhu:
		return uint32((uint64(a) * uint64(b)) >> 32), nil
	case aluDiv:
		if b == 0 {
			return 0xFFFFFFFF, nil
		}
		if int32(a) == -2147483648 && int32(b) == -1 {
			return a, nil // overflow case, RV32 semantics: result = dividend
		}
		return uint32(int32(a) / int32(b)), nil
	case aluDivu:
		if b == 0 {
			return 0xFFFFFFFF, nil
		}
		return a / b, nil
	case aluRem:
		if b == 0 {
			return a, nil
		}
		if int32(a) == -2147483648 && int32(b) == -1 {
			return 0, nil
		}
		return uint32(int32(a) % int32(b)), nil
	case aluRemu:
		if b == 0 {
			return a, nil
		}
		return a % b, nil
	default:
		return aluCompute(op, a, b), nil
	}
}

// execAMO implements the A-extension opcodes under single-core
// semantics (spec §4.5: "atomics... at least in single-core
// semantics"): every AMO is a plain, uninterrupted read-modify-write
// since there is never a second hart to race with; lr.w/sc.w never
// fail for the same reason (sc.w always reports success).
func (c *CPU) execAMO(d decoded) error {
	addr := c.reg(d.rs1)
	old, err := c.Mem.Read32(addr)
	if err != nil {
		return err
	}

	switch d.amo {
	case amoLR:
		c.setReg(d.rd, old)
		return nil
	case amoSC:
		if err := c.Mem.Write32(addr, c.reg(d.rs2)); err != nil {
			return err
		}
		c.setReg(d.rd, 0) // 0 == success
		return nil
	}

	rs2 := c.reg(d.rs2)
	var result uint32
	switch d.amo {
	case amoSwap:
		result = rs2
	case amoAdd:
		result = old + rs2
	case amoAnd:
		result = old & rs2
	case amoOr:
		result = old | rs2
	case amoXor:
		result = old ^ rs2
	case amoMax:
		if int32(old) > int32(rs2) {
			result = old
		} else {
			result = rs2
		}
	case amoMin:
		if int32(old) < int32(rs2) {
			result = old
		} else {
			result = rs2
		}
	case amoMaxu:
		if old > rs2 {
			result = old
		} else {
			result = rs2
		}
	case amoMinu:
		if old < rs2 {
			result = old
		} else {
			result = rs2
		}
	default:
		return errors.Internal("emu.exec", "unhandled amo op")
	}

	if err := c.Mem.Write32(addr, result); err != nil {
		return err
	}
	c.setReg(d.rd, old)
	return nil
}
