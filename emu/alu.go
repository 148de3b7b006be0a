package emu

import (
	"math/bits"

	"github.com/sarchlab/armsim/insts"
)

// operand2 evaluates the shifter operand of a data-processing instruction
// and returns it with the shifter carry-out.
func operand2(regs *RegFile, inst *insts.Instruction) (uint32, bool) {
	carry := regs.C()

	switch inst.Shape {
	case insts.ShapeDataImm:
		return RotateImmediate(inst.Imm, inst.Rotate, carry)
	case insts.ShapeDataRegReg:
		rs := regs.ReadReg(inst.Rs)
		return ShiftByRegister(regs.ReadReg(inst.Rm), rs, inst.ShiftType, carry)
	default:
		return ShiftByImmediate(regs.ReadReg(inst.Rm), inst.ShiftAmount, inst.ShiftType, carry)
	}
}

// addWithCarry returns a + b + carryIn with the unsigned carry-out and the
// signed overflow.
func addWithCarry(a, b uint32, carryIn bool) (result uint32, carry, overflow bool) {
	var cin uint32
	if carryIn {
		cin = 1
	}

	result, c := bits.Add32(a, b, cin)
	overflow = ((a^result)&(b^result))>>31 == 1

	return result, c == 1, overflow
}

// subWithCarry returns a - b - !carryIn. The carry-out is set when no borrow
// occurred.
func subWithCarry(a, b uint32, carryIn bool) (uint32, bool, bool) {
	return addWithCarry(a, ^b, carryIn)
}

// executeDataProcessing implements the sixteen data-processing opcodes for
// all three operand shapes.
func executeDataProcessing(_ *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	op2, shifterCarry := operand2(regs, inst)
	rn := regs.ReadReg(inst.Rn)

	carryIn := regs.C()
	carry := shifterCarry
	overflow := regs.V()

	var result uint32

	switch inst.Opcode {
	case insts.OpAND, insts.OpTST:
		result = rn & op2
	case insts.OpEOR, insts.OpTEQ:
		result = rn ^ op2
	case insts.OpSUB, insts.OpCMP:
		result, carry, overflow = subWithCarry(rn, op2, true)
	case insts.OpRSB:
		result, carry, overflow = subWithCarry(op2, rn, true)
	case insts.OpADD, insts.OpCMN:
		result, carry, overflow = addWithCarry(rn, op2, false)
	case insts.OpADC:
		result, carry, overflow = addWithCarry(rn, op2, carryIn)
	case insts.OpSBC:
		result, carry, overflow = subWithCarry(rn, op2, carryIn)
	case insts.OpRSC:
		result, carry, overflow = subWithCarry(op2, rn, carryIn)
	case insts.OpORR:
		result = rn | op2
	case insts.OpMOV:
		result = op2
	case insts.OpBIC:
		result = rn &^ op2
	case insts.OpMVN:
		result = ^op2
	}

	if !inst.Opcode.IsCompare() {
		if inst.Rd == RegPC {
			jumpTo(regs, result)

			// Exception return: restore the interrupted mode's status.
			if inst.SetFlags && regs.HasSPSR() {
				regs.SetCPSR(regs.SPSR())
				return OutcomeContinue
			}
		} else {
			regs.WriteReg(inst.Rd, result)
		}
	}

	if inst.SetFlags {
		regs.setNZ(result)
		regs.SetC(carry)
		regs.SetV(overflow)
	}

	return OutcomeContinue
}

// executeMultiply implements MUL and MLA. Only N and Z are affected.
func executeMultiply(_ *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	product := uint64(regs.ReadReg(inst.Rm)) * uint64(regs.ReadReg(inst.Rs))
	result := uint32(product)

	if inst.Accumulate {
		result += regs.ReadReg(inst.Rn)
	}

	regs.WriteReg(inst.Rd, result)

	if inst.SetFlags {
		regs.setNZ(result)
	}

	return OutcomeContinue
}
