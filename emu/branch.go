package emu

import "github.com/sarchlab/armsim/insts"

// ConditionPassed evaluates a condition code against NZCV flags (N in bit 3,
// as returned by RegFile.NZCV). NV never passes.
func ConditionPassed(cond insts.Cond, nzcv uint32) bool {
	n := nzcv&0b1000 != 0
	z := nzcv&0b0100 != 0
	c := nzcv&0b0010 != 0
	v := nzcv&0b0001 != 0

	switch cond {
	case insts.CondEQ:
		return z
	case insts.CondNE:
		return !z
	case insts.CondCS:
		return c
	case insts.CondCC:
		return !c
	case insts.CondMI:
		return n
	case insts.CondPL:
		return !n
	case insts.CondVS:
		return v
	case insts.CondVC:
		return !v
	case insts.CondHI:
		return c && !z
	case insts.CondLS:
		return !c || z
	case insts.CondGE:
		return n == v
	case insts.CondLT:
		return n != v
	case insts.CondGT:
		return !z && n == v
	case insts.CondLE:
		return z || n != v
	case insts.CondAL:
		return true
	default:
		return false
	}
}

// executeBranch implements B and BL. BL saves the address of the following
// instruction in lr.
func executeBranch(_ *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	if inst.Link {
		regs.WriteReg(RegLR, inst.PCAddress+4)
	}

	jumpTo(regs, inst.PCAddress+uint32(inst.BranchOffset))

	return OutcomeContinue
}

// executeBranchExchange implements BX. Bit 0 of the target selects the
// instruction state and is cleared from the jump address.
func executeBranchExchange(_ *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	target := regs.ReadReg(inst.Rm)

	regs.SetT(target&1 == 1)
	jumpTo(regs, target&^1)

	return OutcomeContinue
}
