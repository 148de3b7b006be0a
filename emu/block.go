package emu

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/armsim/insts"
)

// blockRange returns the first and last word addresses touched by a block
// transfer of n registers, and the base value written back afterwards.
func blockRange(mode insts.BlockMode, base uint32, n uint32) (start, end, newBase uint32) {
	size := 4 * n

	switch mode {
	case insts.BlockDA:
		return base - size + 4, base, base - size
	case insts.BlockIA:
		return base, base + size - 4, base + size
	case insts.BlockDB:
		return base - size, base - 4, base - size
	default:
		return base + 4, base + size, base + size
	}
}

// executeBlockTransfer implements LDM and STM. Registers are transferred
// lowest first at increasing addresses. The S bit is ignored.
func executeBlockTransfer(ram *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	n := uint32(bits.OnesCount16(inst.RegList))
	if n == 0 {
		return OutcomeContinue
	}

	base := regs.ReadReg(inst.Rn)
	start, end, newBase := blockRange(inst.BlockMode, base, n)

	var (
		addr     = start
		last     uint32
		pcTarget uint32
		loadPC   bool
	)

	for r := uint8(0); r < 16; r++ {
		if inst.RegList&(1<<r) == 0 {
			continue
		}

		if inst.Load {
			value := ram.Read32(addr)
			if r == RegPC {
				pcTarget = value &^ 3
				loadPC = true
			} else {
				regs.WriteReg(r, value)
			}
		} else {
			ram.Write32(addr, regs.ReadReg(r))
		}

		last = addr
		addr += 4
	}

	if last != end {
		panic(fmt.Sprintf("block transfer ended at 0x%08X, expected 0x%08X", last, end))
	}

	baseLoaded := inst.Load && inst.RegList&(1<<inst.Rn) != 0
	if inst.Writeback && !baseLoaded {
		regs.WriteReg(inst.Rn, newBase)
	}

	if loadPC {
		jumpTo(regs, pcTarget)
	}

	return OutcomeContinue
}
