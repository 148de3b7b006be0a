package emu

import "github.com/sarchlab/armsim/insts"

// Memory-mapped device addresses. They are intercepted before the normal
// memory path and never reach RAM.
const (
	// DisplayAddr receives character output from stores.
	DisplayAddr uint32 = 0x100000

	// KeyboardAddr returns the last character delivered by the host.
	KeyboardAddr uint32 = 0x100001
)

// effectiveAddress resolves base ± offset and returns the transfer address,
// the written-back base, and whether writeback occurs. Post-indexed forms
// always write back.
func effectiveAddress(regs *RegFile, inst *insts.Instruction, offset uint32) (addr, newBase uint32, writeback bool) {
	base := regs.ReadReg(inst.Rn)

	newBase = base - offset
	if inst.Add {
		newBase = base + offset
	}

	if inst.PreIndex {
		return newBase, newBase, inst.Writeback
	}
	return base, newBase, true
}

func loadOffset(regs *RegFile, inst *insts.Instruction) uint32 {
	switch inst.Shape {
	case insts.ShapeLdrStrImmPre, insts.ShapeLdrStrImmPost:
		return inst.Imm
	case insts.ShapeLdrStrRegPre, insts.ShapeLdrStrRegPost:
		return regs.ReadReg(inst.Rm)
	default:
		offset, _ := ShiftByImmediate(regs.ReadReg(inst.Rm), inst.ShiftAmount, inst.ShiftType, regs.C())
		return offset
	}
}

// executeLoadStore implements LDR, LDRB, STR and STRB.
func executeLoadStore(ram *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	addr, newBase, writeback := effectiveAddress(regs, inst, loadOffset(regs, inst))

	if inst.Load {
		var value uint32
		switch {
		case addr == KeyboardAddr:
			value = uint32(inst.LastChar)
		case inst.Byte:
			value = uint32(ram.Read8(addr))
		default:
			value = ram.Read32(addr)
		}

		if writeback {
			regs.WriteReg(inst.Rn, newBase)
		}
		writeLoaded(regs, inst.Rd, value)

		return OutcomeContinue
	}

	value := regs.ReadReg(inst.Rd)
	switch {
	case addr == DisplayAddr:
		display(inst, value)
	case inst.Byte:
		ram.Write8(addr, uint8(value))
	default:
		ram.Write32(addr, value)
	}

	if writeback {
		regs.WriteReg(inst.Rn, newBase)
	}

	return OutcomeContinue
}

// executeHalfword implements LDRH, STRH, LDRSB and LDRSH. LDRD and STRD are
// not implemented and execute as no-ops.
func executeHalfword(ram *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	if inst.HalfOp == insts.HalfLoadDouble || inst.HalfOp == insts.HalfStoreDouble {
		return OutcomeContinue
	}

	offset := inst.Imm
	if inst.Shape == insts.ShapeHalfRegPre || inst.Shape == insts.ShapeHalfRegPost {
		offset = regs.ReadReg(inst.Rm)
	}

	addr, newBase, writeback := effectiveAddress(regs, inst, offset)

	if inst.HalfOp == insts.HalfStore {
		value := regs.ReadReg(inst.Rd)
		if addr == DisplayAddr {
			display(inst, value)
		} else {
			ram.Write16(addr, uint16(value))
		}

		if writeback {
			regs.WriteReg(inst.Rn, newBase)
		}
		return OutcomeContinue
	}

	var value uint32
	switch {
	case addr == KeyboardAddr:
		value = uint32(inst.LastChar)
	case inst.HalfOp == insts.HalfLoadSByte:
		value = uint32(int32(int8(ram.Read8(addr))))
	case inst.HalfOp == insts.HalfLoadSHalf:
		value = uint32(int32(int16(ram.Read16(addr))))
	default:
		value = uint32(ram.Read16(addr))
	}

	if writeback {
		regs.WriteReg(inst.Rn, newBase)
	}
	writeLoaded(regs, inst.Rd, value)

	return OutcomeContinue
}

func writeLoaded(regs *RegFile, rd uint8, value uint32) {
	if rd == RegPC {
		jumpTo(regs, value)
		return
	}
	regs.WriteReg(rd, value)
}

func display(inst *insts.Instruction, value uint32) {
	inst.DisplayValue = value
	inst.DisplayWritten = true
}
