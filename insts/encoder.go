package insts

// Encode packs an instruction back into its 32-bit machine word. It is the
// inverse of Decode for every shape: the fields Decode extracts for a shape
// are the fields Encode packs. A NOP encodes to its Raw word.
func Encode(inst *Instruction) uint32 {
	word := uint32(inst.Cond&0xF) << 28

	switch inst.Shape {
	case ShapeDataRegImm, ShapeDataRegReg, ShapeDataImm:
		word |= encodeDataProcessing(inst)
	case ShapeLdrStrRegPre, ShapeLdrStrRegPost,
		ShapeLdrStrImmPre, ShapeLdrStrImmPost,
		ShapeLdrStrShiftRegPre, ShapeLdrStrShiftRegPost:
		word |= encodeLoadStore(inst)
	case ShapeHalfImmPre, ShapeHalfImmPost, ShapeHalfRegPre, ShapeHalfRegPost:
		word |= encodeHalfword(inst)
	case ShapeBlock:
		word |= encodeBlock(inst)
	case ShapeBranch:
		word |= 0b101 << 25
		word |= flag(inst.Link) << 24
		word |= uint32((inst.BranchOffset-8)/4) & 0x00FFFFFF
	case ShapeBranchExchange:
		word |= 0x012FFF10 | reg(inst.Rm)
	case ShapeMultiply:
		word |= 0x00000090
		word |= flag(inst.Accumulate) << 21
		word |= flag(inst.SetFlags) << 20
		word |= reg(inst.Rd) << 16
		word |= reg(inst.Rn) << 12
		word |= reg(inst.Rs) << 8
		word |= reg(inst.Rm)
	case ShapeSWI:
		word |= 0xF<<24 | inst.SWINumber&0x00FFFFFF
	case ShapeMRS:
		word |= 0x010F0000
		word |= flag(inst.UseSPSR) << 22
		word |= reg(inst.Rd) << 12
	case ShapeMSRReg:
		word |= 0x0120F000
		word |= flag(inst.UseSPSR) << 22
		word |= uint32(inst.FieldMask&0xF) << 16
		word |= reg(inst.Rm)
	case ShapeMSRImm:
		word |= 0x0320F000
		word |= flag(inst.UseSPSR) << 22
		word |= uint32(inst.FieldMask&0xF) << 16
		word |= uint32(inst.Rotate&0xF) << 8
		word |= inst.Imm & 0xFF
	default:
		return inst.Raw
	}

	return word
}

func flag(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func reg(r uint8) uint32 {
	return uint32(r & 0xF)
}

func encodeDataProcessing(inst *Instruction) uint32 {
	word := uint32(inst.Opcode&0xF) << 21
	word |= flag(inst.SetFlags) << 20
	word |= reg(inst.Rn) << 16
	word |= reg(inst.Rd) << 12

	switch inst.Shape {
	case ShapeDataImm:
		word |= 1 << 25
		word |= uint32(inst.Rotate&0xF) << 8
		word |= inst.Imm & 0xFF
	case ShapeDataRegImm:
		word |= uint32(inst.ShiftAmount&0x1F) << 7
		word |= uint32(inst.ShiftType&0x3) << 5
		word |= reg(inst.Rm)
	case ShapeDataRegReg:
		word |= reg(inst.Rs) << 8
		word |= uint32(inst.ShiftType&0x3) << 5
		word |= 1 << 4
		word |= reg(inst.Rm)
	}

	return word
}

func encodeLoadStore(inst *Instruction) uint32 {
	word := uint32(0b01) << 26
	word |= flag(inst.PreIndex) << 24
	word |= flag(inst.Add) << 23
	word |= flag(inst.Byte) << 22
	word |= flag(inst.Writeback) << 21
	word |= flag(inst.Load) << 20
	word |= reg(inst.Rn) << 16
	word |= reg(inst.Rd) << 12

	switch inst.Shape {
	case ShapeLdrStrImmPre, ShapeLdrStrImmPost:
		word |= inst.Imm & 0xFFF
	case ShapeLdrStrRegPre, ShapeLdrStrRegPost:
		word |= 1 << 25
		word |= reg(inst.Rm)
	default:
		word |= 1 << 25
		word |= uint32(inst.ShiftAmount&0x1F) << 7
		word |= uint32(inst.ShiftType&0x3) << 5
		word |= reg(inst.Rm)
	}

	return word
}

func encodeHalfword(inst *Instruction) uint32 {
	word := uint32(0x90)
	word |= flag(inst.PreIndex) << 24
	word |= flag(inst.Add) << 23
	word |= flag(inst.Writeback) << 21
	word |= uint32(inst.HalfOp>>2&1) << 20
	word |= reg(inst.Rn) << 16
	word |= reg(inst.Rd) << 12
	word |= uint32(inst.HalfOp&0x3) << 5

	switch inst.Shape {
	case ShapeHalfImmPre, ShapeHalfImmPost:
		word |= 1 << 22
		word |= (inst.Imm >> 4 & 0xF) << 8
		word |= inst.Imm & 0xF
	default:
		word |= reg(inst.Rm)
	}

	return word
}

func encodeBlock(inst *Instruction) uint32 {
	word := uint32(0b100) << 25
	word |= uint32(inst.BlockMode&0x3) << 23
	word |= flag(inst.UserBank) << 22
	word |= flag(inst.Writeback) << 21
	word |= flag(inst.Load) << 20
	word |= reg(inst.Rn) << 16
	word |= uint32(inst.RegList)
	return word
}
