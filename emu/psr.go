package emu

import "github.com/sarchlab/armsim/insts"

// Writable CPSR/SPSR bits for MSR.
const (
	psrUserMask  uint32 = 0xF80F0200 // Flags, GE and E bits
	psrPrivMask  uint32 = 0x000001DF // A, I, F and mode bits
	psrStateMask uint32 = 0x01000020 // J and T bits, SPSR only
)

// executeMRS copies CPSR, or SPSR when requested and the mode has one, into
// Rd.
func executeMRS(_ *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	value := regs.CPSR()
	if inst.UseSPSR && regs.HasSPSR() {
		value = regs.SPSR()
	}

	regs.WriteReg(inst.Rd, value)

	return OutcomeContinue
}

// fieldBytes expands the c, x, s and f field mask into a byte-lane mask.
func fieldBytes(mask uint8) uint32 {
	var lanes uint32
	for i := 0; i < 4; i++ {
		if mask&(1<<i) != 0 {
			lanes |= 0xFF << (8 * i)
		}
	}
	return lanes
}

// executeMSR writes the selected byte lanes of CPSR or SPSR. User mode may
// only change the flag byte lanes. SPSR writes in a mode without one are
// ignored.
func executeMSR(_ *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	operand := inst.Rotated()
	if inst.Shape == insts.ShapeMSRReg {
		operand = regs.ReadReg(inst.Rm)
	}

	lanes := fieldBytes(inst.FieldMask)

	if inst.UseSPSR {
		if !regs.HasSPSR() {
			return OutcomeContinue
		}

		mask := lanes & (psrUserMask | psrPrivMask | psrStateMask)
		regs.SetSPSR(regs.SPSR()&^mask | operand&mask)

		return OutcomeContinue
	}

	allowed := psrUserMask
	if regs.Mode() != ModeUser {
		allowed |= psrPrivMask
	}

	mask := lanes & allowed
	regs.SetCPSR(regs.CPSR()&^mask | operand&mask)

	return OutcomeContinue
}
