package emu

import "github.com/sarchlab/armsim/insts"

// Outcome tells the driver what to do after a handler returns.
type Outcome uint8

// Handler outcomes.
const (
	// OutcomeContinue proceeds to the next instruction.
	OutcomeContinue Outcome = iota

	// OutcomeHalt stops execution at the current instruction.
	OutcomeHalt

	// OutcomeSoftwareInterrupt asks the driver to enter Supervisor mode and
	// service the SWI.
	OutcomeSoftwareInterrupt
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "Continue"
	case OutcomeHalt:
		return "Halt"
	case OutcomeSoftwareInterrupt:
		return "SoftwareInterrupt"
	}
	return "Outcome(?)"
}

// Handler executes one decoded instruction against RAM and the register
// file.
type Handler func(ram *Memory, regs *RegFile, inst *insts.Instruction) Outcome

var handlers = [insts.NumShapes]Handler{
	insts.ShapeNOP:                executeNOP,
	insts.ShapeDataRegImm:         executeDataProcessing,
	insts.ShapeDataRegReg:         executeDataProcessing,
	insts.ShapeDataImm:            executeDataProcessing,
	insts.ShapeLdrStrRegPre:       executeLoadStore,
	insts.ShapeLdrStrRegPost:      executeLoadStore,
	insts.ShapeLdrStrImmPre:       executeLoadStore,
	insts.ShapeLdrStrImmPost:      executeLoadStore,
	insts.ShapeLdrStrShiftRegPre:  executeLoadStore,
	insts.ShapeLdrStrShiftRegPost: executeLoadStore,
	insts.ShapeHalfImmPre:         executeHalfword,
	insts.ShapeHalfImmPost:        executeHalfword,
	insts.ShapeHalfRegPre:         executeHalfword,
	insts.ShapeHalfRegPost:        executeHalfword,
	insts.ShapeBlock:              executeBlockTransfer,
	insts.ShapeBranch:             executeBranch,
	insts.ShapeBranchExchange:     executeBranchExchange,
	insts.ShapeMultiply:           executeMultiply,
	insts.ShapeSWI:                executeSWI,
	insts.ShapeMRS:                executeMRS,
	insts.ShapeMSRReg:             executeMSR,
	insts.ShapeMSRImm:             executeMSR,
}

// HandlerFor returns the handler bound to an instruction shape.
func HandlerFor(shape insts.Shape) Handler {
	if shape >= insts.NumShapes {
		return executeNOP
	}
	return handlers[shape]
}

// Execute runs the handler bound to inst's shape. The condition field is not
// evaluated.
func Execute(ram *Memory, regs *RegFile, inst *insts.Instruction) Outcome {
	return HandlerFor(inst.Shape)(ram, regs, inst)
}

func executeNOP(_ *Memory, _ *RegFile, _ *insts.Instruction) Outcome {
	return OutcomeContinue
}

// jumpTo writes a jump target into r15. The driver advances r15 by 4 after
// every step, so storing target+4 leaves r15 at target+8 when the target
// executes.
func jumpTo(regs *RegFile, target uint32) {
	regs.SetPC(target + 4)
}
