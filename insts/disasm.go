package insts

import (
	"fmt"
	"strings"
)

// RegName returns the assembler name of a general register.
func RegName(r uint8) string {
	switch r {
	case 13:
		return "sp"
	case 14:
		return "lr"
	case 15:
		return "pc"
	default:
		return fmt.Sprintf("r%d", r)
	}
}

// RegListString renders a register list mask as "r1, r2, lr".
func RegListString(list uint16) string {
	names := make([]string, 0, 16)
	for r := uint8(0); r < 16; r++ {
		if list&(1<<r) != 0 {
			names = append(names, RegName(r))
		}
	}
	return strings.Join(names, ", ")
}

func condSuffix(c Cond) string {
	if c == CondAL {
		return ""
	}
	return c.String()
}

// String renders the instruction in pre-UAL assembler syntax, for example
// "addeqs r0, r1, r2, lsl #2" or "ldmia sp!, {r4, pc}". Branches show the
// offset from their own address, pipeline distance included, as "bl #32".
func (i *Instruction) String() string {
	cond := condSuffix(i.Cond)

	switch i.Shape {
	case ShapeDataRegImm, ShapeDataRegReg, ShapeDataImm:
		return i.dataString(cond)
	case ShapeLdrStrRegPre, ShapeLdrStrRegPost,
		ShapeLdrStrImmPre, ShapeLdrStrImmPost,
		ShapeLdrStrShiftRegPre, ShapeLdrStrShiftRegPost:
		return i.loadStoreString(cond)
	case ShapeHalfImmPre, ShapeHalfImmPost, ShapeHalfRegPre, ShapeHalfRegPost:
		return i.halfwordString(cond)
	case ShapeBlock:
		return i.blockString(cond)
	case ShapeBranch:
		mnemonic := "b"
		if i.Link {
			mnemonic = "bl"
		}
		return fmt.Sprintf("%s%s #%d", mnemonic, cond, i.BranchOffset)
	case ShapeBranchExchange:
		return fmt.Sprintf("bx%s %s", cond, RegName(i.Rm))
	case ShapeMultiply:
		if i.Accumulate {
			return fmt.Sprintf("mla%s%s %s, %s, %s, %s", cond, sSuffix(i.SetFlags),
				RegName(i.Rd), RegName(i.Rm), RegName(i.Rs), RegName(i.Rn))
		}
		return fmt.Sprintf("mul%s%s %s, %s, %s", cond, sSuffix(i.SetFlags),
			RegName(i.Rd), RegName(i.Rm), RegName(i.Rs))
	case ShapeSWI:
		return fmt.Sprintf("swi%s 0x%x", cond, i.SWINumber)
	case ShapeMRS:
		return fmt.Sprintf("mrs%s %s, %s", cond, RegName(i.Rd), psrName(i.UseSPSR))
	case ShapeMSRReg:
		return fmt.Sprintf("msr%s %s_%s, %s", cond, psrName(i.UseSPSR),
			fieldString(i.FieldMask), RegName(i.Rm))
	case ShapeMSRImm:
		return fmt.Sprintf("msr%s %s_%s, #0x%x", cond, psrName(i.UseSPSR),
			fieldString(i.FieldMask), i.Rotated())
	default:
		return "nop" + cond
	}
}

func sSuffix(s bool) string {
	if s {
		return "s"
	}
	return ""
}

func psrName(spsr bool) string {
	if spsr {
		return "spsr"
	}
	return "cpsr"
}

func fieldString(mask uint8) string {
	var sb strings.Builder
	for i, c := range "cxsf" {
		if mask&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func (i *Instruction) shiftedRm() string {
	rm := RegName(i.Rm)
	switch {
	case i.ShiftType == ShiftLSL && i.ShiftAmount == 0:
		return rm
	case i.ShiftType == ShiftROR && i.ShiftAmount == 0:
		return rm + ", rrx"
	case i.ShiftAmount == 0:
		return fmt.Sprintf("%s, %s #32", rm, i.ShiftType)
	default:
		return fmt.Sprintf("%s, %s #%d", rm, i.ShiftType, i.ShiftAmount)
	}
}

func (i *Instruction) dataString(cond string) string {
	var op2 string
	switch i.Shape {
	case ShapeDataImm:
		op2 = fmt.Sprintf("#%d", i.Rotated())
	case ShapeDataRegImm:
		op2 = i.shiftedRm()
	case ShapeDataRegReg:
		op2 = fmt.Sprintf("%s, %s %s", RegName(i.Rm), i.ShiftType, RegName(i.Rs))
	}

	switch {
	case i.Opcode == OpMOV || i.Opcode == OpMVN:
		return fmt.Sprintf("%s%s%s %s, %s", i.Opcode, cond, sSuffix(i.SetFlags), RegName(i.Rd), op2)
	case i.Opcode.IsCompare():
		return fmt.Sprintf("%s%s %s, %s", i.Opcode, cond, RegName(i.Rn), op2)
	default:
		return fmt.Sprintf("%s%s%s %s, %s, %s", i.Opcode, cond, sSuffix(i.SetFlags),
			RegName(i.Rd), RegName(i.Rn), op2)
	}
}

func sign(add bool) string {
	if add {
		return ""
	}
	return "-"
}

// address renders "[rn, off]{!}" for pre-indexed and "[rn], off" for
// post-indexed forms. An empty offset renders as "[rn]".
func (i *Instruction) address(offset string) string {
	rn := RegName(i.Rn)
	switch {
	case offset == "":
		return "[" + rn + "]"
	case i.PreIndex:
		wb := ""
		if i.Writeback {
			wb = "!"
		}
		return fmt.Sprintf("[%s, %s]%s", rn, offset, wb)
	default:
		return fmt.Sprintf("[%s], %s", rn, offset)
	}
}

func (i *Instruction) loadStoreString(cond string) string {
	mnemonic := "str"
	if i.Load {
		mnemonic = "ldr"
	}
	if i.Byte {
		cond += "b"
	}

	var offset string
	switch i.Shape {
	case ShapeLdrStrImmPre, ShapeLdrStrImmPost:
		if i.Imm != 0 || !i.PreIndex {
			offset = fmt.Sprintf("#%s%d", sign(i.Add), i.Imm)
		}
	case ShapeLdrStrRegPre, ShapeLdrStrRegPost:
		offset = sign(i.Add) + RegName(i.Rm)
	default:
		offset = sign(i.Add) + i.shiftedRm()
	}

	return fmt.Sprintf("%s%s %s, %s", mnemonic, cond, RegName(i.Rd), i.address(offset))
}

func (i *Instruction) halfwordString(cond string) string {
	var mnemonic string
	switch i.HalfOp {
	case HalfStore:
		mnemonic = "str" + cond + "h"
	case HalfLoadDouble:
		mnemonic = "ldr" + cond + "d"
	case HalfStoreDouble:
		mnemonic = "str" + cond + "d"
	case HalfLoad:
		mnemonic = "ldr" + cond + "h"
	case HalfLoadSByte:
		mnemonic = "ldr" + cond + "sb"
	default:
		mnemonic = "ldr" + cond + "sh"
	}

	var offset string
	switch i.Shape {
	case ShapeHalfImmPre, ShapeHalfImmPost:
		if i.Imm != 0 || !i.PreIndex {
			offset = fmt.Sprintf("#%s%d", sign(i.Add), i.Imm)
		}
	default:
		offset = sign(i.Add) + RegName(i.Rm)
	}

	return fmt.Sprintf("%s %s, %s", mnemonic, RegName(i.Rd), i.address(offset))
}

func (i *Instruction) blockString(cond string) string {
	mnemonic := "stm"
	if i.Load {
		mnemonic = "ldm"
	}

	wb := ""
	if i.Writeback {
		wb = "!"
	}
	user := ""
	if i.UserBank {
		user = "^"
	}

	return fmt.Sprintf("%s%s%s %s%s, {%s}%s", mnemonic, cond, i.BlockMode,
		RegName(i.Rn), wb, RegListString(i.RegList), user)
}

// StringAt renders the instruction as if fetched from addr. Branches show
// their absolute target, as in "bl 0x00001020"; other shapes match String.
func (i *Instruction) StringAt(addr uint32) string {
	if i.Shape != ShapeBranch {
		return i.String()
	}

	mnemonic := "b"
	if i.Link {
		mnemonic = "bl"
	}

	return fmt.Sprintf("%s%s 0x%08x", mnemonic, condSuffix(i.Cond), addr+uint32(i.BranchOffset))
}
