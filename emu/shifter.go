package emu

import (
	"math/bits"

	"github.com/sarchlab/armsim/insts"
)

// ShiftByImmediate applies a barrel-shifter operation with a 5-bit immediate
// amount and returns the result and the shifter carry-out.
//
// Amount 0 encodes special forms: LSL #0 passes the value and carry through,
// LSR #0 and ASR #0 mean a shift by 32, and ROR #0 means RRX.
func ShiftByImmediate(value uint32, amount uint8, st insts.ShiftType, carryIn bool) (uint32, bool) {
	amount &= 0x1F

	switch st {
	case insts.ShiftLSL:
		if amount == 0 {
			return value, carryIn
		}
		return value << amount, bitSet(value, 32-uint(amount))
	case insts.ShiftLSR:
		if amount == 0 {
			return 0, bitSet(value, 31)
		}
		return value >> amount, bitSet(value, uint(amount)-1)
	case insts.ShiftASR:
		if amount == 0 {
			return signFill(value), bitSet(value, 31)
		}
		return uint32(int32(value) >> amount), bitSet(value, uint(amount)-1)
	default:
		if amount == 0 {
			result := value >> 1
			if carryIn {
				result |= 1 << 31
			}
			return result, bitSet(value, 0)
		}
		return bits.RotateLeft32(value, -int(amount)), bitSet(value, uint(amount)-1)
	}
}

// ShiftByRegister applies a barrel-shifter operation whose amount comes from
// the bottom byte of a register.
func ShiftByRegister(value uint32, rs uint32, st insts.ShiftType, carryIn bool) (uint32, bool) {
	amount := uint(rs & 0xFF)
	if amount == 0 {
		return value, carryIn
	}

	switch st {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return value << amount, bitSet(value, 32-amount)
		case amount == 32:
			return 0, bitSet(value, 0)
		default:
			return 0, false
		}
	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return value >> amount, bitSet(value, amount-1)
		case amount == 32:
			return 0, bitSet(value, 31)
		default:
			return 0, false
		}
	case insts.ShiftASR:
		if amount >= 32 {
			return signFill(value), bitSet(value, 31)
		}
		return uint32(int32(value) >> amount), bitSet(value, amount-1)
	default:
		rot := amount & 31
		if rot == 0 {
			return value, bitSet(value, 31)
		}
		return bits.RotateLeft32(value, -int(rot)), bitSet(value, rot-1)
	}
}

// RotateImmediate computes a rotated-immediate operand. The 4-bit rotate
// field is doubled. A zero rotation leaves the carry unchanged; otherwise the
// carry-out is bit 31 of the result.
func RotateImmediate(imm uint32, rotate uint8, carryIn bool) (uint32, bool) {
	rot := int(rotate&0xF) * 2
	if rot == 0 {
		return imm, carryIn
	}

	result := bits.RotateLeft32(imm, -rot)
	return result, bitSet(result, 31)
}

func bitSet(v uint32, n uint) bool {
	return (v>>n)&1 == 1
}

func signFill(v uint32) uint32 {
	if v>>31 == 1 {
		return 0xFFFFFFFF
	}
	return 0
}
