package emu

import (
	"encoding/binary"
	"fmt"
)

// Mode is a processor mode code held in CPSR bits [4:0].
type Mode uint32

// Processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

// Valid reports whether m is a defined mode code.
func (m Mode) Valid() bool {
	switch m {
	case ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor,
		ModeAbort, ModeUndefined, ModeSystem:
		return true
	}
	return false
}

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "USR"
	case ModeFIQ:
		return "FIQ"
	case ModeIRQ:
		return "IRQ"
	case ModeSupervisor:
		return "SVC"
	case ModeAbort:
		return "ABT"
	case ModeUndefined:
		return "UND"
	case ModeSystem:
		return "SYS"
	}
	return fmt.Sprintf("Mode(0x%02X)", uint32(m))
}

// Register aliases.
const (
	RegSP = 13
	RegLR = 14
	RegPC = 15
)

// Storage slots, one word each.
const (
	slotCPSR = 16
	slotSVC  = 17 // SP_svc, LR_svc, SPSR_svc
	slotIRQ  = 20 // SP_irq, LR_irq, SPSR_irq

	// NumRegSlots is the number of words held by the register file.
	NumRegSlots = 23
)

// CPSR bit positions.
const (
	FlagN = 31
	FlagZ = 30
	FlagC = 29
	FlagV = 28
	FlagI = 7
	FlagT = 5

	modeMask = 0x1F
)

// BankedSlot maps a register index to its storage slot for the given mode.
// Only r13 and r14 are banked, and only in Supervisor and IRQ modes.
func BankedSlot(index uint8, mode Mode) int {
	if index > 15 {
		panic(fmt.Sprintf("invalid register index %d", index))
	}

	if index != RegSP && index != RegLR {
		return int(index)
	}

	switch mode {
	case ModeSupervisor:
		return slotSVC + int(index) - RegSP
	case ModeIRQ:
		return slotIRQ + int(index) - RegSP
	}
	return int(index)
}

// RegFile is the A32 register file: r0-r15, CPSR, and the banked SP, LR and
// SPSR of Supervisor and IRQ modes. It is backed by a big-endian Memory so
// that flag tests reuse the memory bit primitives.
//
// r15 reads as the executing instruction's address plus 8.
type RegFile struct {
	*Memory
}

// NewRegFile creates a register file in System mode with all registers
// zeroed.
func NewRegFile() *RegFile {
	r := &RegFile{
		Memory: NewMemory(NumRegSlots*4, binary.BigEndian, WithoutChecksum()),
	}
	r.SetMode(ModeSystem)
	return r
}

// Clear zeroes every slot and re-enters System mode.
func (r *RegFile) Clear() {
	r.Memory.Clear()
	r.SetMode(ModeSystem)
}

func slotAddr(slot int) uint32 {
	return uint32(slot) * 4
}

// ReadReg reads r0-r15 as seen from the current mode.
func (r *RegFile) ReadReg(index uint8) uint32 {
	return r.Read32(slotAddr(BankedSlot(index, r.Mode())))
}

// WriteReg writes r0-r15 as seen from the current mode.
func (r *RegFile) WriteReg(index uint8, value uint32) {
	r.Write32(slotAddr(BankedSlot(index, r.Mode())), value)
}

// Snapshot returns r0-r15 as seen from the current mode.
func (r *RegFile) Snapshot() [16]uint32 {
	var regs [16]uint32
	for i := range regs {
		regs[i] = r.ReadReg(uint8(i))
	}
	return regs
}

// PC returns the raw r15 value.
func (r *RegFile) PC() uint32 {
	return r.Read32(slotAddr(RegPC))
}

// SetPC sets the raw r15 value.
func (r *RegFile) SetPC(value uint32) {
	r.Write32(slotAddr(RegPC), value)
}

// IncPC advances r15 by one instruction.
func (r *RegFile) IncPC() {
	r.SetPC(r.PC() + 4)
}

// DecPC moves r15 back by one instruction.
func (r *RegFile) DecPC() {
	r.SetPC(r.PC() - 4)
}

// CurrentAddress returns the address of the instruction being executed,
// which is r15 - 8.
func (r *RegFile) CurrentAddress() uint32 {
	return r.PC() - 8
}

// CPSR returns the current program status register.
func (r *RegFile) CPSR() uint32 {
	return r.Read32(slotAddr(slotCPSR))
}

// SetCPSR replaces the current program status register.
func (r *RegFile) SetCPSR(value uint32) {
	r.Write32(slotAddr(slotCPSR), value)
}

// HasSPSR reports whether the current mode has a saved status register.
func (r *RegFile) HasSPSR() bool {
	m := r.Mode()
	return m == ModeSupervisor || m == ModeIRQ
}

func (r *RegFile) spsrSlot() int {
	switch m := r.Mode(); m {
	case ModeSupervisor:
		return slotSVC + 2
	case ModeIRQ:
		return slotIRQ + 2
	default:
		panic(fmt.Sprintf("mode %s has no SPSR", m))
	}
}

// SPSR returns the saved status register of the current mode. It panics in
// modes without one.
func (r *RegFile) SPSR() uint32 {
	return r.Read32(slotAddr(r.spsrSlot()))
}

// SetSPSR writes the saved status register of the current mode. It panics in
// modes without one.
func (r *RegFile) SetSPSR(value uint32) {
	r.Write32(slotAddr(r.spsrSlot()), value)
}

// Mode returns the current processor mode. It panics if CPSR holds an
// undefined mode code.
func (r *RegFile) Mode() Mode {
	m := Mode(r.CPSR() & modeMask)
	if !m.Valid() {
		panic(fmt.Sprintf("invalid mode code 0x%02X", uint32(m)))
	}
	return m
}

// SetMode rewrites the mode bits and leaves the rest of CPSR unchanged.
// Banked registers are not copied.
func (r *RegFile) SetMode(m Mode) {
	if !m.Valid() {
		panic(fmt.Sprintf("invalid mode code 0x%02X", uint32(m)))
	}
	r.SetCPSR(r.CPSR()&^modeMask | uint32(m))
}

// ControlByte returns CPSR bits [7:0].
func (r *RegFile) ControlByte() uint8 {
	return uint8(r.CPSR())
}

func (r *RegFile) flag(bit uint) bool {
	return r.TestFlag(slotAddr(slotCPSR), bit)
}

func (r *RegFile) setFlag(bit uint, value bool) {
	r.SetFlag(slotAddr(slotCPSR), bit, value)
}

// N returns the negative flag.
func (r *RegFile) N() bool { return r.flag(FlagN) }

// Z returns the zero flag.
func (r *RegFile) Z() bool { return r.flag(FlagZ) }

// C returns the carry flag.
func (r *RegFile) C() bool { return r.flag(FlagC) }

// V returns the overflow flag.
func (r *RegFile) V() bool { return r.flag(FlagV) }

// I returns the IRQ-disable bit.
func (r *RegFile) I() bool { return r.flag(FlagI) }

// T returns the instruction-state bit.
func (r *RegFile) T() bool { return r.flag(FlagT) }

// SetN sets the negative flag.
func (r *RegFile) SetN(v bool) { r.setFlag(FlagN, v) }

// SetZ sets the zero flag.
func (r *RegFile) SetZ(v bool) { r.setFlag(FlagZ, v) }

// SetC sets the carry flag.
func (r *RegFile) SetC(v bool) { r.setFlag(FlagC, v) }

// SetV sets the overflow flag.
func (r *RegFile) SetV(v bool) { r.setFlag(FlagV, v) }

// SetI sets the IRQ-disable bit.
func (r *RegFile) SetI(v bool) { r.setFlag(FlagI, v) }

// SetT sets the instruction-state bit.
func (r *RegFile) SetT(v bool) { r.setFlag(FlagT, v) }

// NZCV returns the condition flags as a 4-bit value, N in bit 3.
func (r *RegFile) NZCV() uint32 {
	return r.CPSR() >> 28
}

// ClearNZCV clears all four condition flags.
func (r *RegFile) ClearNZCV() {
	r.SetCPSR(r.CPSR() & 0x0FFFFFFF)
}

// setNZ updates N and Z from a result.
func (r *RegFile) setNZ(result uint32) {
	r.SetN(result>>31 == 1)
	r.SetZ(result == 0)
}
