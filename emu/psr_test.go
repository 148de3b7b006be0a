package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
)

var _ = Describe("Status register transfer", func() {
	var m *machine

	BeforeEach(func() {
		m = newMachine()
	})

	Describe("MRS", func() {
		It("should copy CPSR", func() {
			m.regs.SetZ(true)

			m.exec(0xE10F0000) // MRS r0, cpsr

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0x4000001F)))
		})

		It("should copy SPSR in a mode that has one", func() {
			m.regs.SetMode(emu.ModeSupervisor)
			m.regs.SetSPSR(0x8000001F)

			m.exec(0xE14F0000) // MRS r0, spsr

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0x8000001F)))
		})

		It("should fall back to CPSR without an SPSR", func() {
			m.exec(0xE14F0000) // MRS r0, spsr

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0x1F)))
		})
	})

	Describe("MSR", func() {
		It("should write the flag byte from a register", func() {
			m.regs.WriteReg(0, 0xF0000000)

			m.exec(0xE128F000) // MSR cpsr_f, r0

			Expect(m.regs.NZCV()).To(Equal(uint32(0b1111)))
			Expect(m.regs.Mode()).To(Equal(emu.ModeSystem))
		})

		It("should switch modes through the control byte", func() {
			m.exec(0xE321F013) // MSR cpsr_c, #0x13

			Expect(m.regs.Mode()).To(Equal(emu.ModeSupervisor))
		})

		It("should only allow flag writes in User mode", func() {
			m.regs.SetMode(emu.ModeUser)
			m.regs.WriteReg(0, 0x2000001F)

			m.exec(0xE129F000) // MSR cpsr_fc, r0

			Expect(m.regs.Mode()).To(Equal(emu.ModeUser))
			Expect(m.regs.C()).To(BeTrue())
		})

		It("should mask SPSR writes", func() {
			m.regs.SetMode(emu.ModeSupervisor)
			m.regs.WriteReg(0, 0xFFFFFFFF)

			m.exec(0xE16FF000) // MSR spsr_fsxc, r0

			Expect(m.regs.SPSR()).To(Equal(uint32(0xF90F03FF)))
			Expect(m.regs.Mode()).To(Equal(emu.ModeSupervisor))
		})

		It("should ignore SPSR writes without an SPSR", func() {
			m.regs.WriteReg(0, 0xFFFFFFFF)

			Expect(func() { m.exec(0xE16FF000) }).NotTo(Panic())
			Expect(m.regs.CPSR()).To(Equal(uint32(0x1F)))
		})
	})
})
