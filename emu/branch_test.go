package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/insts"
)

var _ = Describe("Branch", func() {
	var m *machine

	BeforeEach(func() {
		m = newMachine()
	})

	DescribeTable("ConditionPassed",
		func(cond insts.Cond, nzcv uint32, want bool) {
			Expect(emu.ConditionPassed(cond, nzcv)).To(Equal(want))
		},
		Entry("EQ with Z", insts.CondEQ, uint32(0b0100), true),
		Entry("EQ without Z", insts.CondEQ, uint32(0b0000), false),
		Entry("NE without Z", insts.CondNE, uint32(0b0000), true),
		Entry("CS with C", insts.CondCS, uint32(0b0010), true),
		Entry("CC with C", insts.CondCC, uint32(0b0010), false),
		Entry("MI with N", insts.CondMI, uint32(0b1000), true),
		Entry("PL with N", insts.CondPL, uint32(0b1000), false),
		Entry("VS with V", insts.CondVS, uint32(0b0001), true),
		Entry("VC with V", insts.CondVC, uint32(0b0001), false),
		Entry("HI with C and not Z", insts.CondHI, uint32(0b0010), true),
		Entry("HI with C and Z", insts.CondHI, uint32(0b0110), false),
		Entry("LS with Z", insts.CondLS, uint32(0b0110), true),
		Entry("LS with C only", insts.CondLS, uint32(0b0010), false),
		Entry("GE with N and V", insts.CondGE, uint32(0b1001), true),
		Entry("GE with N only", insts.CondGE, uint32(0b1000), false),
		Entry("LT with N only", insts.CondLT, uint32(0b1000), true),
		Entry("LT with N and V", insts.CondLT, uint32(0b1001), false),
		Entry("GT with no flags", insts.CondGT, uint32(0b0000), true),
		Entry("GT with Z", insts.CondGT, uint32(0b0100), false),
		Entry("GT with N only", insts.CondGT, uint32(0b1000), false),
		Entry("LE with Z", insts.CondLE, uint32(0b0100), true),
		Entry("LE with V only", insts.CondLE, uint32(0b0001), true),
		Entry("LE with no flags", insts.CondLE, uint32(0b0000), false),
		Entry("AL always", insts.CondAL, uint32(0b1111), true),
		Entry("NV never", insts.CondNV, uint32(0b0000), false),
	)

	It("should link and branch with BL", func() {
		m.execAt(0x1000, 0xEB000006) // BL #32

		Expect(m.regs.ReadReg(emu.RegLR)).To(Equal(uint32(0x1004)))

		m.regs.IncPC()
		Expect(m.regs.PC()).To(Equal(uint32(0x1028)))
		Expect(m.regs.CurrentAddress()).To(Equal(uint32(0x1020)))
	})

	It("should branch to itself with B .", func() {
		m.execAt(0x100, 0xEAFFFFFE)

		m.regs.IncPC()
		Expect(m.regs.CurrentAddress()).To(Equal(uint32(0x100)))
		Expect(m.regs.ReadReg(emu.RegLR)).To(Equal(uint32(0)))
	})

	Describe("BX", func() {
		It("should set T from bit 0 and clear it from the target", func() {
			m.regs.WriteReg(emu.RegLR, 0x2001)

			m.exec(0xE12FFF1E) // BX lr

			Expect(m.regs.T()).To(BeTrue())
			m.regs.IncPC()
			Expect(m.regs.CurrentAddress()).To(Equal(uint32(0x2000)))
		})

		It("should clear T for an even target", func() {
			m.regs.SetT(true)
			m.regs.WriteReg(emu.RegLR, 0x3000)

			m.exec(0xE12FFF1E)

			Expect(m.regs.T()).To(BeFalse())
			Expect(m.regs.PC()).To(Equal(uint32(0x3004)))
		})
	})
})
