package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
)

var _ = Describe("RegFile", func() {
	var regs *emu.RegFile

	BeforeEach(func() {
		regs = emu.NewRegFile()
	})

	It("should start in System mode with zeroed registers", func() {
		Expect(regs.Mode()).To(Equal(emu.ModeSystem))
		Expect(regs.Snapshot()).To(Equal([16]uint32{}))
		Expect(regs.NZCV()).To(Equal(uint32(0)))
	})

	Describe("banking", func() {
		It("should bank sp and lr in Supervisor mode", func() {
			regs.WriteReg(emu.RegSP, 0x7000)
			regs.WriteReg(emu.RegLR, 0x100)

			regs.SetMode(emu.ModeSupervisor)
			Expect(regs.ReadReg(emu.RegSP)).To(Equal(uint32(0)))
			regs.WriteReg(emu.RegSP, 0x1234)
			regs.WriteReg(emu.RegLR, 0x200)

			regs.SetMode(emu.ModeSystem)
			Expect(regs.ReadReg(emu.RegSP)).To(Equal(uint32(0x7000)))
			Expect(regs.ReadReg(emu.RegLR)).To(Equal(uint32(0x100)))

			regs.SetMode(emu.ModeSupervisor)
			Expect(regs.ReadReg(emu.RegSP)).To(Equal(uint32(0x1234)))
			Expect(regs.ReadReg(emu.RegLR)).To(Equal(uint32(0x200)))
		})

		It("should keep IRQ and Supervisor banks apart", func() {
			regs.SetMode(emu.ModeIRQ)
			regs.WriteReg(emu.RegLR, 0xAAAA)
			regs.SetMode(emu.ModeSupervisor)
			regs.WriteReg(emu.RegLR, 0xBBBB)

			regs.SetMode(emu.ModeIRQ)
			Expect(regs.ReadReg(emu.RegLR)).To(Equal(uint32(0xAAAA)))
		})

		It("should share r0-r12 and pc across modes", func() {
			regs.WriteReg(12, 99)
			regs.SetPC(0x108)
			regs.SetMode(emu.ModeIRQ)

			Expect(regs.ReadReg(12)).To(Equal(uint32(99)))
			Expect(regs.ReadReg(emu.RegPC)).To(Equal(uint32(0x108)))
		})

		It("should share User and System registers", func() {
			regs.WriteReg(emu.RegSP, 0x5000)
			regs.SetMode(emu.ModeUser)

			Expect(regs.ReadReg(emu.RegSP)).To(Equal(uint32(0x5000)))
		})

		It("should map slots", func() {
			Expect(emu.BankedSlot(13, emu.ModeSupervisor)).To(Equal(17))
			Expect(emu.BankedSlot(14, emu.ModeSupervisor)).To(Equal(18))
			Expect(emu.BankedSlot(13, emu.ModeIRQ)).To(Equal(20))
			Expect(emu.BankedSlot(14, emu.ModeIRQ)).To(Equal(21))
			Expect(emu.BankedSlot(12, emu.ModeSupervisor)).To(Equal(12))
			Expect(emu.BankedSlot(13, emu.ModeUser)).To(Equal(13))
			Expect(func() { emu.BankedSlot(16, emu.ModeSystem) }).To(Panic())
		})
	})

	Describe("program counter", func() {
		It("should expose the executing address as pc - 8", func() {
			regs.SetPC(0x1008)
			Expect(regs.CurrentAddress()).To(Equal(uint32(0x1000)))

			regs.IncPC()
			Expect(regs.PC()).To(Equal(uint32(0x100C)))

			regs.DecPC()
			regs.DecPC()
			Expect(regs.CurrentAddress()).To(Equal(uint32(0xFFC)))
		})
	})

	Describe("flags", func() {
		It("should map NZCV onto the top nibble", func() {
			regs.SetN(true)
			regs.SetV(true)

			Expect(regs.N()).To(BeTrue())
			Expect(regs.Z()).To(BeFalse())
			Expect(regs.NZCV()).To(Equal(uint32(0b1001)))
			Expect(regs.CPSR()).To(Equal(uint32(0x9000001F)))

			regs.ClearNZCV()
			Expect(regs.CPSR()).To(Equal(uint32(0x1F)))
		})

		It("should keep control bits across mode changes", func() {
			regs.SetI(true)
			regs.SetT(true)
			regs.SetC(true)
			regs.SetMode(emu.ModeIRQ)

			Expect(regs.I()).To(BeTrue())
			Expect(regs.T()).To(BeTrue())
			Expect(regs.C()).To(BeTrue())
			Expect(regs.ControlByte()).To(Equal(uint8(0xB2)))
		})
	})

	Describe("SPSR", func() {
		It("should exist only in Supervisor and IRQ modes", func() {
			Expect(regs.HasSPSR()).To(BeFalse())
			Expect(func() { regs.SPSR() }).To(Panic())
			Expect(func() { regs.SetSPSR(0) }).To(Panic())

			regs.SetMode(emu.ModeSupervisor)
			Expect(regs.HasSPSR()).To(BeTrue())
			regs.SetSPSR(0x6000001F)
			Expect(regs.SPSR()).To(Equal(uint32(0x6000001F)))

			regs.SetMode(emu.ModeIRQ)
			Expect(regs.SPSR()).To(Equal(uint32(0)))
		})
	})

	Describe("modes", func() {
		It("should reject undefined mode codes", func() {
			Expect(func() { regs.SetMode(emu.Mode(0x05)) }).To(Panic())

			regs.SetCPSR(0)
			Expect(func() { regs.Mode() }).To(Panic())
		})

		It("should name modes", func() {
			Expect(emu.ModeSystem.String()).To(Equal("SYS"))
			Expect(emu.ModeSupervisor.String()).To(Equal("SVC"))
			Expect(emu.ModeIRQ.String()).To(Equal("IRQ"))
			Expect(emu.ModeUser.String()).To(Equal("USR"))
		})
	})

	It("should return to System mode on Clear", func() {
		regs.SetMode(emu.ModeSupervisor)
		regs.WriteReg(3, 7)
		regs.SetZ(true)

		regs.Clear()

		Expect(regs.Mode()).To(Equal(emu.ModeSystem))
		Expect(regs.ReadReg(3)).To(Equal(uint32(0)))
		Expect(regs.Z()).To(BeFalse())
	})
})
