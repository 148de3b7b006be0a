package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
)

var _ = Describe("Load and store", func() {
	var m *machine

	BeforeEach(func() {
		m = newMachine()
		m.regs.WriteReg(1, 0x200)
	})

	Describe("word and byte transfers", func() {
		It("should load with an immediate offset and no writeback", func() {
			m.ram.Write32(0x204, 0xCAFEBABE)

			m.exec(0xE5910004) // LDR r0, [r1, #4]

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0xCAFEBABE)))
			Expect(m.regs.ReadReg(1)).To(Equal(uint32(0x200)))
		})

		It("should write the base back with pre-indexing", func() {
			m.ram.Write32(0x204, 7)

			m.exec(0xE5B10004) // LDR r0, [r1, #4]!

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(7)))
			Expect(m.regs.ReadReg(1)).To(Equal(uint32(0x204)))
		})

		It("should store at the base and then update it with post-indexing", func() {
			m.regs.WriteReg(0, 0x11223344)

			m.exec(0xE4810004) // STR r0, [r1], #4

			Expect(m.ram.Read32(0x200)).To(Equal(uint32(0x11223344)))
			Expect(m.regs.ReadReg(1)).To(Equal(uint32(0x204)))
		})

		It("should subtract a register offset after the access", func() {
			m.regs.WriteReg(2, 0x10)
			m.ram.Write32(0x200, 42)

			m.exec(0xE6110002) // LDR r0, [r1], -r2

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(42)))
			Expect(m.regs.ReadReg(1)).To(Equal(uint32(0x1F0)))
		})

		It("should scale a shifted register offset", func() {
			m.regs.WriteReg(2, 3)
			m.ram.Write32(0x20C, 0xABCD)

			m.exec(0xE7910102) // LDR r0, [r1, r2, lsl #2]

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0xABCD)))
		})

		It("should transfer single bytes", func() {
			m.regs.WriteReg(0, 0x1234)

			m.exec(0xE5C10000) // STRB r0, [r1]
			Expect(m.ram.Read32(0x200)).To(Equal(uint32(0x34)))

			m.ram.Write8(0x200, 0xF0)
			m.exec(0xE5D10000) // LDRB r0, [r1]
			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0xF0)))
		})

		It("should let the loaded value win over writeback when Rd is Rn", func() {
			m.ram.Write32(0x204, 0x999)

			m.exec(0xE5B11004) // LDR r1, [r1, #4]!

			Expect(m.regs.ReadReg(1)).To(Equal(uint32(0x999)))
		})

		It("should jump when loading pc", func() {
			m.ram.Write32(0x200, 0x800)

			m.exec(0xE591F000) // LDR pc, [r1]

			m.regs.IncPC()
			Expect(m.regs.CurrentAddress()).To(Equal(uint32(0x800)))
		})

		It("should read 0 from a misaligned word address", func() {
			m.regs.WriteReg(1, 0x202)
			m.ram.Write32(0x200, 0xFFFFFFFF)

			m.exec(0xE5910000) // LDR r0, [r1]

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0)))
		})
	})

	Describe("memory-mapped devices", func() {
		It("should return the last character from the keyboard address", func() {
			m.regs.WriteReg(1, emu.KeyboardAddr)
			inst := m.decodeAt(0x100, 0xE5D10000) // LDRB r0, [r1]
			inst.LastChar = 'A'

			emu.Execute(m.ram, m.regs, inst)

			Expect(m.regs.ReadReg(0)).To(Equal(uint32('A')))
		})

		It("should capture stores to the display address", func() {
			m.regs.WriteReg(0, 'H')
			m.regs.WriteReg(1, emu.DisplayAddr)
			before := m.ram.Checksum()
			inst := m.decodeAt(0x100, 0xE5C10000) // STRB r0, [r1]

			emu.Execute(m.ram, m.regs, inst)

			Expect(inst.DisplayWritten).To(BeTrue())
			Expect(inst.DisplayValue).To(Equal(uint32('H')))
			Expect(m.ram.Checksum()).To(Equal(before))
		})

		It("should capture half-word stores to the display address", func() {
			m.regs.WriteReg(0, 'x')
			m.regs.WriteReg(1, emu.DisplayAddr)
			inst := m.decodeAt(0x100, 0xE1C100B0) // STRH r0, [r1]

			emu.Execute(m.ram, m.regs, inst)

			Expect(inst.DisplayWritten).To(BeTrue())
			Expect(inst.DisplayValue).To(Equal(uint32('x')))
		})
	})

	Describe("half-word transfers", func() {
		It("should load an unsigned half-word", func() {
			m.ram.Write16(0x202, 0xBEEF)

			m.exec(0xE1D100B2) // LDRH r0, [r1, #2]

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0xBEEF)))
		})

		It("should store the low half-word", func() {
			m.regs.WriteReg(0, 0x12345678)

			m.exec(0xE1C100B0) // STRH r0, [r1]

			Expect(m.ram.Read32(0x200)).To(Equal(uint32(0x5678)))
		})

		It("should sign-extend bytes and half-words", func() {
			m.ram.Write8(0x200, 0x80)
			m.exec(0xE1D100D0) // LDRSB r0, [r1]
			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0xFFFFFF80)))

			m.ram.Write16(0x200, 0x8001)
			m.exec(0xE1D100F0) // LDRSH r0, [r1]
			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0xFFFF8001)))
		})

		It("should write back a register offset after the access", func() {
			m.regs.WriteReg(2, 6)
			m.ram.Write16(0x200, 0x55)

			m.exec(0xE09100B2) // LDRH r0, [r1], r2

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0x55)))
			Expect(m.regs.ReadReg(1)).To(Equal(uint32(0x206)))
		})

		It("should treat LDRD as a no-op", func() {
			m.regs.WriteReg(0, 0xAAAA)
			m.ram.Write32(0x200, 1)

			m.exec(0xE1C100D0) // LDRD r0, [r1]

			Expect(m.regs.ReadReg(0)).To(Equal(uint32(0xAAAA)))
			Expect(m.regs.ReadReg(1)).To(Equal(uint32(0x200)))
		})
	})
})
