package emu_test

import (
	"encoding/binary"

	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
)

// fullChecksum recomputes the checksum from scratch.
func fullChecksum(data []byte) uint32 {
	var sum uint32
	for addr, b := range data {
		sum += uint32(b) ^ uint32(addr)
	}
	return sum
}

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory(emu.DefaultMemorySize, binary.LittleEndian)
	})

	It("should start zeroed with the checksum of an empty RAM", func() {
		Expect(memory.Size()).To(Equal(32768))
		Expect(memory.Read32(0x1000)).To(Equal(uint32(0)))
		Expect(memory.Checksum()).To(Equal(uint32(536854528)))
	})

	It("should panic on a non-positive size", func() {
		Expect(func() { emu.NewMemory(0, binary.LittleEndian) }).To(Panic())
	})

	Context("byte order", func() {
		It("should store words little-endian", func() {
			memory.Write32(0x10, 0x11223344)

			Expect(memory.Read8(0x10)).To(Equal(uint8(0x44)))
			Expect(memory.Read8(0x13)).To(Equal(uint8(0x11)))
			Expect(memory.Read32(0x10)).To(Equal(uint32(0x11223344)))
			Expect(memory.Read16(0x12)).To(Equal(uint16(0x1122)))
		})

		It("should store words big-endian", func() {
			memory.SetOrder(binary.BigEndian)
			memory.Write32(0x10, 0x11223344)

			Expect(memory.Order()).To(Equal(binary.ByteOrder(binary.BigEndian)))
			Expect(memory.Read8(0x10)).To(Equal(uint8(0x11)))
			Expect(memory.Read8(0x13)).To(Equal(uint8(0x44)))
			Expect(memory.Read16(0x10)).To(Equal(uint16(0x1122)))
		})
	})

	Context("checksum", func() {
		It("should track a byte write", func() {
			memory.Write8(0x100, 0x04)

			Expect(memory.Checksum()).To(Equal(uint32(536854528 - 0x100 + 0x104)))
		})

		It("should weigh each byte by its address", func() {
			memory.Write8(0, 0x01)
			memory.Write8(1, 0x82)
			memory.Write8(2, 0x03)
			memory.Write8(3, 0x84)

			Expect(memory.Checksum()).To(Equal(uint32(536854790)))
		})

		It("should track word writes", func() {
			memory.Write32(0x100, 0x01020304)

			Expect(memory.Checksum()).To(Equal(uint32(536854530)))
		})

		It("should match a full recomputation after many writes", func() {
			for i := uint32(0); i < 64; i++ {
				memory.Write32(0x200+4*i, i*0x01010101)
				memory.Write16(0x400+2*i, uint16(i*7))
				memory.Write8(0x600+i, uint8(i*3))
			}
			memory.Write32(0x200, 0)

			Expect(memory.Checksum()).To(Equal(fullChecksum(memory.Bytes())))
		})

		It("should return to the initial value after Clear", func() {
			memory.Write32(0x40, 0xDEADBEEF)
			memory.Clear()

			Expect(memory.Read32(0x40)).To(Equal(uint32(0)))
			Expect(memory.Checksum()).To(Equal(uint32(536854528)))
		})

		It("should stay zero when disabled", func() {
			memory = emu.NewMemory(64, binary.LittleEndian, emu.WithoutChecksum())
			memory.Write32(0, 0xFFFFFFFF)

			Expect(memory.Checksum()).To(Equal(uint32(0)))
		})
	})

	Context("misaligned access", func() {
		var messages []string

		BeforeEach(func() {
			messages = nil
			logger := funcr.New(func(_, args string) {
				messages = append(messages, args)
			}, funcr.Options{})
			memory = emu.NewMemory(64, binary.LittleEndian, emu.WithMemoryLogger(logger))
		})

		It("should read 0 and log", func() {
			memory.Write32(0, 0xFFFFFFFF)

			Expect(memory.Read32(1)).To(Equal(uint32(0)))
			Expect(memory.Read16(3)).To(Equal(uint16(0)))
			Expect(messages).To(HaveLen(2))
			Expect(messages[0]).To(ContainSubstring("misaligned memory access"))
		})

		It("should drop the write and log", func() {
			memory.Write32(2, 0xFFFFFFFF)
			memory.Write16(5, 0xFFFF)

			Expect(memory.Read32(0)).To(Equal(uint32(0)))
			Expect(memory.Read32(4)).To(Equal(uint32(0)))
			Expect(messages).To(HaveLen(2))
			Expect(messages[1]).To(ContainSubstring(`"op"="write"`))
		})
	})

	Context("bounds", func() {
		It("should panic past the end", func() {
			Expect(func() { memory.Read8(32768) }).To(Panic())
			Expect(func() { memory.Read32(32768) }).To(Panic())
			Expect(func() { memory.Write16(32768, 1) }).To(Panic())
			Expect(func() { memory.LoadBytes(32766, []byte{1, 2, 3}) }).To(Panic())
		})

		It("should allow the last word", func() {
			memory.Write32(32764, 0xCAFEBABE)
			Expect(memory.Read32(32764)).To(Equal(uint32(0xCAFEBABE)))
		})
	})

	It("should copy bytes with LoadBytes", func() {
		memory.LoadBytes(0x20, []byte{0x78, 0x56, 0x34, 0x12})

		Expect(memory.Read32(0x20)).To(Equal(uint32(0x12345678)))
		Expect(memory.Checksum()).To(Equal(fullChecksum(memory.Bytes())))
	})

	Context("flags", func() {
		It("should set bit 12 in the third byte of a big-endian word", func() {
			memory.SetOrder(binary.BigEndian)
			memory.SetFlag(0, 12, true)

			Expect(memory.Bytes()[2]).To(Equal(byte(0x10)))
			Expect(memory.TestFlag(0, 12)).To(BeTrue())
			Expect(memory.TestFlag(0, 11)).To(BeFalse())

			memory.SetFlag(0, 12, false)
			Expect(memory.Read32(0)).To(Equal(uint32(0)))
		})

		It("should panic on a bit index above 31", func() {
			Expect(func() { memory.TestFlag(0, 32) }).To(Panic())
		})
	})

	Describe("ExtractBits", func() {
		It("should mask without shifting", func() {
			Expect(emu.ExtractBits(0xC7A2511E, 5, 20)).To(Equal(uint32(0x25100)))
			Expect(emu.ExtractBits(0xC7A2511E, 0, 31)).To(Equal(uint32(0xC7A2511E)))
			Expect(emu.ExtractBits(0xC7A2511E, 31, 31)).To(Equal(uint32(0x80000000)))
		})

		It("should panic on an invalid range", func() {
			Expect(func() { emu.ExtractBits(0, 8, 4) }).To(Panic())
			Expect(func() { emu.ExtractBits(0, 0, 32) }).To(Panic())
		})
	})
})
