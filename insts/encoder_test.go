package insts_test

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/insts"
)

var _ = Describe("Encoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	DescribeTable("should reproduce canonical machine words",
		func(word uint32) {
			Expect(insts.Encode(decoder.Decode(word))).To(Equal(word))
		},
		Entry("MOV r2, #48", uint32(0xE3A02030)),
		Entry("ADDS r0, r1, r2", uint32(0xE0910002)),
		Entry("MOV r0, r1, LSL #2", uint32(0xE1A00101)),
		Entry("MOV r0, r1, LSL r2", uint32(0xE1A00211)),
		Entry("CMP r0, #5", uint32(0xE3500005)),
		Entry("SUBS pc, lr, #4", uint32(0xE25EF004)),
		Entry("LDR r0, [r1, #4]", uint32(0xE5910004)),
		Entry("STR r0, [r1], #4", uint32(0xE4810004)),
		Entry("LDRB r0, [r1]", uint32(0xE5D10000)),
		Entry("LDR r0, [r1, r2]", uint32(0xE7910002)),
		Entry("LDR r0, [r1, r2, LSL #2]", uint32(0xE7910102)),
		Entry("LDR r0, [r1], -r2", uint32(0xE6110002)),
		Entry("LDRH r0, [r1, #2]", uint32(0xE1D100B2)),
		Entry("LDRH r0, [r1, #0x34]", uint32(0xE1D103B4)),
		Entry("STRH r0, [r1, #2]", uint32(0xE1C100B2)),
		Entry("LDRSB r0, [r1]", uint32(0xE1D100D0)),
		Entry("LDRSH r0, [r1]", uint32(0xE1D100F0)),
		Entry("LDRH r0, [r1], r2", uint32(0xE09100B2)),
		Entry("STMDB sp!, {r4, lr}", uint32(0xE92D4010)),
		Entry("LDMIA sp!, {r4, pc}", uint32(0xE8BD8010)),
		Entry("BL #32", uint32(0xEB000006)),
		Entry("BEQ .", uint32(0x0AFFFFFE)),
		Entry("BX lr", uint32(0xE12FFF1E)),
		Entry("MUL r0, r1, r2", uint32(0xE0000291)),
		Entry("MLA r0, r1, r2, r3", uint32(0xE0203291)),
		Entry("SWI 0x11", uint32(0xEF000011)),
		Entry("MRS r0, CPSR", uint32(0xE10F0000)),
		Entry("MRS r0, SPSR", uint32(0xE14F0000)),
		Entry("MSR CPSR_f, r0", uint32(0xE128F000)),
		Entry("MSR CPSR_c, #0x13", uint32(0xE321F013)),
		Entry("coprocessor NOP", uint32(0xEC000000)),
	)

	Describe("decode of encoded fields", func() {
		ignoreRaw := cmpopts.IgnoreFields(insts.Instruction{}, "Raw")

		It("should round-trip a conditional data-processing instruction", func() {
			want := &insts.Instruction{
				Shape:       insts.ShapeDataRegImm,
				Cond:        insts.CondNE,
				Opcode:      insts.OpEOR,
				SetFlags:    true,
				Rd:          7,
				Rn:          3,
				Rm:          12,
				ShiftType:   insts.ShiftASR,
				ShiftAmount: 31,
			}

			got := decoder.Decode(insts.Encode(want))
			Expect(cmp.Diff(want, got, ignoreRaw)).To(BeEmpty())
		})

		It("should round-trip a rotated immediate", func() {
			want := &insts.Instruction{
				Shape:  insts.ShapeDataImm,
				Cond:   insts.CondAL,
				Opcode: insts.OpBIC,
				Rd:     1,
				Rn:     1,
				Imm:    0xFF,
				Rotate: 12,
			}

			got := decoder.Decode(insts.Encode(want))
			Expect(cmp.Diff(want, got, ignoreRaw)).To(BeEmpty())
			Expect(got.Rotated()).To(Equal(uint32(0xFF00)))
		})

		It("should round-trip a block transfer", func() {
			want := &insts.Instruction{
				Shape:     insts.ShapeBlock,
				Cond:      insts.CondAL,
				BlockMode: insts.BlockIB,
				PreIndex:  true,
				Add:       true,
				UserBank:  true,
				Load:      true,
				Rn:        5,
				RegList:   0x00F1,
			}

			got := decoder.Decode(insts.Encode(want))
			Expect(cmp.Diff(want, got, ignoreRaw)).To(BeEmpty())
		})

		It("should round-trip a negative branch offset", func() {
			want := &insts.Instruction{
				Shape:        insts.ShapeBranch,
				Cond:         insts.CondGT,
				Link:         true,
				BranchOffset: -0x100,
			}

			got := decoder.Decode(insts.Encode(want))
			Expect(cmp.Diff(want, got, ignoreRaw)).To(BeEmpty())
		})

		It("should round-trip a post-indexed half-word store", func() {
			want := &insts.Instruction{
				Shape:  insts.ShapeHalfImmPost,
				Cond:   insts.CondAL,
				HalfOp: insts.HalfStore,
				Rd:     2,
				Rn:     9,
				Imm:    0xAB,
			}

			got := decoder.Decode(insts.Encode(want))
			Expect(cmp.Diff(want, got, ignoreRaw)).To(BeEmpty())
		})

		It("should keep the raw word of a NOP", func() {
			Expect(insts.Encode(&insts.Instruction{Raw: 0xEC000000})).To(Equal(uint32(0xEC000000)))
		})
	})
})
