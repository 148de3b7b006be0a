// Package insts provides A32 instruction definitions and decoding.
//
// This package turns 32-bit A32 machine words into a flat Instruction record
// tagged with its encoding Shape. Only the fields meaningful for that shape
// are populated. It supports:
//   - Data processing with immediate, register-shifted-by-immediate and
//     register-shifted-by-register second operands
//   - Single word/byte load and store with immediate, register and scaled
//     register offsets, pre- and post-indexed
//   - Half-word and signed byte/half-word load and store
//   - Block transfer (LDM/STM) in all four addressing modes
//   - B, BL, BX, MUL, MLA, SWI, MRS and MSR
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE3A02030) // MOV r2, #48
//	fmt.Println(inst.Shape, inst.Opcode, inst.Rd, inst.Imm)
//	fmt.Println(inst) // mov r2, #48
package insts
