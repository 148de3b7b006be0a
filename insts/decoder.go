// Package insts provides A32 instruction definitions and decoding.
package insts

// Shape identifies the encoding an instruction was decoded from. Each shape
// has exactly one execution handler.
type Shape uint8

// Instruction shapes.
const (
	ShapeNOP                Shape = iota
	ShapeDataRegImm               // Data processing, Rm shifted by immediate
	ShapeDataRegReg               // Data processing, Rm shifted by Rs
	ShapeDataImm                  // Data processing, rotated immediate
	ShapeLdrStrRegPre             // LDR/STR [Rn, +/-Rm]{!}
	ShapeLdrStrRegPost            // LDR/STR [Rn], +/-Rm
	ShapeLdrStrImmPre             // LDR/STR [Rn, #+/-imm12]{!}
	ShapeLdrStrImmPost            // LDR/STR [Rn], #+/-imm12
	ShapeLdrStrShiftRegPre        // LDR/STR [Rn, +/-Rm, shift #n]{!}
	ShapeLdrStrShiftRegPost       // LDR/STR [Rn], +/-Rm, shift #n
	ShapeHalfImmPre               // LDRH/STRH/LDRSB/LDRSH [Rn, #+/-imm8]{!}
	ShapeHalfImmPost              // LDRH/STRH/LDRSB/LDRSH [Rn], #+/-imm8
	ShapeHalfRegPre               // LDRH/STRH/LDRSB/LDRSH [Rn, +/-Rm]{!}
	ShapeHalfRegPost              // LDRH/STRH/LDRSB/LDRSH [Rn], +/-Rm
	ShapeBlock                    // LDM/STM
	ShapeBranch                   // B/BL
	ShapeBranchExchange           // BX
	ShapeMultiply                 // MUL/MLA
	ShapeSWI                      // Software interrupt
	ShapeMRS                      // Move status register to register
	ShapeMSRReg                   // Move register to status register
	ShapeMSRImm                   // Move immediate to status register

	NumShapes
)

var shapeNames = [NumShapes]string{
	ShapeNOP:                "NOP",
	ShapeDataRegImm:         "DataRegImm",
	ShapeDataRegReg:         "DataRegReg",
	ShapeDataImm:            "DataImm",
	ShapeLdrStrRegPre:       "LdrStrRegPre",
	ShapeLdrStrRegPost:      "LdrStrRegPost",
	ShapeLdrStrImmPre:       "LdrStrImmPre",
	ShapeLdrStrImmPost:      "LdrStrImmPost",
	ShapeLdrStrShiftRegPre:  "LdrStrShiftRegPre",
	ShapeLdrStrShiftRegPost: "LdrStrShiftRegPost",
	ShapeHalfImmPre:         "HalfImmPre",
	ShapeHalfImmPost:        "HalfImmPost",
	ShapeHalfRegPre:         "HalfRegPre",
	ShapeHalfRegPost:        "HalfRegPost",
	ShapeBlock:              "Block",
	ShapeBranch:             "Branch",
	ShapeBranchExchange:     "BranchExchange",
	ShapeMultiply:           "Multiply",
	ShapeSWI:                "SWI",
	ShapeMRS:                "MRS",
	ShapeMSRReg:             "MSRReg",
	ShapeMSRImm:             "MSRImm",
}

func (s Shape) String() string {
	if s < NumShapes {
		return shapeNames[s]
	}
	return "Shape(?)"
}

// Cond represents an A32 condition code (bits [31:28]).
type Cond uint8

// A32 condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Never
)

var condNames = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "al", "nv",
}

func (c Cond) String() string {
	return condNames[c&0xF]
}

// DataOp is a data-processing opcode (bits [24:21]).
type DataOp uint8

// Data-processing opcodes.
const (
	OpAND DataOp = iota
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
)

var dataOpNames = [16]string{
	"and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
	"tst", "teq", "cmp", "cmn", "orr", "mov", "bic", "mvn",
}

func (o DataOp) String() string {
	return dataOpNames[o&0xF]
}

// IsCompare reports whether the opcode only updates flags (TST, TEQ, CMP, CMN).
func (o DataOp) IsCompare() bool {
	return o >= OpTST && o <= OpCMN
}

// IsLogical reports whether the opcode takes its carry from the shifter.
func (o DataOp) IsLogical() bool {
	switch o {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	}
	return false
}

// ShiftType represents a barrel-shifter operation.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right (RRX when amount is 0)
)

var shiftNames = [4]string{"lsl", "lsr", "asr", "ror"}

func (s ShiftType) String() string {
	return shiftNames[s&0x3]
}

// HalfwordOp selects the transfer of a half-word load/store: L<<2 | SH.
type HalfwordOp uint8

// Half-word transfer kinds.
const (
	HalfStore       HalfwordOp = 0b001 // STRH
	HalfLoadDouble  HalfwordOp = 0b010 // LDRD (not implemented)
	HalfStoreDouble HalfwordOp = 0b011 // STRD (not implemented)
	HalfLoad        HalfwordOp = 0b101 // LDRH
	HalfLoadSByte   HalfwordOp = 0b110 // LDRSB
	HalfLoadSHalf   HalfwordOp = 0b111 // LDRSH
)

// BlockMode is the addressing mode of a block transfer: P<<1 | U.
type BlockMode uint8

// Block transfer addressing modes.
const (
	BlockDA BlockMode = 0b00 // Decrement after
	BlockIA BlockMode = 0b01 // Increment after
	BlockDB BlockMode = 0b10 // Decrement before
	BlockIB BlockMode = 0b11 // Increment before
)

var blockNames = [4]string{"da", "ia", "db", "ib"}

func (m BlockMode) String() string {
	return blockNames[m&0x3]
}

// Instruction represents a decoded A32 instruction.
type Instruction struct {
	Shape Shape  // Encoding shape; selects the execution handler
	Raw   uint32 // Original machine word
	Cond  Cond   // Condition code

	// Data processing
	Opcode   DataOp // Data-processing opcode
	SetFlags bool   // S bit

	// Registers
	Rd uint8 // Destination (or transfer) register
	Rn uint8 // Base / first operand / accumulator register
	Rm uint8 // Second operand / offset register
	Rs uint8 // Shift amount / multiplier register

	// Immediate operand
	Imm    uint32 // imm8 (data, MSR), offset12, or combined half-word offset8
	Rotate uint8  // 4-bit rotate field; rotation is Rotate*2

	// Shift for register operand
	ShiftType   ShiftType // Type of shift applied to Rm
	ShiftAmount uint8     // 5-bit immediate shift amount

	// Load/store fields
	PreIndex  bool       // P bit
	Add       bool       // U bit: add offset to base
	Byte      bool       // B bit: byte transfer
	Writeback bool       // W bit (always implied for post-indexed forms)
	Load      bool       // L bit: load rather than store
	HalfOp    HalfwordOp // L<<2|SH for half-word transfers

	// Block transfer
	BlockMode BlockMode // Addressing mode
	UserBank  bool      // S bit ("^")
	RegList   uint16    // Register list bitmask

	// Branch
	Link         bool  // L bit
	BranchOffset int32 // Signed byte offset from the instruction's own address

	// Multiply
	Accumulate bool // A bit (MLA)

	// SWI
	SWINumber uint32 // 24-bit comment field

	// Status register transfer
	FieldMask uint8 // 4-bit field mask (c, x, s, f)
	UseSPSR   bool  // R bit

	// Injected by the CPU before execution
	PCAddress uint32 // Address this instruction was fetched from
	LastChar  byte   // Last character delivered by the host keyboard

	// Filled by the handler when a store hits the display address
	DisplayValue   uint32
	DisplayWritten bool
}

// Decoder decodes A32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new A32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit A32 instruction word. Unrecognized words decode
// to a NOP carrying the original condition.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Shape: ShapeNOP,
		Raw:   word,
		Cond:  Cond(word >> 28),
	}

	switch {
	case d.isBranchExchange(word):
		d.decodeBranchExchange(word, inst)
	case d.isMRS(word):
		d.decodeMRS(word, inst)
	case d.isMSRReg(word):
		d.decodeMSR(word, inst, ShapeMSRReg)
	case d.isMSRImm(word):
		d.decodeMSR(word, inst, ShapeMSRImm)
	case d.isMultiply(word):
		d.decodeMultiply(word, inst)
	case d.isHalfword(word):
		d.decodeHalfword(word, inst)
	case d.isDataRegImm(word):
		d.decodeDataProcessing(word, inst, ShapeDataRegImm)
	case d.isDataRegReg(word):
		d.decodeDataProcessing(word, inst, ShapeDataRegReg)
	case d.isDataImm(word):
		d.decodeDataProcessing(word, inst, ShapeDataImm)
	case d.isLoadStore(word):
		d.decodeLoadStore(word, inst)
	case d.isBlock(word):
		d.decodeBlock(word, inst)
	case d.isBranch(word):
		d.decodeBranch(word, inst)
	case d.isSWI(word):
		d.decodeSWI(word, inst)
	}

	return inst
}

func bits(word uint32, hi, lo uint) uint32 {
	return (word >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func bit(word uint32, n uint) bool {
	return (word>>n)&1 == 1
}

// isBranchExchange: cccc 0001 0010 1111 1111 1111 0001 mmmm
func (d *Decoder) isBranchExchange(word uint32) bool {
	return word&0x0FFFFFF0 == 0x012FFF10
}

func (d *Decoder) decodeBranchExchange(word uint32, inst *Instruction) {
	inst.Shape = ShapeBranchExchange
	inst.Rm = uint8(bits(word, 3, 0))
}

// isMRS: cccc 0001 0R00 1111 dddd 0000 0000 0000
func (d *Decoder) isMRS(word uint32) bool {
	return word&0x0FBF0FFF == 0x010F0000
}

func (d *Decoder) decodeMRS(word uint32, inst *Instruction) {
	inst.Shape = ShapeMRS
	inst.UseSPSR = bit(word, 22)
	inst.Rd = uint8(bits(word, 15, 12))
}

// isMSRReg: cccc 0001 0R10 ffff 1111 0000 0000 mmmm
func (d *Decoder) isMSRReg(word uint32) bool {
	return word&0x0FB0FFF0 == 0x0120F000
}

// isMSRImm: cccc 0011 0R10 ffff 1111 rrrr iiii iiii
func (d *Decoder) isMSRImm(word uint32) bool {
	return word&0x0FB0F000 == 0x0320F000
}

func (d *Decoder) decodeMSR(word uint32, inst *Instruction, shape Shape) {
	inst.Shape = shape
	inst.UseSPSR = bit(word, 22)
	inst.FieldMask = uint8(bits(word, 19, 16))

	if shape == ShapeMSRImm {
		inst.Rotate = uint8(bits(word, 11, 8))
		inst.Imm = bits(word, 7, 0)
	} else {
		inst.Rm = uint8(bits(word, 3, 0))
	}
}

// isMultiply: cccc 0000 00as dddd nnnn ssss 1001 mmmm
func (d *Decoder) isMultiply(word uint32) bool {
	return word&0x0FC000F0 == 0x00000090
}

func (d *Decoder) decodeMultiply(word uint32, inst *Instruction) {
	inst.Shape = ShapeMultiply
	inst.Accumulate = bit(word, 21)
	inst.SetFlags = bit(word, 20)
	inst.Rd = uint8(bits(word, 19, 16))
	inst.Rs = uint8(bits(word, 11, 8))
	inst.Rm = uint8(bits(word, 3, 0))

	if inst.Accumulate {
		inst.Rn = uint8(bits(word, 15, 12))
	}
}

// isHalfword matches both offset forms:
//
//	imm: cccc 000p u1wl nnnn dddd hhhh 1sh1 llll
//	reg: cccc 000p u0wl nnnn dddd 0000 1sh1 mmmm
//
// SH == 00 is the multiply/swap space and is excluded.
func (d *Decoder) isHalfword(word uint32) bool {
	if word&0x0E000090 != 0x00000090 || bits(word, 6, 5) == 0 {
		return false
	}
	if bit(word, 22) {
		return true
	}
	return bits(word, 11, 8) == 0
}

func (d *Decoder) decodeHalfword(word uint32, inst *Instruction) {
	pre := bit(word, 24)
	immediate := bit(word, 22)

	switch {
	case immediate && pre:
		inst.Shape = ShapeHalfImmPre
	case immediate:
		inst.Shape = ShapeHalfImmPost
	case pre:
		inst.Shape = ShapeHalfRegPre
	default:
		inst.Shape = ShapeHalfRegPost
	}

	inst.PreIndex = pre
	inst.Add = bit(word, 23)
	inst.Writeback = bit(word, 21)
	inst.Load = bit(word, 20)
	inst.Rn = uint8(bits(word, 19, 16))
	inst.Rd = uint8(bits(word, 15, 12))
	inst.HalfOp = HalfwordOp(bits(word, 20, 20)<<2 | bits(word, 6, 5))

	if immediate {
		inst.Imm = bits(word, 11, 8)<<4 | bits(word, 3, 0)
	} else {
		inst.Rm = uint8(bits(word, 3, 0))
	}
}

// isDataRegImm: cccc 000o ooos nnnn dddd iiii itt0 mmmm
func (d *Decoder) isDataRegImm(word uint32) bool {
	return bits(word, 27, 25) == 0b000 && !bit(word, 4)
}

// isDataRegReg: cccc 000o ooos nnnn dddd ssss 0tt1 mmmm
func (d *Decoder) isDataRegReg(word uint32) bool {
	return bits(word, 27, 25) == 0b000 && !bit(word, 7) && bit(word, 4)
}

// isDataImm: cccc 001o ooos nnnn dddd rrrr iiii iiii
func (d *Decoder) isDataImm(word uint32) bool {
	return bits(word, 27, 25) == 0b001
}

func (d *Decoder) decodeDataProcessing(word uint32, inst *Instruction, shape Shape) {
	inst.Shape = shape
	inst.Opcode = DataOp(bits(word, 24, 21))
	inst.SetFlags = bit(word, 20)
	inst.Rn = uint8(bits(word, 19, 16))
	inst.Rd = uint8(bits(word, 15, 12))

	switch shape {
	case ShapeDataRegImm:
		inst.ShiftAmount = uint8(bits(word, 11, 7))
		inst.ShiftType = ShiftType(bits(word, 6, 5))
		inst.Rm = uint8(bits(word, 3, 0))
	case ShapeDataRegReg:
		inst.Rs = uint8(bits(word, 11, 8))
		inst.ShiftType = ShiftType(bits(word, 6, 5))
		inst.Rm = uint8(bits(word, 3, 0))
	case ShapeDataImm:
		inst.Rotate = uint8(bits(word, 11, 8))
		inst.Imm = bits(word, 7, 0)
	}
}

// isLoadStore: cccc 01ip ubwl nnnn dddd <offset>
// With i set, bit 4 must be clear (bit 4 set is the media/undefined space).
func (d *Decoder) isLoadStore(word uint32) bool {
	if bits(word, 27, 26) != 0b01 {
		return false
	}
	return !bit(word, 25) || !bit(word, 4)
}

func (d *Decoder) decodeLoadStore(word uint32, inst *Instruction) {
	pre := bit(word, 24)

	inst.PreIndex = pre
	inst.Add = bit(word, 23)
	inst.Byte = bit(word, 22)
	inst.Writeback = bit(word, 21)
	inst.Load = bit(word, 20)
	inst.Rn = uint8(bits(word, 19, 16))
	inst.Rd = uint8(bits(word, 15, 12))

	switch {
	case !bit(word, 25):
		inst.Imm = bits(word, 11, 0)
		inst.Shape = pick(pre, ShapeLdrStrImmPre, ShapeLdrStrImmPost)
	case bits(word, 11, 4) == 0:
		inst.Rm = uint8(bits(word, 3, 0))
		inst.Shape = pick(pre, ShapeLdrStrRegPre, ShapeLdrStrRegPost)
	default:
		inst.ShiftAmount = uint8(bits(word, 11, 7))
		inst.ShiftType = ShiftType(bits(word, 6, 5))
		inst.Rm = uint8(bits(word, 3, 0))
		inst.Shape = pick(pre, ShapeLdrStrShiftRegPre, ShapeLdrStrShiftRegPost)
	}
}

func pick(pre bool, preShape, postShape Shape) Shape {
	if pre {
		return preShape
	}
	return postShape
}

// isBlock: cccc 100p uswl nnnn rrrr rrrr rrrr rrrr
func (d *Decoder) isBlock(word uint32) bool {
	return bits(word, 27, 25) == 0b100
}

func (d *Decoder) decodeBlock(word uint32, inst *Instruction) {
	inst.Shape = ShapeBlock
	inst.BlockMode = BlockMode(bits(word, 24, 23))
	inst.PreIndex = bit(word, 24)
	inst.Add = bit(word, 23)
	inst.UserBank = bit(word, 22)
	inst.Writeback = bit(word, 21)
	inst.Load = bit(word, 20)
	inst.Rn = uint8(bits(word, 19, 16))
	inst.RegList = uint16(bits(word, 15, 0))
}

// isBranch: cccc 101l oooo oooo oooo oooo oooo oooo
func (d *Decoder) isBranch(word uint32) bool {
	return bits(word, 27, 25) == 0b101
}

// decodeBranch sign-extends imm24, scales it by 4 and adds the 8-byte
// pipeline distance so that the target is PCAddress + BranchOffset.
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	inst.Shape = ShapeBranch
	inst.Link = bit(word, 24)

	imm24 := int32(word<<8) >> 8
	inst.BranchOffset = imm24*4 + 8
}

// isSWI: cccc 1111 iiii iiii iiii iiii iiii iiii
func (d *Decoder) isSWI(word uint32) bool {
	return bits(word, 27, 24) == 0b1111
}

func (d *Decoder) decodeSWI(word uint32, inst *Instruction) {
	inst.Shape = ShapeSWI
	inst.SWINumber = bits(word, 23, 0)
}

// Rotated returns the rotated-immediate operand: Imm rotated right by
// Rotate*2.
func (i *Instruction) Rotated() uint32 {
	return bitsRotateRight(i.Imm, uint(i.Rotate)*2)
}

func bitsRotateRight(v uint32, n uint) uint32 {
	n &= 31
	if n == 0 {
		return v
	}
	return v>>n | v<<(32-n)
}
