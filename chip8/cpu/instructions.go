package cpu

import (
	"fmt"

	"github.com/valerio/go-chip8/chip8/bit"
)

// Op identifies the operation of a decoded instruction.
type Op uint8

const (
	// OpData marks a word that is not a valid instruction. Executing it is a no-op
	// reported as a diagnostic.
	OpData Op = iota
	OpCLS     // 00E0 clear the screen
	OpRET     // 00EE return from subroutine
	OpJP      // 1NNN jump
	OpCALL    // 2NNN call subroutine
	OpSEI     // 3XKK skip if Vx == KK
	OpSNEI    // 4XKK skip if Vx != KK
	OpSE      // 5XY0 skip if Vx == Vy
	OpLDI     // 6XKK Vx = KK
	OpADDI    // 7XKK Vx += KK, no carry
	OpLD      // 8XY0 Vx = Vy
	OpOR      // 8XY1
	OpAND     // 8XY2
	OpXOR     // 8XY3
	OpADD     // 8XY4 VF = carry
	OpSUB     // 8XY5 VF = not borrow
	OpSHR     // 8XY6 VF = lsb
	OpSUBN    // 8XY7 Vx = Vy - Vx, VF = not borrow
	OpSHL     // 8XYE VF = msb
	OpSNE     // 9XY0 skip if Vx != Vy
	OpLDIX    // ANNN I = NNN
	OpJPA     // BNNN jump to NNN + V0
	OpRND     // CXKK Vx = random & KK
	OpDRW     // DXYN draw N-row sprite at (Vx, Vy)
	OpSKP     // EX9E skip if key Vx pressed
	OpSKNP    // EXA1 skip if key Vx not pressed
	OpLDRD    // FX07 Vx = DT
	OpLDK     // FX0A wait for a key, Vx = key
	OpLDDR    // FX15 DT = Vx
	OpLDST    // FX18 ST = Vx
	OpADIX    // FX1E I += Vx
	OpLDF     // FX29 I = glyph address of Vx
	OpLDB     // FX33 BCD of Vx at I..I+2
	OpLDXR    // FX55 store V0..Vx at I
	OpLDRX    // FX65 load V0..Vx from I
)

var opNames = [...]string{
	OpData: "DATA",
	OpCLS:  "CLS",
	OpRET:  "RET",
	OpJP:   "JP",
	OpCALL: "CALL",
	OpSEI:  "SEI",
	OpSNEI: "SNEI",
	OpSE:   "SE",
	OpLDI:  "LDI",
	OpADDI: "ADDI",
	OpLD:   "LD",
	OpOR:   "OR",
	OpAND:  "AND",
	OpXOR:  "XOR",
	OpADD:  "ADD",
	OpSUB:  "SUB",
	OpSHR:  "SHR",
	OpSUBN: "SUBN",
	OpSHL:  "SHL",
	OpSNE:  "SNE",
	OpLDIX: "LDIX",
	OpJPA:  "JPA",
	OpRND:  "RND",
	OpDRW:  "DRW",
	OpSKP:  "SKP",
	OpSKNP: "SKNP",
	OpLDRD: "LDRD",
	OpLDK:  "LDK",
	OpLDDR: "LDDR",
	OpLDST: "LDST",
	OpADIX: "ADIX",
	OpLDF:  "LDF",
	OpLDB:  "LDB",
	OpLDXR: "LDXR",
	OpLDRX: "LDRX",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

func (o Op) valid() bool {
	return int(o) < len(encodings)
}

// layout describes which operand fields an operation carries.
type layout uint8

const (
	layoutNone layout = iota
	layoutNNN
	layoutXKK
	layoutXY
	layoutXYN
	layoutX
	layoutRaw
)

// encoding holds the fixed bits of an operation and its operand layout.
type encoding struct {
	base   uint16
	layout layout
}

var encodings = [...]encoding{
	OpData: {0x0000, layoutRaw},
	OpCLS:  {0x00E0, layoutNone},
	OpRET:  {0x00EE, layoutNone},
	OpJP:   {0x1000, layoutNNN},
	OpCALL: {0x2000, layoutNNN},
	OpSEI:  {0x3000, layoutXKK},
	OpSNEI: {0x4000, layoutXKK},
	OpSE:   {0x5000, layoutXY},
	OpLDI:  {0x6000, layoutXKK},
	OpADDI: {0x7000, layoutXKK},
	OpLD:   {0x8000, layoutXY},
	OpOR:   {0x8001, layoutXY},
	OpAND:  {0x8002, layoutXY},
	OpXOR:  {0x8003, layoutXY},
	OpADD:  {0x8004, layoutXY},
	OpSUB:  {0x8005, layoutXY},
	OpSHR:  {0x8006, layoutXY},
	OpSUBN: {0x8007, layoutXY},
	OpSHL:  {0x800E, layoutXY},
	OpSNE:  {0x9000, layoutXY},
	OpLDIX: {0xA000, layoutNNN},
	OpJPA:  {0xB000, layoutNNN},
	OpRND:  {0xC000, layoutXKK},
	OpDRW:  {0xD000, layoutXYN},
	OpSKP:  {0xE09E, layoutX},
	OpSKNP: {0xE0A1, layoutX},
	OpLDRD: {0xF007, layoutX},
	OpLDK:  {0xF00A, layoutX},
	OpLDDR: {0xF015, layoutX},
	OpLDST: {0xF018, layoutX},
	OpADIX: {0xF01E, layoutX},
	OpLDF:  {0xF029, layoutX},
	OpLDB:  {0xF033, layoutX},
	OpLDXR: {0xF055, layoutX},
	OpLDRX: {0xF065, layoutX},
}

// Instruction is a decoded instruction word. Only the fields used by Op's
// layout are meaningful, the others are zero.
type Instruction struct {
	Op  Op
	X   uint8  // register index, bits 8-11
	Y   uint8  // register index, bits 4-7
	N   uint8  // sprite height, bits 0-3
	KK  uint8  // immediate byte, bits 0-7
	NNN uint16 // address, bits 0-11
	Raw uint16 // the word this instruction was decoded from
}

var (
	aluOps = [16]Op{
		0x0: OpLD, 0x1: OpOR, 0x2: OpAND, 0x3: OpXOR, 0x4: OpADD,
		0x5: OpSUB, 0x6: OpSHR, 0x7: OpSUBN, 0xE: OpSHL,
	}
	keyOps = map[uint8]Op{
		0x9E: OpSKP,
		0xA1: OpSKNP,
	}
	miscOps = map[uint8]Op{
		0x07: OpLDRD,
		0x0A: OpLDK,
		0x15: OpLDDR,
		0x18: OpLDST,
		0x1E: OpADIX,
		0x29: OpLDF,
		0x33: OpLDB,
		0x55: OpLDXR,
		0x65: OpLDRX,
	}
)

// Decode maps any 16 bit word to an instruction. Words that match no
// operation decode to OpData.
func Decode(word uint16) Instruction {
	low := bit.Low(word)
	op := OpData

	switch bit.Nibble(word, 3) {
	case 0x0:
		switch word {
		case 0x00E0:
			op = OpCLS
		case 0x00EE:
			op = OpRET
		}
	case 0x1:
		op = OpJP
	case 0x2:
		op = OpCALL
	case 0x3:
		op = OpSEI
	case 0x4:
		op = OpSNEI
	case 0x5:
		if bit.Nibble(word, 0) == 0 {
			op = OpSE
		}
	case 0x6:
		op = OpLDI
	case 0x7:
		op = OpADDI
	case 0x8:
		// OpData is the zero value, so unmapped sub-operations fall through
		op = aluOps[bit.Nibble(word, 0)]
	case 0x9:
		if bit.Nibble(word, 0) == 0 {
			op = OpSNE
		}
	case 0xA:
		op = OpLDIX
	case 0xB:
		op = OpJPA
	case 0xC:
		op = OpRND
	case 0xD:
		op = OpDRW
	case 0xE:
		if o, ok := keyOps[low]; ok {
			op = o
		}
	case 0xF:
		if o, ok := miscOps[low]; ok {
			op = o
		}
	}

	return newInstruction(op, word)
}

func newInstruction(op Op, word uint16) Instruction {
	ins := Instruction{Op: op, Raw: word}
	switch encodings[op].layout {
	case layoutNNN:
		ins.NNN = bit.Addr12(word)
	case layoutXKK:
		ins.X = bit.Nibble(word, 2)
		ins.KK = bit.Low(word)
	case layoutXY:
		ins.X = bit.Nibble(word, 2)
		ins.Y = bit.Nibble(word, 1)
	case layoutXYN:
		ins.X = bit.Nibble(word, 2)
		ins.Y = bit.Nibble(word, 1)
		ins.N = bit.Nibble(word, 0)
	case layoutX:
		ins.X = bit.Nibble(word, 2)
	}
	return ins
}

// Encode rebuilds the instruction word from the operation and its operands.
// An unknown operation encodes as Raw.
func (i Instruction) Encode() uint16 {
	if !i.Op.valid() {
		return i.Raw
	}
	enc := encodings[i.Op]
	x := uint16(i.X&0xF) << 8
	y := uint16(i.Y&0xF) << 4

	switch enc.layout {
	case layoutNNN:
		return enc.base | bit.Addr12(i.NNN)
	case layoutXKK:
		return enc.base | x | uint16(i.KK)
	case layoutXY:
		return enc.base | x | y
	case layoutXYN:
		return enc.base | x | y | uint16(i.N&0xF)
	case layoutX:
		return enc.base | x
	case layoutRaw:
		return i.Raw
	}
	return enc.base
}

// String renders the instruction in assembly form, e.g. "ADD V1, V2".
func (i Instruction) String() string {
	if !i.Op.valid() {
		return fmt.Sprintf("%s $%04X", i.Op, i.Raw)
	}
	switch encodings[i.Op].layout {
	case layoutNNN:
		if i.Op == OpJPA {
			return fmt.Sprintf("%s V0, $%03X", i.Op, i.NNN)
		}
		return fmt.Sprintf("%s $%03X", i.Op, i.NNN)
	case layoutXKK:
		return fmt.Sprintf("%s V%X, $%02X", i.Op, i.X, i.KK)
	case layoutXY:
		return fmt.Sprintf("%s V%X, V%X", i.Op, i.X, i.Y)
	case layoutXYN:
		return fmt.Sprintf("%s V%X, V%X, %d", i.Op, i.X, i.Y, i.N)
	case layoutX:
		return fmt.Sprintf("%s V%X", i.Op, i.X)
	case layoutRaw:
		return fmt.Sprintf("%s $%04X", i.Op, i.Raw)
	}
	return i.Op.String()
}
