package insts

import (
	"errors"
	"fmt"
)

// ErrEndOfProgram is returned when decoding the all-zero end-of-program word.
var ErrEndOfProgram = errors.New("end of program")

// ErrUnsupportedOpcode is returned for words outside the supported instruction set.
var ErrUnsupportedOpcode = errors.New("unsupported opcode")

// Op represents a MIPS operation.
type Op uint8

// MIPS operations.
const (
	OpUnknown Op = iota
	OpSLL
	OpSRL
	OpSRA
	OpJR
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpBEQ
	OpBNE
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI
	OpLW
	OpSW
	OpJ
	OpJAL
)

var opNames = [...]string{
	OpUnknown: "unknown",
	OpSLL:     "sll",
	OpSRL:     "srl",
	OpSRA:     "sra",
	OpJR:      "jr",
	OpADD:     "add",
	OpADDU:    "addu",
	OpSUB:     "sub",
	OpSUBU:    "subu",
	OpAND:     "and",
	OpOR:      "or",
	OpXOR:     "xor",
	OpNOR:     "nor",
	OpSLT:     "slt",
	OpSLTU:    "sltu",
	OpBEQ:     "beq",
	OpBNE:     "bne",
	OpADDI:    "addi",
	OpADDIU:   "addiu",
	OpSLTI:    "slti",
	OpSLTIU:   "sltiu",
	OpANDI:    "andi",
	OpORI:     "ori",
	OpXORI:    "xori",
	OpLUI:     "lui",
	OpLW:      "lw",
	OpSW:      "sw",
	OpJ:       "j",
	OpJAL:     "jal",
}

// String returns the assembler mnemonic of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register
	FormatI              // Immediate
	FormatJ              // Jump
)

// Primary opcode field values (bits [31:26]).
const (
	opcodeSpecial = 0x00
	opcodeJ       = 0x02
	opcodeJAL     = 0x03
	opcodeBEQ     = 0x04
	opcodeBNE     = 0x05
	opcodeADDI    = 0x08
	opcodeADDIU   = 0x09
	opcodeSLTI    = 0x0A
	opcodeSLTIU   = 0x0B
	opcodeANDI    = 0x0C
	opcodeORI     = 0x0D
	opcodeXORI    = 0x0E
	opcodeLUI     = 0x0F
	opcodeLW      = 0x23
	opcodeSW      = 0x2B
)

// Function field values (bits [5:0]) for SPECIAL instructions.
const (
	functSLL  = 0x00
	functSRL  = 0x02
	functSRA  = 0x03
	functJR   = 0x08
	functADD  = 0x20
	functADDU = 0x21
	functSUB  = 0x22
	functSUBU = 0x23
	functAND  = 0x24
	functOR   = 0x25
	functXOR  = 0x26
	functNOR  = 0x27
	functSLT  = 0x2A
	functSLTU = 0x2B
)

var specialOps = map[uint32]Op{
	functSLL:  OpSLL,
	functSRL:  OpSRL,
	functSRA:  OpSRA,
	functJR:   OpJR,
	functADD:  OpADD,
	functADDU: OpADDU,
	functSUB:  OpSUB,
	functSUBU: OpSUBU,
	functAND:  OpAND,
	functOR:   OpOR,
	functXOR:  OpXOR,
	functNOR:  OpNOR,
	functSLT:  OpSLT,
	functSLTU: OpSLTU,
}

var immediateOps = map[uint32]Op{
	opcodeBEQ:   OpBEQ,
	opcodeBNE:   OpBNE,
	opcodeADDI:  OpADDI,
	opcodeADDIU: OpADDIU,
	opcodeSLTI:  OpSLTI,
	opcodeSLTIU: OpSLTIU,
	opcodeANDI:  OpANDI,
	opcodeORI:   OpORI,
	opcodeXORI:  OpXORI,
	opcodeLUI:   OpLUI,
	opcodeLW:    OpLW,
	opcodeSW:    OpSW,
}

// Instruction represents a decoded MIPS instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format
	Word   uint32 // Raw instruction word

	Rs    uint8 // First source register
	Rt    uint8 // Second source register (destination for I-type)
	Rd    uint8 // Destination register (R-type)
	Shamt uint8 // Shift amount

	// Imm is the 16-bit immediate, sign-extended.
	Imm int32
	// ZeroImm is the 16-bit immediate, zero-extended (ANDI, ORI, XORI).
	ZeroImm uint32

	// Target is the 26-bit jump target field.
	Target uint32
}

// WriteRegister returns the register the instruction writes, if any.
// JAL links through $ra.
func (i *Instruction) WriteRegister() uint8 {
	switch {
	case i.Op == OpJAL:
		return RegRA
	case i.Format == FormatR:
		return i.Rd
	default:
		return i.Rt
	}
}

// BranchTarget returns the target of a taken conditional branch at pc.
func (i *Instruction) BranchTarget(pc uint32) uint32 {
	return pc + 4 + uint32(i.Imm<<2)
}

// JumpTarget returns the target of a J or JAL at pc.
func (i *Instruction) JumpTarget(pc uint32) uint32 {
	return (pc+4)&0xF0000000 | i.Target<<2
}

// String returns a disassembly of the instruction.
func (i *Instruction) String() string {
	switch i.Op {
	case OpSLL, OpSRL, OpSRA:
		return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rd, i.Rt, i.Shamt)
	case OpJR:
		return fmt.Sprintf("jr $%d", i.Rs)
	case OpBEQ, OpBNE:
		return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rs, i.Rt, i.Imm)
	case OpLUI:
		return fmt.Sprintf("lui $%d, 0x%x", i.Rt, i.ZeroImm)
	case OpLW, OpSW:
		return fmt.Sprintf("%s $%d, %d($%d)", i.Op, i.Rt, i.Imm, i.Rs)
	case OpJ, OpJAL:
		return fmt.Sprintf("%s 0x%x", i.Op, i.Target<<2)
	case OpANDI, OpORI, OpXORI:
		return fmt.Sprintf("%s $%d, $%d, 0x%x", i.Op, i.Rt, i.Rs, i.ZeroImm)
	}

	if i.Format == FormatI {
		return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rt, i.Rs, i.Imm)
	}
	return fmt.Sprintf("%s $%d, $%d, $%d", i.Op, i.Rd, i.Rs, i.Rt)
}

// Decoder decodes MIPS machine words into instructions.
type Decoder struct{}

// NewDecoder creates a new MIPS instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit MIPS instruction word.
// The all-zero word yields ErrEndOfProgram.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	if word == 0 {
		return nil, ErrEndOfProgram
	}

	opcode := word >> 26 // bits [31:26]
	inst := &Instruction{
		Word:    word,
		Rs:      uint8((word >> 21) & 0x1F), // bits [25:21]
		Rt:      uint8((word >> 16) & 0x1F), // bits [20:16]
		Rd:      uint8((word >> 11) & 0x1F), // bits [15:11]
		Shamt:   uint8((word >> 6) & 0x1F),  // bits [10:6]
		Imm:     int32(int16(word & 0xFFFF)),
		ZeroImm: word & 0xFFFF,
		Target:  word & 0x3FFFFFF,
	}

	switch opcode {
	case opcodeSpecial:
		op, ok := specialOps[word&0x3F]
		if !ok {
			return nil, fmt.Errorf("%w: word 0x%08x (funct 0x%02x)",
				ErrUnsupportedOpcode, word, word&0x3F)
		}
		inst.Op = op
		inst.Format = FormatR
	case opcodeJ:
		inst.Op = OpJ
		inst.Format = FormatJ
	case opcodeJAL:
		inst.Op = OpJAL
		inst.Format = FormatJ
	default:
		op, ok := immediateOps[opcode]
		if !ok {
			return nil, fmt.Errorf("%w: word 0x%08x (opcode 0x%02x)",
				ErrUnsupportedOpcode, word, opcode)
		}
		inst.Op = op
		inst.Format = FormatI
	}

	return inst, nil
}
