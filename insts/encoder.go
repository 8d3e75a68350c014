package insts

// EncodeR encodes an R-type (SPECIAL) instruction word.
func EncodeR(rs, rt, rd, shamt uint8, funct uint32) uint32 {
	return uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 | uint32(rd&0x1F)<<11 |
		uint32(shamt&0x1F)<<6 | funct&0x3F
}

// EncodeI encodes an I-type instruction word.
func EncodeI(opcode uint32, rs, rt uint8, imm int32) uint32 {
	return (opcode&0x3F)<<26 | uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 |
		uint32(imm)&0xFFFF
}

// EncodeJ encodes a J-type instruction word for a byte target address.
func EncodeJ(opcode uint32, target uint32) uint32 {
	return (opcode&0x3F)<<26 | (target>>2)&0x3FFFFFF
}

// ADDU encodes addu rd, rs, rt.
func ADDU(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functADDU) }

// ADD encodes add rd, rs, rt.
func ADD(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functADD) }

// SUBU encodes subu rd, rs, rt.
func SUBU(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functSUBU) }

// SUB encodes sub rd, rs, rt.
func SUB(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functSUB) }

// AND encodes and rd, rs, rt.
func AND(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functAND) }

// OR encodes or rd, rs, rt.
func OR(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functOR) }

// XOR encodes xor rd, rs, rt.
func XOR(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functXOR) }

// NOR encodes nor rd, rs, rt.
func NOR(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functNOR) }

// SLT encodes slt rd, rs, rt.
func SLT(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functSLT) }

// SLTU encodes sltu rd, rs, rt.
func SLTU(rd, rs, rt uint8) uint32 { return EncodeR(rs, rt, rd, 0, functSLTU) }

// SLL encodes sll rd, rt, shamt.
func SLL(rd, rt, shamt uint8) uint32 { return EncodeR(0, rt, rd, shamt, functSLL) }

// SRL encodes srl rd, rt, shamt.
func SRL(rd, rt, shamt uint8) uint32 { return EncodeR(0, rt, rd, shamt, functSRL) }

// SRA encodes sra rd, rt, shamt.
func SRA(rd, rt, shamt uint8) uint32 { return EncodeR(0, rt, rd, shamt, functSRA) }

// JR encodes jr rs.
func JR(rs uint8) uint32 { return EncodeR(rs, 0, 0, 0, functJR) }

// NOP encodes sll $zero, $zero, 0 with a non-zero shamt so the word is not the
// end-of-program marker.
func NOP() uint32 { return SLL(RegZero, RegZero, 1) }

// ADDI encodes addi rt, rs, imm.
func ADDI(rt, rs uint8, imm int32) uint32 { return EncodeI(opcodeADDI, rs, rt, imm) }

// ADDIU encodes addiu rt, rs, imm.
func ADDIU(rt, rs uint8, imm int32) uint32 { return EncodeI(opcodeADDIU, rs, rt, imm) }

// SLTI encodes slti rt, rs, imm.
func SLTI(rt, rs uint8, imm int32) uint32 { return EncodeI(opcodeSLTI, rs, rt, imm) }

// SLTIU encodes sltiu rt, rs, imm.
func SLTIU(rt, rs uint8, imm int32) uint32 { return EncodeI(opcodeSLTIU, rs, rt, imm) }

// ANDI encodes andi rt, rs, imm.
func ANDI(rt, rs uint8, imm uint16) uint32 { return EncodeI(opcodeANDI, rs, rt, int32(imm)) }

// ORI encodes ori rt, rs, imm.
func ORI(rt, rs uint8, imm uint16) uint32 { return EncodeI(opcodeORI, rs, rt, int32(imm)) }

// XORI encodes xori rt, rs, imm.
func XORI(rt, rs uint8, imm uint16) uint32 { return EncodeI(opcodeXORI, rs, rt, int32(imm)) }

// LUI encodes lui rt, imm.
func LUI(rt uint8, imm uint16) uint32 { return EncodeI(opcodeLUI, 0, rt, int32(imm)) }

// LW encodes lw rt, offset(base).
func LW(rt uint8, offset int32, base uint8) uint32 { return EncodeI(opcodeLW, base, rt, offset) }

// SW encodes sw rt, offset(base).
func SW(rt uint8, offset int32, base uint8) uint32 { return EncodeI(opcodeSW, base, rt, offset) }

// BEQ encodes beq rs, rt, offset where offset counts words from pc+4.
func BEQ(rs, rt uint8, offset int32) uint32 { return EncodeI(opcodeBEQ, rs, rt, offset) }

// BNE encodes bne rs, rt, offset where offset counts words from pc+4.
func BNE(rs, rt uint8, offset int32) uint32 { return EncodeI(opcodeBNE, rs, rt, offset) }

// J encodes j target.
func J(target uint32) uint32 { return EncodeJ(opcodeJ, target) }

// JAL encodes jal target.
func JAL(target uint32) uint32 { return EncodeJ(opcodeJAL, target) }
