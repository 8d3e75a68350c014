package insts

// Conventional register numbers.
const (
	RegZero uint8 = 0
	RegV0   uint8 = 2
	RegA0   uint8 = 4
	RegA1   uint8 = 5
	RegT0   uint8 = 8
	RegT1   uint8 = 9
	RegT2   uint8 = 10
	RegT3   uint8 = 11
	RegS0   uint8 = 16
	RegS1   uint8 = 17
	RegSP   uint8 = 29
	RegRA   uint8 = 31
)

// ControlSignal is the bundle of datapath controls derived from an opcode.
type ControlSignal struct {
	RegWrite bool // Writes a register in write-back
	RegDst   bool // Destination is rd (otherwise rt)
	ALUSrc   bool // Second ALU operand is the immediate
	MemRead  bool // Loads from memory
	MemWrite bool // Stores to memory
	MemToReg bool // Write-back value comes from memory
	Branch   bool // Conditional branch, resolved in execute
	Jump     bool // J or JAL, resolved in decode
	JumpReg  bool // JR, resolved in decode
	Link     bool // JAL, writes the return address
	Shift    bool // Shift by shamt
}

// IsControlFlow reports whether the signal redirects the PC.
func (c ControlSignal) IsControlFlow() bool {
	return c.Branch || c.Jump || c.JumpReg
}

var controlTable = map[Op]ControlSignal{
	OpSLL:   {RegWrite: true, RegDst: true, Shift: true},
	OpSRL:   {RegWrite: true, RegDst: true, Shift: true},
	OpSRA:   {RegWrite: true, RegDst: true, Shift: true},
	OpJR:    {JumpReg: true},
	OpADD:   {RegWrite: true, RegDst: true},
	OpADDU:  {RegWrite: true, RegDst: true},
	OpSUB:   {RegWrite: true, RegDst: true},
	OpSUBU:  {RegWrite: true, RegDst: true},
	OpAND:   {RegWrite: true, RegDst: true},
	OpOR:    {RegWrite: true, RegDst: true},
	OpXOR:   {RegWrite: true, RegDst: true},
	OpNOR:   {RegWrite: true, RegDst: true},
	OpSLT:   {RegWrite: true, RegDst: true},
	OpSLTU:  {RegWrite: true, RegDst: true},
	OpBEQ:   {Branch: true},
	OpBNE:   {Branch: true},
	OpADDI:  {RegWrite: true, ALUSrc: true},
	OpADDIU: {RegWrite: true, ALUSrc: true},
	OpSLTI:  {RegWrite: true, ALUSrc: true},
	OpSLTIU: {RegWrite: true, ALUSrc: true},
	OpANDI:  {RegWrite: true, ALUSrc: true},
	OpORI:   {RegWrite: true, ALUSrc: true},
	OpXORI:  {RegWrite: true, ALUSrc: true},
	OpLUI:   {RegWrite: true, ALUSrc: true},
	OpLW:    {RegWrite: true, ALUSrc: true, MemRead: true, MemToReg: true},
	OpSW:    {ALUSrc: true, MemWrite: true},
	OpJ:     {Jump: true},
	OpJAL:   {RegWrite: true, Jump: true, Link: true},
}

// ControlSignals returns the control bundle for op.
// OpUnknown yields the zero bundle, which has no side effects.
func ControlSignals(op Op) ControlSignal {
	return controlTable[op]
}
