// Package emu provides functional MIPS emulation.
package emu

// EndOfProgram is the return address installed in $ra at reset. A jump or
// branch to it ends the program.
const EndOfProgram uint32 = 0xFFFFFFFF

// Register conventions applied at reset.
const (
	regV0 = 2
	regSP = 29
	regRA = 31
)

// RegFile represents the MIPS register file.
// It contains 32 general-purpose registers and the program counter.
type RegFile struct {
	// R holds the general-purpose registers.
	// R[0] is hardwired to zero.
	R [32]uint32

	// PC is the program counter.
	PC uint32
}

// NewRegFile creates a register file reset with the given stack top.
func NewRegFile(stackTop uint32) *RegFile {
	r := &RegFile{}
	r.Reset(stackTop)
	return r
}

// Reset clears all registers and the PC, then installs the stack pointer and
// the end-of-program return address.
func (r *RegFile) Reset(stackTop uint32) {
	r.R = [32]uint32{}
	r.PC = 0
	r.R[regSP] = stackTop
	r.R[regRA] = EndOfProgram
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.R[reg] = value
}

// Result returns the program result held in $v0.
func (r *RegFile) Result() int32 {
	return int32(r.R[regV0])
}
