// Package benchmarks provides sample MIPS programs and a harness that runs
// them on the timing simulator.
package benchmarks

import "github.com/sarchlab/mipsim/insts"

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the machine code, loaded at address 0
	Program []uint32

	// Expected is the expected program result (for validation)
	Expected int32
}

// Programs returns the standard set of sample programs.
func Programs() []Benchmark {
	return []Benchmark{
		Trivial(),
		Simple(),
		Sum(),
		ArraySum(),
		GCD(),
		Fibonacci(),
		Multiply(),
	}
}

// Trivial is an empty image. The first fetch reads the zero word.
func Trivial() Benchmark {
	return Benchmark{
		Name:        "trivial",
		Description: "empty program - terminates on the first fetch",
		Expected:    0,
	}
}

// Simple adds two constants.
func Simple() Benchmark {
	return Benchmark{
		Name:        "simple2",
		Description: "two immediates added through back-to-back dependencies",
		Program: []uint32{
			insts.ADDIU(insts.RegT0, insts.RegZero, 40),
			insts.ADDIU(insts.RegT1, insts.RegZero, 60),
			insts.ADDU(insts.RegV0, insts.RegT0, insts.RegT1),
			insts.JR(insts.RegRA),
		},
		Expected: 100,
	}
}

// Sum adds 1 to 100 in a counted loop.
func Sum() Benchmark {
	return Benchmark{
		Name:        "sum",
		Description: "sum 1..100 - one backward branch taken 99 times",
		Program: []uint32{
			insts.ADDIU(insts.RegV0, insts.RegZero, 0),
			insts.ADDIU(insts.RegT0, insts.RegZero, 100),
			insts.ADDU(insts.RegV0, insts.RegV0, insts.RegT0), // loop
			insts.ADDIU(insts.RegT0, insts.RegT0, -1),
			insts.BNE(insts.RegT0, insts.RegZero, -3),
			insts.JR(insts.RegRA),
		},
		Expected: 5050,
	}
}

// ArraySum stores 1..10 to an array and sums it back through loads.
func ArraySum() Benchmark {
	return Benchmark{
		Name:        "array_sum",
		Description: "store then load 10 words - exercises the data cache",
		Program: []uint32{
			insts.ADDIU(insts.RegT0, insts.RegZero, 0x1000),
			insts.ADDIU(insts.RegT1, insts.RegZero, 1),
			insts.ADDIU(insts.RegT2, insts.RegZero, 11),
			insts.SW(insts.RegT1, 0, insts.RegT0), // store loop
			insts.ADDIU(insts.RegT0, insts.RegT0, 4),
			insts.ADDIU(insts.RegT1, insts.RegT1, 1),
			insts.BNE(insts.RegT1, insts.RegT2, -4),
			insts.ADDIU(insts.RegT0, insts.RegZero, 0x1000),
			insts.ADDIU(insts.RegT3, insts.RegZero, 10),
			insts.ADDIU(insts.RegV0, insts.RegZero, 0),
			insts.LW(insts.RegT1, 0, insts.RegT0), // load loop
			insts.ADDIU(insts.RegT0, insts.RegT0, 4),
			insts.ADDU(insts.RegV0, insts.RegV0, insts.RegT1),
			insts.ADDIU(insts.RegT3, insts.RegT3, -1),
			insts.BNE(insts.RegT3, insts.RegZero, -5),
			insts.JR(insts.RegRA),
		},
		Expected: 55,
	}
}

// GCD computes gcd(17, 5) by repeated subtraction.
func GCD() Benchmark {
	return Benchmark{
		Name:        "gcd",
		Description: "gcd(17, 5) - data-dependent branches and jumps",
		Program: []uint32{
			insts.ADDIU(insts.RegA0, insts.RegZero, 17),
			insts.ADDIU(insts.RegA1, insts.RegZero, 5),
			insts.BEQ(insts.RegA0, insts.RegA1, 6), // 0x08 loop
			insts.SLT(insts.RegT0, insts.RegA0, insts.RegA1),
			insts.BNE(insts.RegT0, insts.RegZero, 2),
			insts.SUBU(insts.RegA0, insts.RegA0, insts.RegA1),
			insts.J(0x08),
			insts.SUBU(insts.RegA1, insts.RegA1, insts.RegA0),
			insts.J(0x08),
			insts.ADDU(insts.RegV0, insts.RegA0, insts.RegZero), // done
			insts.JR(insts.RegRA),
		},
		Expected: 1,
	}
}

// Fibonacci computes fib(10) iteratively.
func Fibonacci() Benchmark {
	return Benchmark{
		Name:        "fib",
		Description: "fib(10) - a chain of register-to-register moves",
		Program: []uint32{
			insts.ADDIU(insts.RegT0, insts.RegZero, 0),
			insts.ADDIU(insts.RegT1, insts.RegZero, 1),
			insts.ADDIU(insts.RegT2, insts.RegZero, 10),
			insts.ADDU(insts.RegT3, insts.RegT0, insts.RegT1), // loop
			insts.ADDU(insts.RegT0, insts.RegT1, insts.RegZero),
			insts.ADDU(insts.RegT1, insts.RegT3, insts.RegZero),
			insts.ADDIU(insts.RegT2, insts.RegT2, -1),
			insts.BNE(insts.RegT2, insts.RegZero, -5),
			insts.ADDU(insts.RegV0, insts.RegT0, insts.RegZero),
			insts.JR(insts.RegRA),
		},
		Expected: 55,
	}
}

// Multiply calls a shift-and-add subroutine for 17 * 5, saving $ra on the
// stack around the call.
func Multiply() Benchmark {
	return Benchmark{
		Name:        "multiply",
		Description: "17 * 5 in a called subroutine - JAL, stack traffic, shifts",
		Program: []uint32{
			insts.ADDIU(insts.RegSP, insts.RegSP, -4),
			insts.SW(insts.RegRA, 0, insts.RegSP),
			insts.ADDIU(insts.RegA0, insts.RegZero, 17),
			insts.ADDIU(insts.RegA1, insts.RegZero, 5),
			insts.JAL(0x24),
			insts.LW(insts.RegRA, 0, insts.RegSP),
			insts.ADDIU(insts.RegSP, insts.RegSP, 4),
			insts.JR(insts.RegRA),
			insts.NOP(),
			insts.ADDIU(insts.RegV0, insts.RegZero, 0), // 0x24 mul
			insts.BEQ(insts.RegA1, insts.RegZero, 6),
			insts.ANDI(insts.RegT0, insts.RegA1, 1), // loop
			insts.BEQ(insts.RegT0, insts.RegZero, 1),
			insts.ADDU(insts.RegV0, insts.RegV0, insts.RegA0),
			insts.SLL(insts.RegA0, insts.RegA0, 1),
			insts.SRL(insts.RegA1, insts.RegA1, 1),
			insts.BNE(insts.RegA1, insts.RegZero, -6),
			insts.JR(insts.RegRA),
		},
		Expected: 85,
	}
}
