package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Emulator", func() {
	var (
		mem *emu.Memory
		e   *emu.Emulator
	)

	load := func(words ...uint32) {
		Expect(mem.LoadWords(0, words)).To(Succeed())
	}

	BeforeEach(func() {
		mem = emu.NewMemory(0x10000)
		e = emu.NewEmulator(mem)
	})

	Describe("NewEmulator", func() {
		It("should reset registers with the stack at the top of memory", func() {
			Expect(e.RegFile().R[insts.RegSP]).To(Equal(uint32(0x10000)))
			Expect(e.RegFile().R[insts.RegRA]).To(Equal(emu.EndOfProgram))
			Expect(e.Memory()).To(BeIdenticalTo(mem))
		})
	})

	Describe("Run", func() {
		It("should return 0 for an empty program", func() {
			Expect(e.Run()).To(Equal(int32(0)))
			Expect(e.InstructionCount()).To(BeZero())
		})

		It("should stop when returning through $ra", func() {
			load(
				insts.ADDIU(insts.RegV0, insts.RegZero, 100),
				insts.JR(insts.RegRA),
				insts.ADDIU(insts.RegV0, insts.RegZero, 1),
			)

			Expect(e.Run()).To(Equal(int32(100)))
			Expect(e.InstructionCount()).To(Equal(uint64(2)))
		})

		It("should sum 1 to 100", func() {
			load(
				insts.ADDIU(insts.RegV0, insts.RegZero, 0),
				insts.ADDIU(insts.RegT0, insts.RegZero, 100),
				insts.ADDU(insts.RegV0, insts.RegV0, insts.RegT0),
				insts.ADDIU(insts.RegT0, insts.RegT0, -1),
				insts.BNE(insts.RegT0, insts.RegZero, -3),
				insts.JR(insts.RegRA),
			)

			Expect(e.Run()).To(Equal(int32(5050)))
		})

		It("should store and load through the stack", func() {
			load(
				insts.ADDIU(insts.RegSP, insts.RegSP, -8),
				insts.ADDIU(insts.RegT0, insts.RegZero, 42),
				insts.SW(insts.RegT0, 4, insts.RegSP),
				insts.LW(insts.RegV0, 4, insts.RegSP),
				insts.ADDIU(insts.RegSP, insts.RegSP, 8),
				insts.JR(insts.RegRA),
			)

			Expect(e.Run()).To(Equal(int32(42)))
			Expect(mem.ReadWord(0x10000 - 4)).To(Equal(uint32(42)))
		})

		It("should link JAL through $ra", func() {
			load(
				insts.JAL(0x10),
				insts.JR(insts.RegRA),
				insts.NOP(),
				insts.NOP(),
				insts.ADDU(insts.RegS0, insts.RegZero, insts.RegRA), // 0x10
				insts.ADDIU(insts.RegV0, insts.RegZero, 7),
				insts.LUI(insts.RegRA, 0xFFFF),
				insts.ORI(insts.RegRA, insts.RegRA, 0xFFFF),
				insts.JR(insts.RegS0),
			)

			Expect(e.Run()).To(Equal(int32(7)))
			Expect(e.RegFile().R[insts.RegS0]).To(Equal(uint32(4)))
		})

		It("should ignore writes to $zero", func() {
			load(
				insts.ADDIU(insts.RegZero, insts.RegZero, 9),
				insts.ADDU(insts.RegV0, insts.RegZero, insts.RegZero),
				insts.JR(insts.RegRA),
			)

			Expect(e.Run()).To(Equal(int32(0)))
			Expect(e.RegFile().R[0]).To(BeZero())
		})

		It("should report unsupported opcodes", func() {
			load(0xFC000000)

			_, err := e.Run()
			Expect(err).To(MatchError(insts.ErrUnsupportedOpcode))
		})

		It("should report out-of-range loads", func() {
			load(
				insts.LUI(insts.RegT0, 0x7000),
				insts.LW(insts.RegV0, 0, insts.RegT0),
			)

			_, err := e.Run()
			Expect(err).To(MatchError(emu.ErrAddressOutOfRange))
		})

		It("should stop at the instruction limit", func() {
			e = emu.NewEmulator(mem, emu.WithMaxInstructions(10))
			load(insts.J(0))

			_, err := e.Run()
			Expect(err).To(MatchError(emu.ErrInstructionLimit))
			Expect(e.InstructionCount()).To(Equal(uint64(10)))
		})
	})

	Describe("Step", func() {
		It("should advance the PC by one instruction", func() {
			load(insts.ADDIU(insts.RegT0, insts.RegZero, 1), insts.JR(insts.RegRA))

			result := e.Step()
			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Exited).To(BeFalse())
			Expect(e.RegFile().PC).To(Equal(uint32(4)))

			result = e.Step()
			Expect(result.Exited).To(BeTrue())
		})
	})
})
