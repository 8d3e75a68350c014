package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("ParseHazardPolicy", func() {
	It("should accept both policy names", func() {
		Expect(pipeline.ParseHazardPolicy("stalling")).To(Equal(pipeline.HazardStalling))
		Expect(pipeline.ParseHazardPolicy("Forwarding")).To(Equal(pipeline.HazardForwarding))
	})

	It("should reject unknown names", func() {
		_, err := pipeline.ParseHazardPolicy("speculate")
		Expect(err).To(HaveOccurred())
	})

	It("should round-trip through String", func() {
		for _, p := range []pipeline.HazardPolicy{pipeline.HazardForwarding, pipeline.HazardStalling} {
			Expect(pipeline.ParseHazardPolicy(p.String())).To(Equal(p))
		}
	})
})

var _ = Describe("DependencyUnit", func() {
	var deps *pipeline.DependencyUnit

	BeforeEach(func() {
		deps = pipeline.NewDependencyUnit()
	})

	It("should start with nothing in flight", func() {
		Expect(deps.InFlight()).To(Equal(0))
		Expect(deps.HasHazard(insts.RegT0, insts.RegT1)).To(BeFalse())
	})

	It("should track a booking until it is released", func() {
		deps.Book(insts.RegT0, 0x40)

		Expect(deps.Booked(insts.RegT0)).To(BeTrue())
		Expect(deps.HasHazard(insts.RegT1, insts.RegT0)).To(BeTrue())
		owner, ok := deps.Owner(insts.RegT0)
		Expect(ok).To(BeTrue())
		Expect(owner).To(Equal(uint32(0x40)))

		deps.Release(insts.RegT0)
		Expect(deps.Booked(insts.RegT0)).To(BeFalse())
		_, ok = deps.Owner(insts.RegT0)
		Expect(ok).To(BeFalse())
	})

	It("should never book $zero", func() {
		deps.Book(insts.RegZero, 0x40)
		Expect(deps.Booked(insts.RegZero)).To(BeFalse())
		Expect(deps.InFlight()).To(Equal(0))
	})

	It("should clear all bookings on reset", func() {
		deps.Book(insts.RegT0, 0)
		deps.Book(insts.RegT1, 4)
		Expect(deps.InFlight()).To(Equal(2))

		deps.Reset()
		Expect(deps.InFlight()).To(Equal(0))
	})
})

var _ = Describe("StallUnit", func() {
	It("should freeze until resumed and count cycles", func() {
		s := pipeline.NewStallUnit()
		Expect(s.Frozen()).To(BeFalse())

		s.Stall(0x10)
		Expect(s.Frozen()).To(BeTrue())
		Expect(s.StalledPC()).To(Equal(uint32(0x10)))

		s.Resume()
		Expect(s.Frozen()).To(BeFalse())

		s.Stall(0x10)
		Expect(s.Cycles()).To(Equal(uint64(2)))
	})
})

var _ = Describe("ForwardingUnit", func() {
	var (
		fwd   *pipeline.ForwardingUnit
		idex  *pipeline.IDEXRegister
		exma  *pipeline.EXMARegister
		mawb  *pipeline.MAWBRegister
		write = insts.ControlSignal{RegWrite: true}
	)

	BeforeEach(func() {
		fwd = pipeline.NewForwardingUnit()
		idex = &pipeline.IDEXRegister{Valid: true, Rs: insts.RegT0, Rt: insts.RegT1}
		exma = &pipeline.EXMARegister{}
		mawb = &pipeline.MAWBRegister{}
	})

	Context("when no later instruction writes a source", func() {
		It("should not forward", func() {
			result := fwd.Detect(idex, exma, mawb)
			Expect(result.Any()).To(BeFalse())
		})
	})

	Context("when EX/MA writes rs", func() {
		It("should forward rs from EX/MA", func() {
			*exma = pipeline.EXMARegister{Valid: true, Control: write, WriteReg: insts.RegT0, ALUResult: 11}

			result := fwd.Detect(idex, exma, mawb)
			Expect(result.ForwardRs).To(Equal(pipeline.ForwardFromEXMA))
			Expect(result.ForwardRt).To(Equal(pipeline.ForwardNone))
			Expect(fwd.Value(result.ForwardRs, 0, exma, mawb)).To(Equal(uint32(11)))
		})
	})

	Context("when MA/WB writes rt", func() {
		It("should forward the loaded value for a load", func() {
			*mawb = pipeline.MAWBRegister{
				Valid:     true,
				Control:   insts.ControlSignals(insts.OpLW),
				WriteReg:  insts.RegT1,
				ALUResult: 0x100,
				MemData:   99,
			}

			result := fwd.Detect(idex, exma, mawb)
			Expect(result.ForwardRt).To(Equal(pipeline.ForwardFromMAWB))
			Expect(fwd.Value(result.ForwardRt, 0, exma, mawb)).To(Equal(uint32(99)))
		})
	})

	Context("when both later stages write the same register", func() {
		It("should prefer the younger EX/MA value", func() {
			*exma = pipeline.EXMARegister{Valid: true, Control: write, WriteReg: insts.RegT0, ALUResult: 2}
			*mawb = pipeline.MAWBRegister{Valid: true, Control: write, WriteReg: insts.RegT0, ALUResult: 1}

			result := fwd.Detect(idex, exma, mawb)
			Expect(result.ForwardRs).To(Equal(pipeline.ForwardFromEXMA))
			Expect(fwd.Value(result.ForwardRs, 0, exma, mawb)).To(Equal(uint32(2)))
		})
	})

	It("should never forward $zero", func() {
		idex.Rs = insts.RegZero
		*exma = pipeline.EXMARegister{Valid: true, Control: write, WriteReg: insts.RegZero, ALUResult: 5}

		Expect(fwd.Detect(idex, exma, mawb).ForwardRs).To(Equal(pipeline.ForwardNone))
	})

	It("should ignore bubbles", func() {
		*exma = pipeline.EXMARegister{Control: write, WriteReg: insts.RegT0}
		Expect(fwd.Detect(idex, exma, mawb).Any()).To(BeFalse())
	})

	Describe("DetectLoadUse", func() {
		It("should flag a load feeding the next instruction", func() {
			load := &pipeline.IDEXRegister{
				Valid:    true,
				Control:  insts.ControlSignals(insts.OpLW),
				WriteReg: insts.RegT1,
			}
			Expect(fwd.DetectLoadUse(load, insts.RegT0, insts.RegT1)).To(BeTrue())
			Expect(fwd.DetectLoadUse(load, insts.RegT2, insts.RegZero)).To(BeFalse())
		})

		It("should not flag ALU producers", func() {
			alu := &pipeline.IDEXRegister{Valid: true, Control: write, WriteReg: insts.RegT1}
			Expect(fwd.DetectLoadUse(alu, insts.RegT1, 0)).To(BeFalse())
		})
	})
})
