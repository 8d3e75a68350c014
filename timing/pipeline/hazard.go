package pipeline

import (
	"fmt"
	"strings"

	"github.com/sarchlab/mipsim/insts"
)

// HazardPolicy selects how data hazards are resolved.
type HazardPolicy int

const (
	// HazardForwarding bypasses results from later stages and stalls only
	// on load-use dependencies.
	HazardForwarding HazardPolicy = iota
	// HazardStalling holds dependent instructions in decode until their
	// producers have written back.
	HazardStalling
)

func (h HazardPolicy) String() string {
	switch h {
	case HazardForwarding:
		return "forwarding"
	case HazardStalling:
		return "stalling"
	}
	return fmt.Sprintf("hazard-policy(%d)", int(h))
}

// ParseHazardPolicy converts a policy name into a HazardPolicy.
func ParseHazardPolicy(s string) (HazardPolicy, error) {
	switch strings.ToLower(s) {
	case "forwarding", "forward":
		return HazardForwarding, nil
	case "stalling", "stall":
		return HazardStalling, nil
	}
	return 0, fmt.Errorf("unknown hazard policy %q", s)
}

// sourceRegisters returns the registers inst reads. Operands the instruction
// does not use are reported as register 0, which never causes a hazard.
func sourceRegisters(inst *insts.Instruction) (rs, rt uint8) {
	switch inst.Op {
	case insts.OpJ, insts.OpJAL, insts.OpLUI:
		return 0, 0
	case insts.OpSLL, insts.OpSRL, insts.OpSRA:
		return 0, inst.Rt
	case insts.OpJR:
		return inst.Rs, 0
	case insts.OpBEQ, insts.OpBNE, insts.OpSW:
		return inst.Rs, inst.Rt
	}
	if inst.Format == insts.FormatR {
		return inst.Rs, inst.Rt
	}
	return inst.Rs, 0
}

// DependencyUnit tracks registers with a write in flight. Each register has
// at most one booking at a time; register 0 is never booked.
type DependencyUnit struct {
	booked [32]bool
	pc     [32]uint32
}

// NewDependencyUnit creates an empty dependency unit.
func NewDependencyUnit() *DependencyUnit {
	return &DependencyUnit{}
}

// Book records that the instruction at pc will write reg.
func (d *DependencyUnit) Book(reg uint8, pc uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	d.booked[reg] = true
	d.pc[reg] = pc
}

// Release clears the booking of reg.
func (d *DependencyUnit) Release(reg uint8) {
	if reg == 0 || reg >= 32 {
		return
	}
	d.booked[reg] = false
	d.pc[reg] = 0
}

// Booked reports whether reg has a write in flight.
func (d *DependencyUnit) Booked(reg uint8) bool {
	return reg != 0 && reg < 32 && d.booked[reg]
}

// Owner returns the PC of the instruction that booked reg.
func (d *DependencyUnit) Owner(reg uint8) (uint32, bool) {
	if !d.Booked(reg) {
		return 0, false
	}
	return d.pc[reg], true
}

// HasHazard reports whether either source register has a write in flight.
func (d *DependencyUnit) HasHazard(src1, src2 uint8) bool {
	return d.Booked(src1) || d.Booked(src2)
}

// InFlight returns the number of booked registers.
func (d *DependencyUnit) InFlight() int {
	n := 0
	for _, b := range d.booked {
		if b {
			n++
		}
	}
	return n
}

// Reset clears all bookings.
func (d *DependencyUnit) Reset() {
	*d = DependencyUnit{}
}

// StallUnit freezes fetch and decode for the current cycle.
type StallUnit struct {
	frozen bool
	pc     uint32
	cycles uint64
}

// NewStallUnit creates a stall unit.
func NewStallUnit() *StallUnit {
	return &StallUnit{}
}

// Stall freezes the front end on the instruction at pc.
func (s *StallUnit) Stall(pc uint32) {
	s.frozen = true
	s.pc = pc
	s.cycles++
}

// Frozen reports whether the front end is stalled this cycle.
func (s *StallUnit) Frozen() bool {
	return s.frozen
}

// StalledPC returns the PC of the instruction held in decode.
func (s *StallUnit) StalledPC() uint32 {
	return s.pc
}

// Resume unfreezes the front end at the end of a cycle.
func (s *StallUnit) Resume() {
	s.frozen = false
}

// Cycles returns the number of stalled cycles.
func (s *StallUnit) Cycles() uint64 {
	return s.cycles
}

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMA means forward from EX/MA pipeline register.
	ForwardFromEXMA
	// ForwardFromMAWB means forward from MA/WB pipeline register.
	ForwardFromMAWB
)

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	ForwardRs ForwardSource
	ForwardRt ForwardSource
}

// Any reports whether either operand is forwarded.
func (r ForwardingResult) Any() bool {
	return r.ForwardRs != ForwardNone || r.ForwardRt != ForwardNone
}

// ForwardingUnit selects bypass sources for the operands of the instruction
// entering execute.
type ForwardingUnit struct{}

// NewForwardingUnit creates a new forwarding unit.
func NewForwardingUnit() *ForwardingUnit {
	return &ForwardingUnit{}
}

// Detect determines if forwarding is needed for the ID/EX stage.
func (f *ForwardingUnit) Detect(
	idex *IDEXRegister,
	exma *EXMARegister,
	mawb *MAWBRegister,
) ForwardingResult {
	if !idex.Valid {
		return ForwardingResult{}
	}

	return ForwardingResult{
		ForwardRs: f.detectForReg(idex.Rs, exma, mawb),
		ForwardRt: f.detectForReg(idex.Rt, exma, mawb),
	}
}

func (f *ForwardingUnit) detectForReg(
	reg uint8,
	exma *EXMARegister,
	mawb *MAWBRegister,
) ForwardSource {
	if reg == 0 {
		return ForwardNone
	}

	// EX/MA holds the more recent value.
	if exma.writes() && exma.WriteReg == reg {
		return ForwardFromEXMA
	}

	if mawb.writes() && mawb.WriteReg == reg {
		return ForwardFromMAWB
	}

	return ForwardNone
}

// Value returns the operand value to use based on the forwarding decision.
func (f *ForwardingUnit) Value(
	src ForwardSource,
	original uint32,
	exma *EXMARegister,
	mawb *MAWBRegister,
) uint32 {
	switch src {
	case ForwardFromEXMA:
		return exma.ALUResult
	case ForwardFromMAWB:
		return mawb.Result()
	default:
		return original
	}
}

// DetectLoadUse reports whether the load in ID/EX writes a register that
// the instruction in decode reads. The loaded value reaches EX/MA too late
// to be forwarded, so decode must stall one cycle.
func (f *ForwardingUnit) DetectLoadUse(idex *IDEXRegister, rs, rt uint8) bool {
	if !idex.writes() || !idex.Control.MemRead {
		return false
	}
	return idex.WriteReg == rs || idex.WriteReg == rt
}
