// Package trace renders per-cycle pipeline snapshots through logrus.
package trace

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/timing/pipeline"
)

const bubble = "-"

// CycleLogger is a pipeline.Observer that logs one entry per cycle.
type CycleLogger struct {
	logger logrus.FieldLogger
	level  logrus.Level
}

// NewCycleLogger creates a cycle logger that writes entries to logger at
// the debug level.
func NewCycleLogger(logger logrus.FieldLogger) *CycleLogger {
	return &CycleLogger{logger: logger, level: logrus.DebugLevel}
}

// WithLevel sets the level entries are logged at.
func (l *CycleLogger) WithLevel(level logrus.Level) *CycleLogger {
	l.level = level
	return l
}

// ObserveCycle implements pipeline.Observer.
func (l *CycleLogger) ObserveCycle(s pipeline.CycleSnapshot) {
	entry := l.logger.WithFields(Fields(s))

	msg := "cycle"
	switch {
	case s.Halted:
		msg = "halt"
	case s.Stalled:
		msg = "stall"
	case s.Resolution.Mispredicted:
		msg = "mispredict"
	}

	switch l.level {
	case logrus.TraceLevel:
		entry.Trace(msg)
	case logrus.InfoLevel:
		entry.Info(msg)
	default:
		entry.Debug(msg)
	}
}

// Fields returns the structured fields describing one cycle.
func Fields(s pipeline.CycleSnapshot) logrus.Fields {
	fields := logrus.Fields{
		"cycle": s.Cycle,
		"pc":    fmt.Sprintf("0x%08x", s.PC),
		"if":    describeIFID(&s.IFID),
		"id":    describeIDEX(&s.IDEX),
		"ex":    describeEXMA(&s.EXMA),
		"ma":    describeMAWB(&s.MAWB),
		"wb":    describeMAWB(&s.WriteBack),
	}

	if s.Retired && s.WriteBack.Control.RegWrite && s.WriteBack.WriteReg != 0 {
		fields["write"] = fmt.Sprintf("$%d=0x%08x", s.WriteBack.WriteReg, s.WriteBack.Result())
	}

	return fields
}

func describeIFID(r *pipeline.IFIDRegister) string {
	if !r.Valid {
		return bubble
	}
	return fmt.Sprintf("0x%08x", r.InstructionWord)
}

func describeIDEX(r *pipeline.IDEXRegister) string {
	if !r.Valid {
		return bubble
	}
	return r.Inst.String()
}

func describeEXMA(r *pipeline.EXMARegister) string {
	if !r.Valid {
		return bubble
	}
	return r.Inst.String()
}

func describeMAWB(r *pipeline.MAWBRegister) string {
	if !r.Valid {
		return bubble
	}
	return r.Inst.String()
}
