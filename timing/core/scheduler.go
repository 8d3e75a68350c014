package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/timing/pipeline"
)

// Result is the outcome of one program context.
type Result struct {
	// Name is the context name.
	Name string
	// Value is the program result, valid when Err is nil.
	Value int32
	// Cycles is the number of cycles the context's pipeline simulated.
	Cycles uint64
	// Stats holds the context's pipeline statistics.
	Stats pipeline.Statistics
	// Err is the error that retired the context, if any.
	Err error
}

// SchedulerOption is a functional option for configuring the Scheduler.
type SchedulerOption func(*Scheduler)

// RoundRobin gives every live context one cycle per round. This is the
// default.
func RoundRobin() SchedulerOption {
	return func(s *Scheduler) {
		s.quantum = 1
	}
}

// TimeSlice gives every live context quantum consecutive cycles per round.
func TimeSlice(quantum uint64) SchedulerOption {
	return func(s *Scheduler) {
		if quantum == 0 {
			quantum = 1
		}
		s.quantum = quantum
	}
}

// WithHoldOnStall keeps a context selected past its slice while its front
// end is stalled or being flushed.
func WithHoldOnStall() SchedulerOption {
	return func(s *Scheduler) {
		s.holdOnStall = true
	}
}

// WithLogger sets the logger for context events.
func WithLogger(logger logrus.FieldLogger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// Scheduler time-shares the simulation loop across independent program
// contexts. Contexts never share state, so the interleaving affects only
// the order of work, not the results.
type Scheduler struct {
	cores       []*Core
	quantum     uint64
	holdOnStall bool
	logger      logrus.FieldLogger

	cycles   uint64
	switches uint64
}

// NewScheduler creates a scheduler over cores, which are served in order.
func NewScheduler(cores []*Core, opts ...SchedulerOption) *Scheduler {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	s := &Scheduler{
		cores:   cores,
		quantum: 1,
		logger:  quiet,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Cycles returns the total number of cycles issued across all contexts.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles
}

// Switches returns the number of times the scheduler moved to another
// context.
func (s *Scheduler) Switches() uint64 {
	return s.switches
}

// Run executes every context until it halts or fails. Results are returned
// in the order the cores were given. A failing context is retired on its own
// and the others keep running; the returned error joins all failures.
func (s *Scheduler) Run() ([]Result, error) {
	results := make([]Result, len(s.cores))
	live := make([]int, 0, len(s.cores))

	for i, c := range s.cores {
		results[i].Name = c.Name()
		if c.Halted() {
			s.retire(i, results, nil)
			continue
		}
		live = append(live, i)
	}

	next := 0
	for len(live) > 0 {
		if next >= len(live) {
			next = 0
		}

		idx := live[next]
		done, err := s.runSlice(s.cores[idx])
		if !done {
			next++
			s.switches++
			continue
		}

		s.retire(idx, results, err)
		live = append(live[:next], live[next+1:]...)
		s.switches++
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("context %s: %w", r.Name, r.Err))
		}
	}

	return results, errors.Join(errs...)
}

// runSlice issues up to one quantum of cycles to c. It returns true once c
// has halted or failed.
func (s *Scheduler) runSlice(c *Core) (bool, error) {
	for n := uint64(0); n < s.quantum || (s.holdOnStall && c.Busy()); n++ {
		s.cycles++
		if err := c.Tick(); err != nil {
			return true, err
		}
		if c.Halted() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Scheduler) retire(idx int, results []Result, err error) {
	c := s.cores[idx]
	stats := c.Stats()

	results[idx].Cycles = stats.Cycles
	results[idx].Stats = stats
	results[idx].Err = err
	if err == nil {
		results[idx].Value = c.Result()
	}

	fields := logrus.Fields{
		"context": c.Name(),
		"cycles":  stats.Cycles,
		"retired": stats.Instructions,
	}
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Warn("context failed")
		return
	}
	s.logger.WithFields(fields).WithField("result", results[idx].Value).Info("context halted")
}
