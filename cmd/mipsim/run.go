package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
	"github.com/sarchlab/mipsim/timing/trace"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		traceCycles bool
		emulate     bool
	)

	cmd := &cobra.Command{
		Use:   "run image...",
		Short: "Run one or more program images",
		Long: `Run loads each image into its own memory and simulates it to completion.
Several images run as independent contexts sharing the simulation loop.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.simulatorConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := root.logger(cmd)
			if err != nil {
				return err
			}

			if emulate {
				return runEmulation(cmd, cfg, args)
			}

			var cores []*core.Core
			for _, path := range args {
				c, err := newContext(cfg, path, logger, traceCycles)
				if err != nil {
					return err
				}
				cores = append(cores, c)
			}

			return runTiming(cmd, cfg, cores, logger)
		},
	}

	cmd.Flags().BoolVar(&traceCycles, "trace", false, "log every pipeline cycle at debug level")
	cmd.Flags().BoolVar(&emulate, "emulate", false, "run the functional emulator instead of the pipeline")

	return cmd
}

func loadImage(cfg *config.Config, path string) (*emu.Memory, uint32, error) {
	prog, err := loader.Load(path)
	if err != nil {
		return nil, 0, err
	}

	memory := emu.NewMemory(cfg.MemorySize)
	entry, err := prog.LoadInto(memory)
	if err != nil {
		return nil, 0, fmt.Errorf("loading %s: %w", path, err)
	}

	return memory, entry, nil
}

func newContext(cfg *config.Config, path string, logger *logrus.Logger, traceCycles bool) (*core.Core, error) {
	memory, entry, err := loadImage(cfg, path)
	if err != nil {
		return nil, err
	}

	regFile := emu.NewRegFile(memory.Size())
	regFile.PC = entry

	opts, err := cfg.PipelineOptions(memory)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	if traceCycles {
		tracer := trace.NewCycleLogger(logger.WithField("context", name))
		opts = append(opts, pipeline.WithObserver(tracer))
	}

	logger.WithFields(logrus.Fields{
		"context": name,
		"entry":   fmt.Sprintf("0x%08x", entry),
	}).Debug("loaded")

	return core.NewCore(name, regFile, memory, opts...), nil
}

func runTiming(cmd *cobra.Command, cfg *config.Config, cores []*core.Core, logger *logrus.Logger) error {
	out := cmd.OutOrStdout()

	if len(cores) == 1 {
		c := cores[0]
		value, err := c.Run()
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
		printStats(out, c.Name(), value, c.Stats())
		return nil
	}

	opts := append(cfg.SchedulerOptions(), core.WithLogger(logger))
	scheduler := core.NewScheduler(cores, opts...)
	results, err := scheduler.Run()

	for _, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(out, "%s: error: %v\n", r.Name, r.Err)
			continue
		}
		printStats(out, r.Name, r.Value, r.Stats)
	}
	_, _ = fmt.Fprintf(out, "total cycles=%d\n", scheduler.Cycles())

	return err
}

func runEmulation(cmd *cobra.Command, cfg *config.Config, paths []string) error {
	out := cmd.OutOrStdout()

	for _, path := range paths {
		memory, entry, err := loadImage(cfg, path)
		if err != nil {
			return err
		}

		regFile := emu.NewRegFile(memory.Size())
		regFile.PC = entry

		e := emu.NewEmulator(memory, emu.WithRegFile(regFile), emu.WithMaxInstructions(cfg.MaxCycles))
		value, err := e.Run()
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		_, _ = fmt.Fprintf(out, "%s: result=%d\n", filepath.Base(path), value)
		_, _ = fmt.Fprintf(out, "  instructions=%d\n", e.InstructionCount())
	}

	return nil
}
