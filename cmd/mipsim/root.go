package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

type rootOptions struct {
	configPath string
	logLevel   string

	hazard    string
	predictor string
	icache    bool
	dcache    bool
	maxCycles uint64
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "mipsim",
		Short: "Cycle-accurate MIPS pipeline simulator",
		Long: `mipsim simulates an in-order 5-stage MIPS pipeline (IF, ID, EX, MA, WB)
with data forwarding or stalling, branch prediction and configurable caches.
Program images are big-endian MIPS ELF32 executables or raw word images.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (.json, .yaml or .yml)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.hazard, "hazard", "", "hazard policy: forwarding or stalling")
	flags.StringVar(&opts.predictor, "predictor", "", "branch predictor: none, always-taken, bimodal, two-level-local")
	flags.BoolVar(&opts.icache, "icache", true, "enable the instruction cache")
	flags.BoolVar(&opts.dcache, "dcache", true, "enable the data cache")
	flags.Uint64Var(&opts.maxCycles, "max-cycles", 0, "cycle limit per context (0 keeps the configured value)")

	root.AddCommand(
		newRunCmd(opts),
		newBenchCmd(opts),
		newConfigCmd(),
	)

	return root
}

// simulatorConfig loads the configuration file, if any, and applies the
// flags the user set explicitly.
func (o *rootOptions) simulatorConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("hazard") {
		cfg.HazardPolicy = o.hazard
	}
	if flags.Changed("predictor") {
		cfg.Predictor.Kind = o.predictor
	}
	if flags.Changed("icache") {
		cfg.ICache.Enabled = o.icache
	}
	if flags.Changed("dcache") {
		cfg.DCache.Enabled = o.dcache
	}
	if flags.Changed("max-cycles") {
		cfg.MaxCycles = o.maxCycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// logger builds a logger writing to the command's error stream. Colours are
// used only when that stream is a terminal.
func (o *rootOptions) logger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	w := cmd.ErrOrStderr()
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:      tty,
		DisableColors:    !tty,
		DisableTimestamp: true,
	})

	return logger, nil
}

func printStats(w io.Writer, name string, value int32, s pipeline.Statistics) {
	_, _ = fmt.Fprintf(w, "%s: result=%d\n", name, value)
	_, _ = fmt.Fprintf(w, "  cycles=%d instructions=%d cpi=%.3f\n", s.Cycles, s.Instructions, s.CPI())
	_, _ = fmt.Fprintf(w, "  stalls=%d forwards=%d flushes=%d\n", s.Stalls, s.Forwards, s.Flushes)
	if s.BranchPredictions > 0 {
		_, _ = fmt.Fprintf(w, "  branches=%d mispredictions=%d accuracy=%.1f%%\n",
			s.BranchPredictions, s.BranchMispredictions, s.BranchAccuracy())
	}
}
