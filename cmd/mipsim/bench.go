package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/mipsim/benchmarks"
)

func newBenchCmd(root *rootOptions) *cobra.Command {
	var csv, asJSON bool

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in sample programs and report timing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.simulatorConfig(cmd)
			if err != nil {
				return err
			}

			harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
				Config: cfg,
				Output: cmd.OutOrStdout(),
			})
			harness.AddBenchmarks(benchmarks.Programs())

			results, err := harness.RunAll()
			if err != nil {
				return err
			}

			switch {
			case asJSON:
				return harness.PrintJSON(results)
			case csv:
				harness.PrintCSV(results)
			default:
				harness.PrintResults(results)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&csv, "csv", false, "print results as CSV")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as a JSON report")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")

	return cmd
}
