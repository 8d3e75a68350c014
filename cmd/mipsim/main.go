// Command mipsim runs MIPS programs on a cycle-accurate model of a 5-stage
// pipeline.
//
// Usage:
//
//	mipsim run [flags] image...
//	mipsim bench [flags]
//	mipsim config init <path>
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
