// cm4gdbridge - GDB remote-serial bridge for ARM Cortex-M4 debug probes
//
// This tool serves GDB's Remote Serial Protocol over TCP, translating
// RSP commands into ARM debug-architecture register accesses against a
// target reached through a hardware debug probe. It also offers one-shot
// commands for halting, resuming, stepping, dumping memory, and loading
// firmware images.
package main

import (
	"fmt"
	"os"

	"github.com/daschewie/cm4gdbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
