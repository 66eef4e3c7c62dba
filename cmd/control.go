package cmd

import (
	"fmt"

	"github.com/daschewie/cm4gdbridge/pkg/armdebug"
	"github.com/daschewie/cm4gdbridge/pkg/connection"
	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
	"github.com/spf13/cobra"
)

var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Halt the core and report its program counter",
	Long: `Halt the Cortex-M4 core via DHCSR and print the program counter it
stopped at.

Example:
  cm4gdbridge halt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(e *armdebug.Engine) error {
			info, err := e.Halt()
			if err != nil {
				return fmt.Errorf("failed to halt core: %w", err)
			}
			fmt.Printf("Halted at PC=0x%08X\n", info.PC)
			return nil
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume core execution",
	Long: `Clear DHCSR.C_HALT and let the core run freely.

Example:
  cm4gdbridge resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(e *armdebug.Engine) error {
			if err := e.Run(); err != nil {
				return fmt.Errorf("failed to resume core: %w", err)
			}
			printInfo("Core running.\n")
			return nil
		})
	},
}

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Single-step one instruction",
	Long: `Execute exactly one instruction with interrupts masked and print the
resulting program counter.

Example:
  cm4gdbridge step`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(e *armdebug.Engine) error {
			info, err := e.Step()
			if err != nil {
				return fmt.Errorf("failed to step core: %w", err)
			}
			fmt.Printf("Stepped to PC=0x%08X\n", info.PC)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the core and halt it at the reset vector",
	Long: `Arm a core reset, wait for the core to halt, and print the program
counter it halted at. The Thumb state bit is restored if the reset vector
cleared it.

Example:
  cm4gdbridge reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(e *armdebug.Engine) error {
			info, err := e.ResetAndHalt()
			if err != nil {
				return fmt.Errorf("failed to reset core: %w", err)
			}
			fmt.Printf("Reset, halted at PC=0x%08X\n", info.PC)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(resetCmd)
}

// withEngine opens a short-lived probe connection, constructs a debug
// engine over it, and runs fn before closing the connection. Each one-shot
// control command uses this rather than holding a connection across
// commands, since no GDB session is attached.
func withEngine(fn func(e *armdebug.Engine) error) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	prober := memprobe.NewProber(conn)
	engine := armdebug.NewEngine(prober)

	return fn(engine)
}
