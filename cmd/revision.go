package cmd

import (
	"errors"
	"fmt"

	"github.com/daschewie/cm4gdbridge/pkg/armdebug"
	"github.com/daschewie/cm4gdbridge/pkg/connection"
	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
	"github.com/spf13/cobra"
)

var revisionCmd = &cobra.Command{
	Use:   "revision",
	Short: "Report the target's FPB (Flash Patch and Breakpoint) revision",
	Long: `Read FP_CTRL and report the number of hardware breakpoint units. Only
FPB revision 0 is supported by this bridge; for any other revision the
command reports it as unsupported, and hardware breakpoints cannot be used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		units, err := engine.GetAvailableBreakpointUnits()
		if err != nil {
			if errors.Is(err, armdebug.ErrUnsupportedRevision) {
				fmt.Println("unsupported FPB revision")
				return nil
			}
			return fmt.Errorf("failed to read FP_CTRL: %w", err)
		}

		fmt.Printf("FPB revision 0, %d hardware breakpoint unit(s) available\n", units)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revisionCmd)
}
