package cmd

import (
	"fmt"

	"github.com/daschewie/cm4gdbridge/pkg/connection"
	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
	"github.com/daschewie/cm4gdbridge/pkg/util"
	"github.com/spf13/cobra"
)

var (
	dumpAddress string
	dumpCount   string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Read and display target memory from a specified address",
	Long: `Read a block of memory through the debug probe and display it in hex
dump format. Unlike halt/step/reset, this does not require the core to be
halted: the probe's memory interface reads the bus directly.

Example:
  cm4gdbridge dump --address 20000000 --count 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConnectionFlags(); err != nil {
			return err
		}

		if dumpAddress == "" {
			dumpAddress = cfg.Address
		}
		if dumpCount == "" {
			dumpCount = "10"
		}

		addr, err := util.ParseHexAddress(dumpAddress)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}

		count, err := util.ParseHexSize(dumpCount)
		if err != nil {
			return fmt.Errorf("invalid count: %w", err)
		}

		conn := connection.NewConnection(cfg.Port)
		if err := conn.Open(cfg.Port); err != nil {
			return fmt.Errorf("failed to open connection: %w", err)
		}
		defer conn.Close()

		prober := memprobe.NewProber(conn)

		data := make([]byte, count)
		if err := prober.ReadBlock8(addr, data); err != nil {
			return fmt.Errorf("failed to read memory: %w", err)
		}

		util.HexDump(data, addr)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpAddress, "address", "", "Starting address (hex, e.g., 20000000)")
	dumpCmd.Flags().StringVar(&dumpCount, "count", "10", "Number of bytes to read (hex, e.g., 100)")
}
