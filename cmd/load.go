package cmd

import (
	"fmt"

	"github.com/daschewie/cm4gdbridge/pkg/connection"
	"github.com/daschewie/cm4gdbridge/pkg/firmware"
	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
	"github.com/daschewie/cm4gdbridge/pkg/util"
	"github.com/spf13/cobra"
)

var loadForce bool

var loadCmd = &cobra.Command{
	Use:   "load <image-file>",
	Short: "Load an Intel HEX or SREC firmware image into target RAM",
	Long: `Parse a firmware image (Intel HEX or Motorola SREC, selected by file
extension) and write its contents into target memory through the debug
probe. Prints the CRC32 of the bytes written when done.

Example:
  cm4gdbridge load firmware.hex
  cm4gdbridge load firmware.hex --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return loadFirmware(args[0])
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&loadForce, "force", false, "Skip the confirmation prompt")
}

func loadFirmware(path string) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	if !loadForce && !util.Confirm(fmt.Sprintf("Write %s into target memory? (y/n): ", path)) {
		printInfo("Operation cancelled.\n")
		return nil
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	prober := memprobe.NewProber(conn)

	printInfo("Loading %s...\n", path)
	crc, err := firmware.LoadFile(path, prober)
	if err != nil {
		return fmt.Errorf("failed to load firmware: %w", err)
	}

	printInfo("Load complete. CRC32: %08X\n", crc)
	return nil
}
