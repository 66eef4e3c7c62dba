package cmd

import (
	"fmt"

	"github.com/daschewie/cm4gdbridge/pkg/connection"
	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
	"github.com/daschewie/cm4gdbridge/pkg/symbols"
	"github.com/daschewie/cm4gdbridge/pkg/util"
	"github.com/spf13/cobra"
)

var symbolFile string

var lookupCmd = &cobra.Command{
	Use:   "lookup <symbol>",
	Short: "Display memory at a symbol's address",
	Long: `Look up a symbol in a symbol file and display memory at that address.

The symbol file holds lines of the form "NAME = ADDRESS" (hex, with an
optional 0x prefix), the common shape of a GNU linker map or a hand-written
symbol list. ';' and '#' start a line comment.

Example:
  cm4gdbridge lookup g_state --symbol-file firmware.sym --count 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lookupSymbol(args[0])
	},
}

var derefCmd = &cobra.Command{
	Use:   "deref <symbol>",
	Short: "Dereference the pointer stored at a symbol and display target memory",
	Long: `Look up a symbol, read the 32-bit little-endian pointer stored there,
and display memory at the dereferenced address. Useful for following
pointers in firmware data structures.

Example:
  cm4gdbridge deref g_buffer_ptr --symbol-file firmware.sym --count 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return derefSymbol(args[0])
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(derefCmd)

	lookupCmd.Flags().StringVar(&symbolFile, "symbol-file", "", "Symbol file (NAME = ADDRESS lines)")
	lookupCmd.Flags().StringVar(&dumpCount, "count", "10", "Number of bytes to display (hex)")

	derefCmd.Flags().StringVar(&symbolFile, "symbol-file", "", "Symbol file (NAME = ADDRESS lines)")
	derefCmd.Flags().StringVar(&dumpCount, "count", "10", "Number of bytes to display (hex)")
}

func loadSymbolTable() (*symbols.Table, error) {
	file := symbolFile
	if file == "" {
		file = cfg.LabelFile
	}

	table := symbols.New()
	if err := table.Load(file); err != nil {
		return nil, fmt.Errorf("failed to load symbol file: %w", err)
	}
	return table, nil
}

func openProber() (*memprobe.Prober, func(), error) {
	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return nil, nil, fmt.Errorf("failed to open connection: %w", err)
	}
	return memprobe.NewProber(conn), func() { conn.Close() }, nil
}

func lookupSymbol(name string) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	table, err := loadSymbolTable()
	if err != nil {
		return err
	}

	address, err := table.Lookup(name)
	if err != nil {
		return err
	}

	count, err := util.ParseHexSize(dumpCount)
	if err != nil {
		return fmt.Errorf("invalid count: %w", err)
	}

	printInfo("Symbol %q -> address 0x%08X\n", name, address)

	prober, closeConn, err := openProber()
	if err != nil {
		return err
	}
	defer closeConn()

	data := make([]byte, count)
	if err := prober.ReadBlock8(address, data); err != nil {
		return fmt.Errorf("failed to read memory: %w", err)
	}

	util.HexDump(data, address)
	return nil
}

func derefSymbol(name string) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	table, err := loadSymbolTable()
	if err != nil {
		return err
	}

	count, err := util.ParseHexSize(dumpCount)
	if err != nil {
		return fmt.Errorf("invalid count: %w", err)
	}

	prober, closeConn, err := openProber()
	if err != nil {
		return err
	}
	defer closeConn()

	targetAddress, err := table.Deref(name, prober)
	if err != nil {
		return fmt.Errorf("failed to dereference %q: %w", name, err)
	}
	printInfo("Symbol %q -> pointer value 0x%08X\n", name, targetAddress)

	data := make([]byte, count)
	if err := prober.ReadBlock8(targetAddress, data); err != nil {
		return fmt.Errorf("failed to read dereferenced memory: %w", err)
	}

	util.HexDump(data, targetAddress)
	return nil
}
