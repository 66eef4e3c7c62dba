// Package cmd implements all CLI commands for cm4gdbridge
package cmd

import (
	"fmt"
	"os"

	"github.com/daschewie/cm4gdbridge/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Global configuration instance
	cfg *config.Config

	// Global flags
	portFlag  string
	quietFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cm4gdbridge",
	Short: "cm4gdbridge - GDB remote-serial bridge for ARM Cortex-M4 debug probes",
	Long: `cm4gdbridge bridges a GDB client speaking the Remote Serial Protocol to an
ARM Cortex-M4 microcontroller reached through a hardware debug probe.

It translates RSP commands into ARM debug-architecture register accesses
over the probe's memory interface, and also offers one-shot commands for
halting, resuming, stepping, dumping memory, and loading firmware images
without starting the GDB server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Override port from flag if specified
		if portFlag != "" {
			cfg.Port = portFlag
		}

		// Quiet mode is handled by printInfo() helper function throughout the codebase
		// (suppresses informational output when quietFlag is true)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&portFlag, "port", "", "Debug probe address: serial device or TCP address (e.g., /dev/ttyUSB0, COM3, 192.168.1.50:2331)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Suppress informational output")

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper function to check if connection flags are valid
func validateConnectionFlags() error {
	if cfg.Port == "" && portFlag == "" {
		return fmt.Errorf("no probe address specified (use --port flag or set in cm4gdbridge.ini)")
	}
	return nil
}

// Helper function for printing output (respects quiet mode)
func printInfo(format string, args ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, args...)
	}
}

// Helper function for printing errors (always shown)
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
