package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// Global flags, applied on top of the config file when set explicitly.
var (
	configPath     string
	logLevel       string
	verbose        bool
	connectTimeout time.Duration
	readTimeout    time.Duration
	outputFormat   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "oralb",
	Short: "Oral-B toothbrush BLE client",
	Long: `Command-line client for Oral-B Bluetooth toothbrushes:

- Read model, battery, brush state, mode, brushing time and clock
- Follow live battery, state, mode and brushing time updates
- Set the handle clock and the list of available brushing modes
- Dump the brushing session history

The toothbrush advertises only while awake; press the power button before connecting.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("oralb {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(clockCmd)
	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(sessionsCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.config/oralb/config.yaml when present)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&verbose, "verbose", false, "Shortcut for --log-level debug")
	flags.DurationVar(&connectTimeout, "timeout", 30*time.Second, "Connection timeout")
	flags.DurationVar(&readTimeout, "read-timeout", 5*time.Second, "Per-request timeout, 0 waits for the link")
	flags.StringVarP(&outputFormat, "output", "o", "text", "Output format: text or json")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
