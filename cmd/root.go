package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hgcal-tools/simchain/internal/logging"
)

var (
	logLevel           string // Log verbosity level
	subprocessLogLevel string // Verbosity of the echoed child process output
	color              bool   // Colorize log prefixes

	// subprocessLog echoes driver output; configured in the root pre-run.
	subprocessLog = logrus.New()
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "simchain",
	Short: "Cached configuration driver and simulated-event inspection tools",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logging.Setup(os.Stderr, logLevel, color); err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		level, err := logrus.ParseLevel(subprocessLogLevel)
		if err != nil {
			logrus.Fatalf("Invalid subprocess log level: %s", subprocessLogLevel)
		}
		subprocessLog = logging.NewSubprocessLogger(os.Stderr, level, color)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up persistent flags; subcommands register themselves in their
// own files.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&subprocessLogLevel, "subprocess-log", "debug", "Level at which driver output is echoed (debug shows it, info hides it)")
	rootCmd.PersistentFlags().BoolVar(&color, "color", true, "Colorize log output")
}
