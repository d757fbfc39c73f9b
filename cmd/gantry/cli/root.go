// Package cli implements the gantry command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/gantry/slogger"
)

// Exit codes mirror the run's terminal status so scripts can branch on
// the result without parsing output.
const (
	ExitCompleted   = 0
	ExitFailed      = 1
	ExitEscalated   = 2
	ExitInterrupted = 3
	ExitUsage       = 4
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "gantry",
	Short:         "Gantry runs checkpointed AI workflow graphs",
	Long:          "Gantry executes workflow graphs of AI-delegated tasks with durable checkpoints, deterministic quality gates, and resumable runs.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level to use (debug, info, warn, error)")
}

func newLogger() slogger.Logger {
	return slogger.New(slogger.LevelFromString(logLevel))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if asExitError(err, &exitErr) {
			if exitErr.message != "" {
				printError(exitErr.message)
			}
			os.Exit(exitErr.code)
		}
		printError(err.Error())
		os.Exit(ExitUsage)
	}
}
