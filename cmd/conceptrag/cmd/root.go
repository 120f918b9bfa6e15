// Package cmd provides the CLI commands for conceptrag.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/conceptrag/core/internal/logging"
	"github.com/conceptrag/core/pkg/version"
)

// Debug logging flag, wired as a persistent --debug flag on the root command.
var (
	debugMode      bool
	loggingCleanup func()
)

// exitError carries a specific process exit code up through cobra's plain
// error return, following the 0/2/3/4 exit code contract (cobra itself only
// gives us success-or-failure).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitWithCode wraps err so Execute reports the given process exit code.
// A nil err becomes a nil result.
func exitWithCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// NewRootCmd creates the root command for the conceptrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conceptrag",
		Short: "Local-first conceptual retrieval system for document corpora",
		Long: `conceptrag seeds a directory of books, papers, and notes into a hybrid
search index (BM25 + semantic + concept) and serves it to AI assistants
over MCP.

Run 'conceptrag seed --filesdir <path>' once to build the index, then
'conceptrag serve' to expose it.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: startLogging,
		PersistentPostRunE: func(c *cobra.Command, args []string) error {
			stopLogging()
			return nil
		},
	}

	cmd.SetVersionTemplate("conceptrag version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.conceptrag/logs/")

	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command and returns the process exit code, mapping
// an *exitError to its carried code and any other error to 1.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return 1
	}
	return 0
}
