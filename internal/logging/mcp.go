package logging

import (
	"log/slog"
)

// SetupMCPModeWithLevel initializes logging for MCP server mode at the given
// level. This is critical for MCP protocol compliance: the stdio transport
// requires stdout to be used EXCLUSIVELY for JSON-RPC, so this logs only to
// file and never to stdout/stderr — any other write during MCP operation
// corrupts the protocol stream and surfaces as a "Failed to connect" error
// on the client side.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false, // CRITICAL: Never write to stderr in MCP mode
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}
