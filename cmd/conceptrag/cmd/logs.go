package cmd

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/conceptrag/core/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		source  string
		lines   int
		follow  bool
		level   string
		pattern string
		noColor bool
		file    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Tail or follow conceptrag's debug logs",
		Long: `logs reads the JSON debug log conceptrag writes with --debug serve or
--debug seed. Source "mlx" reads the external mlx-embedding-server's log
instead; "all" merges both streams into one timestamp-ordered view.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, source, lines, follow, level, pattern, noColor, file)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&source, "source", "go", "log source to read: go, mlx, all")
	flags.IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	flags.BoolVarP(&follow, "follow", "f", false, "follow the log file for new entries")
	flags.StringVar(&level, "level", "", "filter by minimum level (debug, info, warn, error)")
	flags.StringVar(&pattern, "grep", "", "filter entries matching this regular expression")
	flags.BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	flags.StringVar(&file, "file", "", "explicit log file path (overrides --source)")

	return cmd
}

func runLogs(cmd *cobra.Command, source string, lines int, follow bool, level, pattern string, noColor bool, file string) error {
	paths, err := logging.FindLogFileBySource(logging.ParseLogSource(source), file)
	if err != nil {
		return exitWithCode(2, err)
	}

	var re *regexp.Regexp
	if pattern != "" {
		re, err = regexp.Compile(pattern)
		if err != nil {
			return exitWithCode(2, fmt.Errorf("invalid --grep pattern: %w", err))
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:      level,
		Pattern:    re,
		NoColor:    noColor,
		ShowSource: len(paths) > 1,
	}, cmd.OutOrStdout())

	var entries []logging.LogEntry
	if len(paths) == 1 {
		entries, err = viewer.Tail(paths[0], lines)
	} else {
		entries, err = viewer.TailMultiple(paths, lines)
	}
	if err != nil {
		return exitWithCode(4, err)
	}
	viewer.Print(entries)

	if !follow {
		return nil
	}

	ctx := cmd.Context()
	stream := make(chan logging.LogEntry, 64)
	errCh := make(chan error, 1)
	go func() {
		if len(paths) == 1 {
			errCh <- viewer.Follow(ctx, paths[0], stream)
		} else {
			errCh <- viewer.FollowMultiple(ctx, paths, stream)
		}
	}()

	for {
		select {
		case entry, ok := <-stream:
			if !ok {
				return nil
			}
			viewer.Print([]logging.LogEntry{entry})
		case err := <-errCh:
			if err != nil {
				fmt.Fprintln(os.Stderr, "logs:", err)
			}
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
