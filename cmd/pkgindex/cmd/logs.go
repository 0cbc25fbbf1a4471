package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pkgindex/internal/logging"
	"github.com/Aman-CERP/pkgindex/internal/ui"
)

type logsOptions struct {
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the debug log",
		Long: `Show the last lines of the log written by --debug runs
(~/.pkgindex/logs/pkgindex.log, or $PKGINDEX_HOME/logs/pkgindex.log).`,
		Example: `  pkgindex logs
  pkgindex logs -n 200 --level warn
  pkgindex logs --filter index_run_retry`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only lines matching this regular expression")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file to read instead of the default")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	cfg := logging.ViewerConfig{
		Level:   opts.level,
		NoColor: opts.noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()),
	}
	if opts.filter != "" {
		cfg.Pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(cfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}
