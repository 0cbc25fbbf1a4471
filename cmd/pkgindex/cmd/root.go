// Package cmd provides the CLI commands for pkgindex.
package cmd

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pkgindex/internal/config"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/logging"
	"github.com/Aman-CERP/pkgindex/internal/profiling"
	"github.com/Aman-CERP/pkgindex/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	debug    bool
	dir      string
	profile  profiling.Options
	cleanup  func()
	profiler *profiling.Session
}

// NewRootCmd creates the root command for the pkgindex CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&globalOptions{})
}

func newRootCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgindex",
		Short: "Index Maven and PyPI repositories for search",
		Long: `pkgindex derives artifact coordinates from repository paths, groups
stored artifacts by coordinates and version, and builds one searchable
index per repository.

  pkgindex ingest releases     # parse and store the files of a repository
  pkgindex index releases      # build the repository index
  pkgindex search releases "artifact_id:commons-lang3"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("pkgindex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging to ~/.pkgindex/logs/")
	cmd.PersistentFlags().StringVarP(&g.dir, "dir", "C", ".", "Project directory holding .pkgindex.yaml")

	cmd.PersistentFlags().StringVar(&g.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Heap, "profile-mem", "", "Write heap profile to file on exit")
	cmd.PersistentFlags().StringVar(&g.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := g.startLogging(cmd); err != nil {
			return err
		}
		return g.startProfiling()
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return g.stop()
	}

	cmd.AddCommand(newIngestCmd(g))
	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (g *globalOptions) startLogging(cmd *cobra.Command) error {
	// Best effort: commands that need the config report load errors.
	settings := config.NewConfig().Logging
	if loaded, err := g.loadConfig(); err == nil {
		settings = loaded.Logging
	}

	if !g.debug {
		logging.SetupStderr(cmd.ErrOrStderr(), settings.Level)
		return nil
	}

	cfg := logging.DebugConfig()
	cfg.Stderr = nil
	cfg.MaxSizeMB = settings.MaxSizeMB
	cfg.MaxFiles = settings.MaxFiles
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	g.cleanup = cleanup
	slog.Info("debug_logging_enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version),
		slog.String("command", cmd.CommandPath()))
	return nil
}

func (g *globalOptions) startProfiling() error {
	if !g.profile.Enabled() {
		return nil
	}
	s, err := profiling.Start(g.profile)
	if err != nil {
		return err
	}
	g.profiler = s
	slog.Info("profiling_started",
		slog.String("cpu", g.profile.CPU),
		slog.String("heap", g.profile.Heap),
		slog.String("trace", g.profile.Trace))
	return nil
}

// stop ends profiling and logging. It runs after failed commands too, so it
// must tolerate repeated calls.
func (g *globalOptions) stop() error {
	var err error
	if g.profiler != nil {
		err = g.profiler.Stop()
		slog.Info("profiling_stopped",
			slog.String("heap_in_use", profiling.FormatBytes(profiling.HeapInUse())))
		g.profiler = nil
	}
	if g.cleanup != nil {
		slog.Info("debug_logging_stopped")
		g.cleanup()
		g.cleanup = nil
	}
	return err
}

// Execute runs the root command and prints failures for the terminal.
func Execute() error {
	g := &globalOptions{}
	root := newRootCmd(g)
	err := root.Execute()
	if err != nil && g.debug {
		logFailure(err)
	}
	if stopErr := g.stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, pkgerrors.FormatForCLI(err))
	}
	return err
}

// logFailure records err with its structured fields in the debug log.
func logFailure(err error) {
	fields := pkgerrors.FormatForLog(err)
	attrs := make([]any, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	slog.Error("command_failed", attrs...)
}
