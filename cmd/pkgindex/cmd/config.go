package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/pkgindex/configs"
	"github.com/Aman-CERP/pkgindex/internal/config"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/output"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage pkgindex configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/pkgindex/config.yaml)
  3. Project config (.pkgindex.yaml)
  4. Environment variables (PKGINDEX_*)`,
		Example: `  pkgindex config init
  pkgindex config init --project
  pkgindex config show --json
  pkgindex config restore --project
  pkgindex config path`,
	}

	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigRestoreCmd(g))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Create the user configuration file, or with --project the project
file .pkgindex.yaml in --dir. With --force an existing file is backed
up next to itself and replaced.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			template := configs.UserConfigTemplate
			if project {
				template = configs.ProjectConfigTemplate
			}
			return runConfigInit(cmd, g.configFile(project), template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Back up and overwrite an existing file")
	cmd.Flags().BoolVar(&project, "project", false, "Create the project config instead of the user config")

	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigRestoreCmd(g *globalOptions) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the newest configuration backup",
		Long: `Replace the user configuration, or with --project .pkgindex.yaml in
--dir, with the newest backup written by 'config init --force'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigRestore(cmd, g.configFile(project))
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Restore the project config instead of the user config")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

// configFile returns the user config path, or the project config in --dir.
func (g *globalOptions) configFile(project bool) string {
	if project {
		return filepath.Join(g.dir, config.ProjectConfigName)
	}
	return config.GetUserConfigPath()
}

func runConfigInit(cmd *cobra.Command, path, template string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Status("💡", "Use --force to back it up and start from the template")
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Status("💡", "Run 'pkgindex config show' to verify")
	return nil
}

func runConfigRestore(cmd *cobra.Command, path string) error {
	out := output.New(cmd.OutOrStdout())

	backups, err := config.ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return pkgerrors.New(pkgerrors.ErrCodeConfigNotFound, "no configuration backups found", nil).
			WithDetail("path", path).
			WithSuggestion("Backups are written by 'pkgindex config init --force'")
	}

	if err := config.RestoreBackup(backups[0], path); err != nil {
		return err
	}

	out.Success("Restored configuration")
	out.Statusf("💾", "From: %s", backups[0])
	out.Statusf("📁", "Location: %s", path)
	return nil
}
