// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/issue"
	"github.com/quixcc/quixbuild/pkg/types"
)

// newConfigCommand creates the `quixbuild config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage quixbuild configuration",
		Long: `Manage quixbuild configuration.

Configuration is read from ` + config.ConfigFileName + ` in the working directory,
or from the file given with --config. Environment variables such as
` + config.EnvPrefix + `_CONTAINER_ENGINE=podman override file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, wd, err := app.loadConfig(cmd.Context(), flags.configPath)
			if err != nil {
				renderFailure(app, err, flags.verbose, issue.ConfigLoadFailedId)
				return &ExitError{Code: types.ExitUsage}
			}

			out, err := config.MarshalTOML(cfg)
			if err != nil {
				return err
			}

			source := SubtitleStyle.Render("(using defaults)")
			if p, ok := config.ResolvePath(config.LoadOptions{ConfigFilePath: flags.configPath, WorkDir: wd}); ok {
				source = p
			}
			fmt.Fprintf(app.stdout, "# %s: %s\n\n", CmdStyle.Render("Config file"), source)
			fmt.Fprint(app.stdout, string(out))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to " + config.ConfigFileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wd, err := app.getwd()
			if err != nil {
				return err
			}
			target := flags.configPath
			if target == "" {
				target = filepath.Join(wd, config.ConfigFileName)
			}

			if err := config.WriteDefault(target, force); err != nil {
				fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+err.Error())
				fmt.Fprintln(app.stderr, SubtitleStyle.Render("Use --force to overwrite it."))
				return &ExitError{Code: types.ExitUsage}
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ Wrote "+target))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}
