/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/redup/internal/config"
	"github.com/substantialcattle5/redup/internal/ui"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or create the redup configuration",
		Long: `View or create the redup configuration file.

The configuration is read from --config, else $HOME/.redup.yaml when present,
else built-in defaults. Command flags override it.

Example:
  redup config show
  redup config init`,
	}
	cmd.AddCommand(newConfigShowCmd(root), newConfigInitCmd(root))
	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := root.cfg.Marshal()
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			if root.cfgSource != "" {
				fmt.Fprintf(out, "# %s\n", root.cfgSource)
			} else {
				fmt.Fprintln(out, "# built-in defaults")
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a configuration file interactively",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationCreatesConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			if err := checkOutputs(cmd, force, path); err != nil {
				return err
			}

			cfg, err := ui.PromptForConfig(root.cfg)
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration without asking")
	return cmd
}
