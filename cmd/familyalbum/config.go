package main

import (
	"fmt"

	"familyalbum/pkg/auth"
	"familyalbum/pkg/config"
	"familyalbum/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage familyalbum configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (FAMILYALBUM_*), including a .env file
  - Configuration file
  - Default values`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default values",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("init accepts at most one path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ".familyalbum.yaml"
			if len(args) > 0 {
				path = args[0]
			} else if opts.configFile != "" {
				path = opts.configFile
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout()).Success("Configuration written to " + path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile, nil)
			if err != nil {
				return &usageError{err: err}
			}

			display := *cfg
			if display.Album.IDToken != "" {
				display.Album.IDToken = auth.SanitizeAlbum(&auth.Album{IDToken: display.Album.IDToken}).IDToken
			}
			if display.Album.Password != "" {
				display.Album.Password = "********"
			}

			data, err := yaml.Marshal(&display)
			if err != nil {
				return fmt.Errorf("failed to format configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			ui.NewPrinter(out).Title("Current configuration")
			fmt.Fprint(out, string(data))
			return nil
		},
	})

	return cmd
}
