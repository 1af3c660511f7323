package main

import (
	"familyalbum/pkg/exif"
	"familyalbum/pkg/logger"
	"familyalbum/pkg/ui"

	"github.com/spf13/cobra"
)

func newExiftoolCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exiftool",
		Short: "Manage the exiftool used for metadata tagging",
	}

	var toolDir string
	install := &cobra.Command{
		Use:   "install",
		Short: "Download exiftool " + exif.DefaultVersion + " ahead of the first run",
		Long: `Download and unpack exiftool into the tool directory, which defaults to the
directory of the familyalbum executable. Nothing is downloaded when it is already
installed. On platforms other than Windows perl must be on the PATH.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if toolDir != "" {
				cfg.Exif.ToolDir = toolDir
			}

			path, err := newInstaller(cfg, logger.GetLogger()).EnsureTool(cmd.Context())
			if err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout()).Info("exiftool", path)
			return nil
		},
	}
	install.Flags().StringVar(&toolDir, "tool-dir", "", "directory to install exiftool into")

	cmd.AddCommand(install)
	return cmd
}
