package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adstudio/internal/config"
	"adstudio/internal/overlay"
)

var fontsCmd = &cobra.Command{
	Use:   "fonts",
	Short: "Inspect font resolution",
}

var fontsResolveCmd = &cobra.Command{
	Use:   "resolve <family>",
	Short: "Print the font file a family resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		font := overlay.NewFontResolver(cfg.Overlay.FontDirs, cfg.Overlay.VerifyFonts, newLogger(cmd)).Resolve(args[0])
		if font.IsDefault() {
			fmt.Fprintln(cmd.OutOrStdout(), "(ffmpeg default font)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), font.Path)
		return nil
	},
}

func init() {
	fontsCmd.AddCommand(fontsResolveCmd)
}
