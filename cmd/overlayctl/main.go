package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adstudio/internal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "overlayctl",
	Short: "Burn text overlays into videos from the command line",
	Long: `overlayctl runs the adstudio overlay pipeline locally, without the HTTP API.
Configuration comes from the same environment variables as the service
(OVERLAY_FONT_DIRS, FFMPEG_PATH, OVERLAY_CRF, ...).

Examples:
  # Put "SALE" at (100,200) for the first three seconds
  overlayctl render -i promo.mp4 -t SALE --x 100 --y 200 --duration 3 -o out.mp4

  # Render from a URL with a custom font
  overlayctl render -i https://cdn.example.com/clip.mp4 -t "New drop" --font-family Montserrat -o out.mp4

  # See which file a font family resolves to
  overlayctl fonts resolve "Open Sans"`,
	SilenceUsage: true,
}

func newLogger(cmd *cobra.Command) *logger.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Level:       level,
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "overlayctl",
	})
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(fontsCmd)
	rootCmd.AddCommand(gdriveTokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
