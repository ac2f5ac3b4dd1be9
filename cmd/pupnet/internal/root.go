package internal

import (
	"log/slog"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pupnet",
	Short: "pupnet packages applications for distribution",
	Long: `pupnet publishes an application and packages the result as AppImage, Flatpak,
deb, rpm, Windows setup, macOS bundle, disk image or portable archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		color.Danger.Printf("pupnet: %v\n", err)
	}
	return err
}

// setupLogger installs the process logger. Verbose lowers the level to
// debug, which also makes the tool invoker log tool output.
func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
