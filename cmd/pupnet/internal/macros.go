package internal

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goplus/pupnet/internal/macro"
)

var macrosCmd = &cobra.Command{
	Use:   "macros",
	Short: "List the macros available to templates and scripts",
	Long: `Macros expand as ${NAME} in templates and configuration paths, and are
exported under the same names to pre- and post-publish scripts.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printMacros(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(macrosCmd)
}

func printMacros(w io.Writer) {
	for _, id := range macro.IDs() {
		fmt.Fprintln(w, id.Placeholder())
	}
}
