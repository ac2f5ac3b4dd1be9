package internal

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/pupnet/internal/capability"
	"github.com/goplus/pupnet/internal/deploy"
	"github.com/goplus/pupnet/internal/host"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List package kinds and where they can be built",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h := host.New()
		return printKinds(cmd.OutOrStdout(), h.OS(), h.LookPath)
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)
}

// printKinds writes the capability table, marking the kinds the host can
// build and whether their tool is installed.
func printKinds(w io.Writer, hostOS deploy.OS, lookPath func(string) (string, bool)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tHOSTS\tRUNTIMES\tLEGACY\tTOOL\tTHIS HOST")
	for _, r := range capability.Rules() {
		tool, state := r.Tool, "yes"
		if tool == "" {
			tool = "-"
		}
		switch {
		case !slices.Contains(r.Hosts, hostOS):
			state = "no"
		case r.Tool != "":
			if _, ok := lookPath(r.Tool); !ok {
				state = "tool missing"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Kind, joinOS(r.Hosts), joinOS(r.Runtimes), yesNo(r.Legacy), tool, state)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprint(w, color.Info.Sprintf("host: %s\n", hostOS))
	return nil
}

func joinOS(list []deploy.OS) string {
	names := make([]string, len(list))
	for i, o := range list {
		names[i] = string(o)
	}
	return strings.Join(names, ",")
}
