package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/pupnet/internal/builder"
	"github.com/goplus/pupnet/internal/config"
)

// samples maps the names accepted by "new" to embedded templates.
var samples = map[string]string{
	"conf":         builder.ConfigTemplate,
	"desktop":      builder.DesktopTemplate,
	"entitlements": builder.EntitlementsTemplate,
	"meta":         builder.MetaInfoTemplate,
	"plist":        builder.InfoPlistTemplate,
}

var newForce bool

var newCmd = &cobra.Command{
	Use:   "new <" + strings.Join(sampleNames(), "|") + "> [dir]",
	Short: "Write a sample configuration or template file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 2 {
			dir = args[1]
		}
		path, err := writeSample(args[0], dir, newForce)
		if err != nil {
			return err
		}
		color.Success.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "Overwrite an existing file")
	rootCmd.AddCommand(newCmd)
}

func sampleNames() []string {
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// writeSample writes the sample called name into dir and returns its path.
func writeSample(name, dir string, force bool) (string, error) {
	tmpl, ok := samples[name]
	if !ok {
		return "", fmt.Errorf("unknown sample %q, want one of %s", name, strings.Join(sampleNames(), ", "))
	}
	data, err := builder.Template(tmpl)
	if err != nil {
		return "", err
	}
	file := tmpl
	if name == "conf" {
		file = config.DefaultFile
	}
	path := filepath.Join(dir, file)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists, use --force to overwrite", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0644)
}
