package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goplus/pupnet/internal/archive"
	"github.com/goplus/pupnet/internal/config"
)

// normalizeIcons rewrites the icon list in place: entries are trimmed,
// resolved against the configuration directory and deduplicated.
func normalizeIcons(app *config.App) {
	out := app.IconFiles[:0]
	for _, icon := range app.IconFiles {
		icon = strings.TrimSpace(icon)
		if icon == "" {
			continue
		}
		icon = app.Resolve(icon)
		if !slices.Contains(out, icon) {
			out = append(out, icon)
		}
	}
	app.IconFiles = out
}

// iconsWithExt returns the icons whose extension is ext.
func iconsWithExt(icons []string, ext string) []string {
	var out []string
	for _, icon := range icons {
		if strings.EqualFold(filepath.Ext(icon), ext) {
			out = append(out, icon)
		}
	}
	return out
}

var sizePattern = regexp.MustCompile(`(\d+)x(\d+)`)

// iconSize returns the pixel size encoded in an icon file name such as
// "app.64x64.png", or 0.
func iconSize(path string) int {
	m := sizePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil || m[1] != m[2] {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// largestIcon returns the png with the largest encoded size, preferring an
// svg when there is one.
func largestIcon(icons []string) (string, bool) {
	if svg := iconsWithExt(icons, ".svg"); len(svg) > 0 {
		return svg[0], true
	}
	best, size := "", -1
	for _, icon := range iconsWithExt(icons, ".png") {
		if n := iconSize(icon); n > size {
			best, size = icon, n
		}
	}
	return best, best != ""
}

// copyIcon copies an icon file into dst.
func copyIcon(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if err := archive.CopyFile(src, dst, 0644); err != nil {
		return fmt.Errorf("%w: icon: %v", ErrFileSystem, err)
	}
	return nil
}
