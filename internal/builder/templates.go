package builder

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

//go:embed templates
var templateFS embed.FS

// Names of the embedded default templates.
const (
	InfoPlistTemplate    = "Info.plist"
	EntitlementsTemplate = "entitlements.plist"
	DesktopTemplate      = "app.desktop"
	MetaInfoTemplate     = "metainfo.xml"
	ControlTemplate      = "control"
	RpmSpecTemplate      = "app.spec"
	SetupTemplate        = "setup.iss"
	ConfigTemplate       = "pupnet.yaml"
)

// Template returns the embedded default template called name.
func Template(name string) ([]byte, error) {
	return templateFS.ReadFile("templates/" + name)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// render reads the template at src, or the embedded template def when src
// is empty, and expands its macros.
func (s *session) render(src, def string) (string, error) {
	var data []byte
	var err error
	if src != "" {
		data, err = os.ReadFile(s.app.Resolve(s.macros.Expand(src)))
	} else {
		data, err = Template(def)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return s.macros.Expand(string(bytes.TrimPrefix(data, utf8BOM))), nil
}

// materialize renders a template into dst.
func (s *session) materialize(src, def, dst string) error {
	text, err := s.render(src, def)
	if err != nil {
		return err
	}
	return writeText(dst, text)
}

// writeText writes text as UTF-8 without a byte order mark, creating parent
// directories as needed.
func writeText(dst, text string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if err := os.WriteFile(dst, []byte(text), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	return nil
}

// insertAfter inserts lines after the first line equal to marker. Text
// without the marker gets the lines appended.
func insertAfter(text, marker string, lines ...string) string {
	if len(lines) == 0 {
		return text
	}
	all := strings.Split(text, "\n")
	i := slices.Index(all, marker)
	if i < 0 {
		return strings.TrimRight(text, "\n") + "\n" + strings.Join(lines, "\n") + "\n"
	}
	return strings.Join(slices.Insert(all, i+1, lines...), "\n")
}

// insertBefore inserts lines before the first line starting with prefix.
func insertBefore(text, prefix string, lines ...string) string {
	if len(lines) == 0 {
		return text
	}
	all := strings.Split(text, "\n")
	i := slices.IndexFunc(all, func(l string) bool { return strings.HasPrefix(l, prefix) })
	if i < 0 {
		return strings.TrimRight(text, "\n") + "\n" + strings.Join(lines, "\n") + "\n"
	}
	return strings.Join(slices.Insert(all, i, lines...), "\n")
}
