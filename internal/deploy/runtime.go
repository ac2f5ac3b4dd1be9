package deploy

import (
	"fmt"
	"strings"
)

// Runtime is a parsed runtime identifier such as "linux-x64" or "osx-arm64".
type Runtime struct {
	ID     string // Original identifier, lower case.
	Family OS     // Operating system component.
	Arch   string // Architecture component, e.g. "x64", "arm64".
}

// ParseRuntime parses a runtime identifier. The first dash-separated component
// is the OS family and the last is the architecture, so qualified forms like
// "linux-musl-x64" are accepted.
func ParseRuntime(rid string) (Runtime, error) {
	id := strings.ToLower(strings.TrimSpace(rid))
	parts := strings.Split(id, "-")
	if len(parts) < 2 || parts[0] == "" || parts[len(parts)-1] == "" {
		return Runtime{}, fmt.Errorf("invalid runtime identifier %q", rid)
	}
	family := OS(parts[0])
	switch family {
	case Linux, MacOS, Windows:
	default:
		return Runtime{}, fmt.Errorf("invalid runtime identifier %q: unknown os %q", rid, parts[0])
	}
	return Runtime{ID: id, Family: family, Arch: parts[len(parts)-1]}, nil
}

// DefaultRuntime returns the runtime identifier matching the host.
func DefaultRuntime(host OS, goarch string) Runtime {
	arch := "x64"
	switch goarch {
	case "arm64":
		arch = "arm64"
	case "arm":
		arch = "arm"
	case "386":
		arch = "x86"
	}
	if host == "" {
		host = Linux
	}
	return Runtime{ID: string(host) + "-" + arch, Family: host, Arch: arch}
}

func (r Runtime) String() string {
	return r.ID
}

// archNames maps runtime architectures to the names each package format uses.
var archNames = map[Kind]map[string]string{
	Deb:      {"x64": "amd64", "arm64": "arm64", "arm": "armhf", "x86": "i386"},
	Rpm:      {"x64": "x86_64", "arm64": "aarch64", "arm": "armhfp", "x86": "i686"},
	AppImage: {"x64": "x86_64", "arm64": "aarch64", "arm": "armhf", "x86": "i686"},
	Flatpak:  {"x64": "x86_64", "arm64": "aarch64", "arm": "arm", "x86": "i386"},
	OSX:      {"x64": "x86_64", "arm64": "arm64"},
	DMG:      {"x64": "x86_64", "arm64": "arm64"},
}

// PackageArch returns the architecture name used by kind k for runtime r.
// Kinds without a naming convention use the runtime architecture as is.
func (r Runtime) PackageArch(k Kind) string {
	if names, ok := archNames[k]; ok {
		if name, ok := names[r.Arch]; ok {
			return name
		}
	}
	return r.Arch
}
