package deploy

import (
	"fmt"
	"strings"
)

// Kind identifies a package format.
type Kind string

const (
	AppImage Kind = "appimage"
	Flatpak  Kind = "flatpak"
	Rpm      Kind = "rpm"
	Deb      Kind = "deb"
	Setup    Kind = "setup"
	Zip      Kind = "zip"
	OSX      Kind = "osx"
	DMG      Kind = "dmg"
)

// Kinds returns all supported package kinds in display order.
func Kinds() []Kind {
	return []Kind{AppImage, Flatpak, Rpm, Deb, Setup, Zip, OSX, DMG}
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown package kind %q", s)
}

// IsMacOS reports whether k produces a macOS application bundle.
func (k Kind) IsMacOS() bool {
	return k == OSX || k == DMG
}

// IsLinux reports whether k is a Linux-only package format.
func (k Kind) IsLinux() bool {
	switch k {
	case AppImage, Flatpak, Rpm, Deb:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// -----------------------------------------------------------------------------

// OS identifies an operating system family, either of the host or of a target.
type OS string

const (
	Linux   OS = "linux"
	MacOS   OS = "osx"
	Windows OS = "win"
)

// HostOS maps a GOOS value to an OS family. Unknown systems map to "".
func HostOS(goos string) OS {
	switch goos {
	case "linux":
		return Linux
	case "darwin":
		return MacOS
	case "windows":
		return Windows
	}
	return ""
}

// -----------------------------------------------------------------------------

// Framework identifies the kind of runtime framework the application targets.
type Framework string

const (
	// Modern is the cross-platform runtime.
	Modern Framework = "net"
	// Legacy is the Windows-only framework.
	Legacy Framework = "netfx"
)

// ParseFramework parses a framework kind. An empty string selects Modern.
func ParseFramework(s string) (Framework, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "net", "modern":
		return Modern, nil
	case "netfx", "legacy":
		return Legacy, nil
	}
	return "", fmt.Errorf("unknown framework kind %q", s)
}
