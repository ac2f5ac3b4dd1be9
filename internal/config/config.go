package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name looked up in the working directory.
const DefaultFile = "pupnet.yaml"

var (
	ErrNotFound       = errors.New("configuration file not found")
	ErrInvalidVersion = errors.New("invalid version")
)

// Publisher describes who ships the application.
type Publisher struct {
	Name      string `yaml:"name"`
	ID        string `yaml:"id"`
	Copyright string `yaml:"copyright"`
	LinkName  string `yaml:"link_name"`
	LinkURL   string `yaml:"link_url"`
	Email     string `yaml:"email"`
}

// Desktop holds desktop integration settings.
type Desktop struct {
	NoDisplay      bool   `yaml:"no_display"`
	Terminal       bool   `yaml:"terminal"`
	File           string `yaml:"file"` // Desktop entry template; default used when empty.
	StartupWMClass string `yaml:"startup_wm_class"`
	PrimeCategory  string `yaml:"prime_category"`
	MetaFile       string `yaml:"meta_file"` // AppStream metainfo template.
}

// Publish configures the publish collaborator.
type Publish struct {
	ProjectPath string   `yaml:"project_path"`
	Args        []string `yaml:"args"`
	PreScript   string   `yaml:"pre_script"`
	PostScript  string   `yaml:"post_script"`
}

type Deb struct {
	Depends []string `yaml:"depends"`
}

type Rpm struct {
	Requires []string `yaml:"requires"`
}

type AppImage struct {
	Args []string `yaml:"args"`
}

type Flatpak struct {
	Runtime        string   `yaml:"runtime"`
	Sdk            string   `yaml:"sdk"`
	RuntimeVersion string   `yaml:"runtime_version"`
	FinishArgs     []string `yaml:"finish_args"`
	BuilderArgs    []string `yaml:"builder_args"`
}

type Setup struct {
	GroupName         string `yaml:"group_name"`
	AdminInstall      bool   `yaml:"admin_install"`
	CommandPrompt     string `yaml:"command_prompt"`
	MinWindowsVersion string `yaml:"min_windows_version"`
	SignTool          string `yaml:"sign_tool"`
}

type MacOS struct {
	InfoPlist    string `yaml:"info_plist"`   // Info.plist template; default used when empty.
	Entitlements string `yaml:"entitlements"` // Entitlements template; required for signing.
}

// App is the declarative application metadata. It is read-only to the build
// core except for IconFiles, which a pipeline may normalize in place.
type App struct {
	AppBaseName       string `yaml:"app_base_name"`
	AppFriendlyName   string `yaml:"app_friendly_name"`
	AppID             string `yaml:"app_id"`
	AppVersionRelease string `yaml:"app_version_release"` // "1.2.3[4]"
	AppShortSummary   string `yaml:"app_short_summary"`
	AppDescription    string `yaml:"app_description"`
	AppLicenseID      string `yaml:"app_license_id"`
	AppChangelogFile  string `yaml:"app_changelog_file"`

	Publisher Publisher `yaml:"publisher"`
	Desktop   Desktop   `yaml:"desktop"`
	IconFiles []string  `yaml:"icon_files"`
	Publish   Publish   `yaml:"publish"`

	OutputDirectory string `yaml:"output_directory"`

	Deb      Deb      `yaml:"deb"`
	Rpm      Rpm      `yaml:"rpm"`
	AppImage AppImage `yaml:"appimage"`
	Flatpak  Flatpak  `yaml:"flatpak"`
	Setup    Setup    `yaml:"setup"`
	MacOS    MacOS    `yaml:"macos"`

	// Dir is the directory of the loaded file. Relative paths resolve
	// against it.
	Dir string `yaml:"-"`
}

// Load reads the configuration at path.
func Load(path string) (*App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	var app App
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	app.Dir = filepath.Dir(abs)
	app.applyDefaults()
	return &app, nil
}

func (a *App) applyDefaults() {
	if a.AppFriendlyName == "" {
		a.AppFriendlyName = a.AppBaseName
	}
	if a.Desktop.StartupWMClass == "" {
		a.Desktop.StartupWMClass = a.AppBaseName
	}
	if a.Flatpak.Runtime == "" {
		a.Flatpak.Runtime = "org.freedesktop.Platform"
	}
	if a.Flatpak.Sdk == "" {
		a.Flatpak.Sdk = "org.freedesktop.Sdk"
	}
	if a.Flatpak.RuntimeVersion == "" {
		a.Flatpak.RuntimeVersion = "23.08"
	}
}

// Resolve returns p made absolute against the configuration directory.
// Empty paths stay empty.
func (a *App) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.Dir, filepath.FromSlash(p))
}

// Marshal encodes the configuration as YAML.
func (a *App) Marshal() ([]byte, error) {
	return yaml.Marshal(a)
}

// -----------------------------------------------------------------------------

// ParseVersion splits a "version[release]" string. The release defaults to
// "1". The version must be a valid semantic version without the "v" prefix.
func ParseVersion(s string) (version, release string, err error) {
	s = strings.TrimSpace(s)
	version, release = s, "1"
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return "", "", fmt.Errorf("%w: %q: missing closing bracket", ErrInvalidVersion, s)
		}
		version = strings.TrimSpace(s[:i])
		release = strings.TrimSpace(s[i+1 : len(s)-1])
		if release == "" {
			return "", "", fmt.Errorf("%w: %q: empty release", ErrInvalidVersion, s)
		}
	}
	if version == "" || strings.HasPrefix(version, "v") || !semver.IsValid("v"+version) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return version, release, nil
}
