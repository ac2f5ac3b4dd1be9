// Package macro expands ${NAME} placeholders in generated text.
//
// The set of identifiers is closed: every [ID] has exactly one placeholder
// pattern, and using an identifier outside the set panics at the call site.
// Placeholders that name no known identifier are left untouched so that
// scripts can use the same syntax for variables resolved later from the
// environment.
package macro

import (
	"fmt"
	"strings"

	"github.com/goplus/pupnet/internal/deploy"
)

// ID identifies a macro.
type ID int

const (
	AppBaseName ID = iota
	AppFriendlyName
	AppID
	AppShortSummary
	AppLicenseID
	AppVersion
	PackageRelease
	PackageName
	PackageKind
	PackageArch
	PublisherName
	PublisherID
	PublisherCopyright
	PublisherLinkName
	PublisherLinkURL
	PublisherEmail
	DesktopNoDisplay
	DesktopIntegrate
	DesktopTerminal
	DesktopStartupWMClass
	PrimeCategory
	AppStreamDescriptionXML
	AppStreamChangelogXML
	DotnetRuntime
	BuildTarget
	BuildArch
	BuildDate
	BuildYear
	BuildRoot
	BuildShare
	BuildAppBin
	PublishBin
	InstallBin
	InstallExec
	MacOSIconFile

	numIDs
)

var names = [numIDs]string{
	AppBaseName:             "APP_BASE_NAME",
	AppFriendlyName:         "APP_FRIENDLY_NAME",
	AppID:                   "APP_ID",
	AppShortSummary:         "APP_SHORT_SUMMARY",
	AppLicenseID:            "APP_LICENSE_ID",
	AppVersion:              "APP_VERSION",
	PackageRelease:          "PACKAGE_RELEASE",
	PackageName:             "PACKAGE_NAME",
	PackageKind:             "PACKAGE_KIND",
	PackageArch:             "PACKAGE_ARCH",
	PublisherName:           "PUBLISHER_NAME",
	PublisherID:             "PUBLISHER_ID",
	PublisherCopyright:      "PUBLISHER_COPYRIGHT",
	PublisherLinkName:       "PUBLISHER_LINK_NAME",
	PublisherLinkURL:        "PUBLISHER_LINK_URL",
	PublisherEmail:          "PUBLISHER_EMAIL",
	DesktopNoDisplay:        "DESKTOP_NODISPLAY",
	DesktopIntegrate:        "DESKTOP_INTEGRATE",
	DesktopTerminal:         "DESKTOP_TERMINAL",
	DesktopStartupWMClass:   "DESKTOP_STARTUPWMCLASS",
	PrimeCategory:           "PRIME_CATEGORY",
	AppStreamDescriptionXML: "APPSTREAM_DESCRIPTION_XML",
	AppStreamChangelogXML:   "APPSTREAM_CHANGELOG_XML",
	DotnetRuntime:           "DOTNET_RUNTIME",
	BuildTarget:             "BUILD_TARGET",
	BuildArch:               "BUILD_ARCH",
	BuildDate:               "BUILD_DATE",
	BuildYear:               "BUILD_YEAR",
	BuildRoot:               "BUILD_ROOT",
	BuildShare:              "BUILD_SHARE",
	BuildAppBin:             "BUILD_APP_BIN",
	PublishBin:              "PUBLISH_BIN",
	InstallBin:              "INSTALL_BIN",
	InstallExec:             "INSTALL_EXEC",
	MacOSIconFile:           "MACOS_ICON_FILE",
}

// IDs returns every identifier in expansion order.
func IDs() []ID {
	ids := make([]ID, numIDs)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

func (id ID) valid() bool {
	return id >= 0 && id < numIDs
}

func (id ID) mustBeValid() {
	if !id.valid() {
		panic(fmt.Sprintf("macro: unknown identifier %d", int(id)))
	}
}

// Name returns the identifier name, e.g. "APP_ID".
func (id ID) Name() string {
	id.mustBeValid()
	return names[id]
}

// Placeholder returns the pattern replaced by Expand, e.g. "${APP_ID}".
func (id ID) Placeholder() string {
	return "${" + id.Name() + "}"
}

func (id ID) String() string {
	if !id.valid() {
		return fmt.Sprintf("ID(%d)", int(id))
	}
	return names[id]
}

// -----------------------------------------------------------------------------

// Table maps macro identifiers to values for one build.
type Table struct {
	kind   deploy.Kind
	values [numIDs]string
}

// NewTable creates an empty table for a build of the given package kind.
// The kind decides how context-sensitive macros are resolved.
func NewTable(kind deploy.Kind) *Table {
	return &Table{kind: kind}
}

// Set stores value for id. The last write wins.
func (t *Table) Set(id ID, value string) {
	id.mustBeValid()
	t.values[id] = value
}

// Get returns the resolved value for id, or "" when it was never set.
func (t *Table) Get(id ID) string {
	id.mustBeValid()
	v := t.values[id]
	if id == PrimeCategory && t.kind.IsMacOS() {
		return MacOSCategory(v)
	}
	return v
}

// Expand replaces every known placeholder in text with its current value.
// Placeholders inside stored values are resolved too, so the result holds
// no known placeholder and expanding it again is a no-op. Values that refer
// to each other in a cycle are left partially expanded.
func (t *Table) Expand(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return t.replacer(t.resolve()).Replace(text)
}

// Environ returns "NAME=value" pairs for every identifier, for scripts that
// read the same values from their environment.
func (t *Table) Environ() []string {
	vals := t.resolve()
	env := make([]string, 0, numIDs)
	for _, id := range IDs() {
		env = append(env, id.Name()+"="+vals[id])
	}
	return env
}

// resolve returns the value of every identifier with the placeholders it
// holds replaced, following references until nothing changes.
func (t *Table) resolve() [numIDs]string {
	var vals [numIDs]string
	nested := false
	for _, id := range IDs() {
		vals[id] = t.Get(id)
		nested = nested || strings.Contains(vals[id], "${")
	}
	for i := 0; nested && i < int(numIDs); i++ {
		r := t.replacer(vals)
		nested = false
		for id, v := range vals {
			if !strings.Contains(v, "${") {
				continue
			}
			if nv := r.Replace(v); nv != v {
				vals[id] = nv
				nested = true
			}
		}
	}
	return vals
}

func (t *Table) replacer(vals [numIDs]string) *strings.Replacer {
	pairs := make([]string, 0, 2*numIDs)
	for _, id := range IDs() {
		pairs = append(pairs, id.Placeholder(), vals[id])
	}
	return strings.NewReplacer(pairs...)
}

// -----------------------------------------------------------------------------

// DefaultMacOSCategory is used for categories without a macOS equivalent.
const DefaultMacOSCategory = "public.app-category.utilities"

var macOSCategories = map[string]string{
	"audiovideo":  "public.app-category.entertainment",
	"audio":       "public.app-category.music",
	"video":       "public.app-category.video",
	"development": "public.app-category.developer-tools",
	"education":   "public.app-category.education",
	"game":        "public.app-category.games",
	"graphics":    "public.app-category.graphics-design",
	"network":     "public.app-category.social-networking",
	"office":      "public.app-category.productivity",
	"science":     "public.app-category.education",
	"settings":    "public.app-category.utilities",
	"system":      "public.app-category.utilities",
	"utility":     "public.app-category.utilities",
}

// MacOSCategory maps a freedesktop main category to an
// LSApplicationCategoryType value. An empty category stays empty.
func MacOSCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return ""
	}
	if v, ok := macOSCategories[c]; ok {
		return v
	}
	return DefaultMacOSCategory
}
