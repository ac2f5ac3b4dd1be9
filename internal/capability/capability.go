// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package capability decides which package kinds can be built for a given
// host and target.
//
// The decision is driven entirely by the rule table returned by [Rules];
// adding a package kind means adding a row.
package capability

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goplus/pupnet/internal/deploy"
)

// Rule describes where a package kind can be built.
type Rule struct {
	Kind     deploy.Kind
	Hosts    []deploy.OS // Host systems allowed to build the kind.
	Runtimes []deploy.OS // Target runtime families the kind accepts.
	Legacy   bool        // Whether the legacy framework may be targeted.
	Tool     string      // External tool the kind requires; "" if none.
}

var rules = []Rule{
	{Kind: deploy.AppImage, Hosts: []deploy.OS{deploy.Linux}, Runtimes: []deploy.OS{deploy.Linux}, Tool: "appimagetool"},
	{Kind: deploy.Flatpak, Hosts: []deploy.OS{deploy.Linux}, Runtimes: []deploy.OS{deploy.Linux}, Tool: "flatpak-builder"},
	{Kind: deploy.Rpm, Hosts: []deploy.OS{deploy.Linux}, Runtimes: []deploy.OS{deploy.Linux}, Tool: "rpmbuild"},
	{Kind: deploy.Deb, Hosts: []deploy.OS{deploy.Linux}, Runtimes: []deploy.OS{deploy.Linux}, Tool: "dpkg-deb"},
	{Kind: deploy.Setup, Hosts: []deploy.OS{deploy.Windows}, Runtimes: []deploy.OS{deploy.Windows}, Legacy: true, Tool: "iscc"},
	{Kind: deploy.Zip, Hosts: []deploy.OS{deploy.Linux, deploy.MacOS, deploy.Windows}, Runtimes: []deploy.OS{deploy.Linux, deploy.MacOS, deploy.Windows}, Legacy: true},
	{Kind: deploy.OSX, Hosts: []deploy.OS{deploy.MacOS}, Runtimes: []deploy.OS{deploy.MacOS}},
	{Kind: deploy.DMG, Hosts: []deploy.OS{deploy.MacOS}, Runtimes: []deploy.OS{deploy.MacOS}, Tool: "hdiutil"},
}

// Rules returns a copy of the rule table.
func Rules() []Rule {
	return slices.Clone(rules)
}

// Lookup returns the rule for kind.
func Lookup(kind deploy.Kind) (Rule, bool) {
	for _, r := range rules {
		if r.Kind == kind {
			return r, true
		}
	}
	return Rule{}, false
}

// PlatformMismatchError reports a package kind that cannot be built for the
// requested host and target combination.
type PlatformMismatchError struct {
	Kind      deploy.Kind
	Host      deploy.OS
	Runtime   string
	Framework deploy.Framework
	Reason    string
}

func (e *PlatformMismatchError) Error() string {
	return fmt.Sprintf("cannot build %s for %s (%s) on %s host: %s",
		e.Kind, e.Runtime, e.Framework, hostName(e.Host), e.Reason)
}

// CanBuild reports whether req can be built on host.
func CanBuild(req deploy.Request, host deploy.OS) bool {
	return Check(req, host) == nil
}

// Check returns nil when req can be built on host and a
// *PlatformMismatchError describing the first unmet condition otherwise.
func Check(req deploy.Request, host deploy.OS) error {
	mismatch := func(format string, args ...any) error {
		return &PlatformMismatchError{
			Kind:      req.Kind,
			Host:      host,
			Runtime:   req.Runtime.ID,
			Framework: req.Framework,
			Reason:    fmt.Sprintf(format, args...),
		}
	}

	rule, ok := Lookup(req.Kind)
	if !ok {
		return mismatch("unknown package kind")
	}
	if !slices.Contains(rule.Hosts, host) {
		return mismatch("requires a %s host", joinOS(rule.Hosts))
	}
	if !slices.Contains(rule.Runtimes, req.Runtime.Family) {
		return mismatch("requires a %s runtime", joinRuntimes(rule.Runtimes))
	}
	if req.Framework == deploy.Legacy {
		if !rule.Legacy {
			return mismatch("the legacy framework is not supported by this package kind")
		}
		if host != deploy.Windows || req.Runtime.Family != deploy.Windows {
			return mismatch("the legacy framework requires a windows host and a win-* runtime")
		}
	}
	return nil
}

func hostName(os deploy.OS) string {
	switch os {
	case deploy.Linux:
		return "linux"
	case deploy.MacOS:
		return "macos"
	case deploy.Windows:
		return "windows"
	}
	return "unsupported"
}

func joinOS(list []deploy.OS) string {
	names := make([]string, len(list))
	for i, os := range list {
		names[i] = hostName(os)
	}
	return strings.Join(names, " or ")
}

func joinRuntimes(list []deploy.OS) string {
	names := make([]string, len(list))
	for i, os := range list {
		names[i] = string(os) + "-*"
	}
	return strings.Join(names, " or ")
}
