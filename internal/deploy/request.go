// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

// Credentials holds the signing and notarization secrets of a request.
type Credentials struct {
	SigningIdentity string // Code signing identity, e.g. "Developer ID Application: ...".
	AppleID         string // Apple account used for notarization.
	TeamID          string // Developer team identifier.
	AppPassword     string // App-specific password for the Apple account.
}

// CanSign reports whether a signing identity was supplied.
func (c Credentials) CanSign() bool {
	return c.SigningIdentity != ""
}

// CanNotarize reports whether the full Apple credential triple was supplied.
func (c Credentials) CanNotarize() bool {
	return c.AppleID != "" && c.TeamID != "" && c.AppPassword != ""
}

// Secrets returns the credential values that must never be logged.
func (c Credentials) Secrets() []string {
	return []string{c.SigningIdentity, c.AppleID, c.TeamID, c.AppPassword}
}

// Request is the user's intent for a single invocation. It is created once
// from the parsed command line and passed by value; the build core never
// modifies it.
type Request struct {
	Kind          Kind
	Runtime       Runtime
	Framework     Framework
	PublishConfig string   // Publish configuration, e.g. "Release".
	Properties    []string // Extra publish properties as "name=value".
	AppVersion    string   // Overrides the configured version when set.
	OutputDir     string   // Destination directory of the final artifact.
	OutputName    string   // Final artifact file name; derived when empty.
	Credentials   Credentials

	SkipPrompts bool
	SkipPublish bool // Reuse binaries already present in the publish directory.
	Clean       bool // Remove the working directory after a successful build.
	Verbose     bool
}
