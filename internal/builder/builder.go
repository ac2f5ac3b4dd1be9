// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	qerrors "github.com/qiniu/x/errors"

	"github.com/goplus/pupnet/internal/appstream"
	"github.com/goplus/pupnet/internal/capability"
	"github.com/goplus/pupnet/internal/config"
	"github.com/goplus/pupnet/internal/deploy"
	"github.com/goplus/pupnet/internal/env"
	"github.com/goplus/pupnet/internal/host"
	"github.com/goplus/pupnet/internal/macro"
	"github.com/goplus/pupnet/internal/publish"
	"github.com/goplus/pupnet/internal/toolexec"
)

// Builder produces one package.
type Builder interface {
	// Kind returns the package kind being built.
	Kind() deploy.Kind

	// Context returns the paths used by the build.
	Context() BuildContext

	// Validate checks every required input and reports all problems at once
	// as a *ValidationError.
	Validate() error

	// Build runs the pipeline. A required phase failure aborts the build and
	// leaves the working directory in place.
	Build(ctx context.Context) error

	// Clear removes the working directory.
	Clear() error

	// OutputPath returns the path of the final artifact.
	OutputPath() string
}

// Publisher compiles the application into a directory.
type Publisher interface {
	Publish(ctx context.Context, outDir, iconHint string) error
}

// BuildContext holds the filesystem layout of one build.
type BuildContext struct {
	Root        string // Working root; removed by Clear.
	BuildRoot   string // Staging tree turned into the package.
	AppBin      string // Directory receiving the published binaries.
	Share       string // Shared data or resources directory in the staging tree.
	InstallBin  string // Binary directory on the installed system.
	InstallExec string // Main executable on the installed system.
	OutputDir   string
	OutputName  string
}

// OutputPath returns the full path of the final artifact.
func (c BuildContext) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputName)
}

// Deps carries the collaborators of a build. Zero fields get defaults.
type Deps struct {
	Host      *host.Service
	Runner    toolexec.Runner
	Publisher Publisher
	Logger    *slog.Logger

	// WorkDir overrides the working root, which otherwise lives in the user
	// cache directory.
	WorkDir string

	// Now overrides the build clock.
	Now func() time.Time
}

// New creates the builder for req. It panics when req cannot be built on
// the current host: callers must check capability.CanBuild first.
func New(req deploy.Request, app *config.App, deps Deps) (Builder, error) {
	if deps.Host == nil {
		deps.Host = host.New()
	}
	if err := capability.Check(req, deps.Host.OS()); err != nil {
		panic(fmt.Sprintf("builder.New: %v", err))
	}

	v := newVariant(req.Kind)
	s, err := newSession(req, app, deps)
	if err != nil {
		return nil, err
	}
	s.populate()
	s.bc = v.layout(s)
	s.populateLayout()
	return &pipeline{s: s, v: v}, nil
}

// variant is the kind specific part of a pipeline.
type variant interface {
	layout(s *session) BuildContext
	validate(s *session, errs *qerrors.List)
	steps(s *session) []step
}

func newVariant(kind deploy.Kind) variant {
	switch kind {
	case deploy.OSX:
		return macBundle{}
	case deploy.DMG:
		return macBundle{image: true}
	case deploy.Deb, deploy.Rpm, deploy.AppImage, deploy.Flatpak:
		return linuxPackage{kind: kind}
	case deploy.Setup:
		return windowsSetup{}
	case deploy.Zip:
		return portable{}
	}
	panic("builder: no pipeline for package kind " + string(kind))
}

// -----------------------------------------------------------------------------

type pipeline struct {
	s *session
	v variant
}

func (p *pipeline) Kind() deploy.Kind {
	return p.s.req.Kind
}

func (p *pipeline) Context() BuildContext {
	return p.s.bc
}

func (p *pipeline) OutputPath() string {
	return p.s.bc.OutputPath()
}

func (p *pipeline) Validate() error {
	var errs qerrors.List
	p.s.validateCommon(&errs)
	p.v.validate(p.s, &errs)
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Kind: p.s.req.Kind, Problems: errs}
}

func (p *pipeline) Build(ctx context.Context) error {
	s := p.s
	s.log.Info("building package", "root", s.bc.Root, "output", p.OutputPath())
	if err := runSteps(ctx, s.log, p.v.steps(s)); err != nil {
		return err
	}
	s.log.Info("package built", "output", p.OutputPath())
	return nil
}

func (p *pipeline) Clear() error {
	root := filepath.Clean(p.s.bc.Root)
	if root == filepath.Dir(root) {
		return fmt.Errorf("%w: refusing to remove %s", ErrCleanup, root)
	}
	p.s.log.Info("removing working directory", "root", root)
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("%w: %v", ErrCleanup, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// session is the state shared by the phases of one build.
type session struct {
	req    deploy.Request
	app    *config.App
	bc     BuildContext
	macros *macro.Table
	runner toolexec.Runner
	host   *host.Service
	pub    Publisher
	san    *toolexec.Sanitizer
	log    *slog.Logger
	id     uuid.UUID
	now    time.Time

	defaultPublisher bool

	version    string
	release    string
	versionErr error
}

func newSession(req deploy.Request, app *config.App, deps Deps) (*session, error) {
	s := &session{
		req:    req,
		app:    app,
		macros: macro.NewTable(req.Kind),
		host:   deps.Host,
		san:    toolexec.NewSanitizer(req.Credentials.Secrets()...),
		id:     uuid.New(),
		now:    time.Now(),
	}
	if deps.Now != nil {
		s.now = deps.Now()
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	s.log = log.With("kind", string(req.Kind), "session", s.id.String())

	s.runner = deps.Runner
	if s.runner == nil {
		s.runner = toolexec.NewInvoker(
			toolexec.WithSanitizer(s.san),
			toolexec.WithLogger(s.log),
			toolexec.WithVerbose(req.Verbose),
		)
	}
	s.pub = deps.Publisher
	if s.pub == nil {
		s.pub = publish.New(s.runner, app, req, s.macros, s.host.OS(), s.log)
		s.defaultPublisher = true
	}

	vr := app.AppVersionRelease
	if req.AppVersion != "" {
		vr = req.AppVersion
	}
	s.version, s.release, s.versionErr = config.ParseVersion(vr)

	root := deps.WorkDir
	if root == "" {
		dir, err := env.BuildDir(app.AppID, string(req.Kind), req.Runtime.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to locate working directory: %w", err)
		}
		root = dir
	}
	s.bc.Root = root
	return s, nil
}

// outputDir returns the requested output directory, falling back to the
// configured one and then to the configuration directory.
func (s *session) outputDir() string {
	if s.req.OutputDir != "" {
		return s.req.OutputDir
	}
	if s.app.OutputDirectory != "" {
		return s.app.Resolve(s.macros.Expand(s.app.OutputDirectory))
	}
	return s.app.Dir
}

// outputName returns the requested artifact name or one derived from name,
// the version and the target by format.
func (s *session) outputName(name, format string) string {
	if s.req.OutputName != "" {
		return s.req.OutputName
	}
	return fmt.Sprintf(format, name, s.version, s.release, s.req.Runtime.PackageArch(s.req.Kind))
}

// packageName is the lower case name used by system package managers.
func (s *session) packageName() string {
	return strings.ReplaceAll(strings.ToLower(s.app.AppBaseName), "_", "-")
}

func (s *session) populate() {
	a, m := s.app, s.macros
	m.Set(macro.AppBaseName, a.AppBaseName)
	m.Set(macro.AppFriendlyName, a.AppFriendlyName)
	m.Set(macro.AppID, a.AppID)
	m.Set(macro.AppShortSummary, a.AppShortSummary)
	m.Set(macro.AppLicenseID, a.AppLicenseID)
	m.Set(macro.AppVersion, s.version)
	m.Set(macro.PackageRelease, s.release)
	m.Set(macro.PackageName, s.packageName())
	m.Set(macro.PackageKind, string(s.req.Kind))
	m.Set(macro.PackageArch, s.req.Runtime.PackageArch(s.req.Kind))

	m.Set(macro.PublisherName, a.Publisher.Name)
	m.Set(macro.PublisherID, a.Publisher.ID)
	m.Set(macro.PublisherCopyright, a.Publisher.Copyright)
	m.Set(macro.PublisherLinkName, a.Publisher.LinkName)
	m.Set(macro.PublisherLinkURL, a.Publisher.LinkURL)
	m.Set(macro.PublisherEmail, a.Publisher.Email)

	m.Set(macro.DesktopNoDisplay, boolString(a.Desktop.NoDisplay))
	m.Set(macro.DesktopIntegrate, boolString(!a.Desktop.NoDisplay))
	m.Set(macro.DesktopTerminal, boolString(a.Desktop.Terminal))
	m.Set(macro.DesktopStartupWMClass, a.Desktop.StartupWMClass)
	m.Set(macro.PrimeCategory, a.Desktop.PrimeCategory)
	m.Set(macro.AppStreamDescriptionXML, appstream.Description(a.AppDescription))

	m.Set(macro.DotnetRuntime, s.req.Runtime.ID)
	m.Set(macro.BuildTarget, s.req.PublishConfig)
	m.Set(macro.BuildArch, s.host.Arch())
	m.Set(macro.BuildDate, s.now.Format(time.DateOnly))
	m.Set(macro.BuildYear, s.now.Format("2006"))
}

// populateLayout publishes the paths chosen by the variant.
func (s *session) populateLayout() {
	m := s.macros
	m.Set(macro.BuildRoot, s.bc.BuildRoot)
	m.Set(macro.BuildShare, s.bc.Share)
	m.Set(macro.BuildAppBin, s.bc.AppBin)
	m.Set(macro.InstallBin, s.bc.InstallBin)
	m.Set(macro.InstallExec, s.bc.InstallExec)
}

func (s *session) validateCommon(errs *qerrors.List) {
	a := s.app
	if a.AppBaseName == "" {
		errs.Add(fmt.Errorf("app_base_name is required"))
	}
	if a.AppID == "" {
		errs.Add(fmt.Errorf("app_id is required"))
	}
	if s.versionErr != nil {
		errs.Add(s.versionErr)
	}
	checkFile(errs, a, "app_changelog_file", a.AppChangelogFile)
	checkFile(errs, a, "publish.pre_script", s.macros.Expand(a.Publish.PreScript))
	checkFile(errs, a, "publish.post_script", s.macros.Expand(a.Publish.PostScript))

	if s.defaultPublisher && !s.req.SkipPublish {
		if _, ok := s.host.LookPath(publish.DotnetTool); !ok {
			errs.Add(fmt.Errorf("%s not found in PATH", publish.DotnetTool))
		}
	}
	if rule, ok := capability.Lookup(s.req.Kind); ok && rule.Tool != "" {
		if _, ok := s.host.LookPath(rule.Tool); !ok {
			errs.Add(s.missingTool(rule.Tool, fmt.Sprintf("build %s packages", s.req.Kind)))
		}
	}
}

// missingTool reports a required tool absent from PATH, naming the install
// command when the Linux distribution packages it.
func (s *session) missingTool(tool, purpose string) error {
	msg := fmt.Sprintf("%s is required to %s but was not found in PATH", tool, purpose)
	d := s.host.Distro()
	if pkg := distroPackage(tool, d); pkg != "" {
		if cmd := d.InstallCommand(pkg); cmd != "" {
			msg += " (install it with: " + cmd + ")"
		}
	}
	return errors.New(msg)
}

// distroPackage names the distribution package providing tool, or "" when
// distributions do not ship it.
func distroPackage(tool string, d host.Distro) string {
	switch tool {
	case "dpkg-deb":
		return "dpkg"
	case "rpmbuild":
		if d.Like("fedora") || d.Like("rhel") || d.Like("suse") {
			return "rpm-build"
		}
		return "rpm"
	case "flatpak", "flatpak-builder":
		return tool
	}
	return ""
}

// checkFile records a problem when a configured path cannot be read.
// Unset paths are not checked.
func checkFile(errs *qerrors.List, app *config.App, field, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(app.Resolve(path))
	if err != nil {
		errs.Add(fmt.Errorf("%s: %w", field, err))
		return
	}
	f.Close()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
