package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	qerrors "github.com/qiniu/x/errors"
	"gopkg.in/yaml.v3"

	"github.com/goplus/pupnet/internal/archive"
	"github.com/goplus/pupnet/internal/deploy"
	"github.com/goplus/pupnet/internal/toolexec"
)

// linuxPackage builds deb, rpm, AppImage and Flatpak packages. They share a
// staging tree with binaries, hicolor icons, a desktop entry and AppStream
// metadata, and differ in the format files and the tool that seals it.
type linuxPackage struct {
	kind deploy.Kind
}

func (v linuxPackage) layout(s *session) BuildContext {
	root, id := s.bc.Root, s.app.AppID
	bc := BuildContext{Root: root, OutputDir: s.outputDir()}
	switch v.kind {
	case deploy.Deb, deploy.Rpm:
		bc.BuildRoot = filepath.Join(root, s.packageName())
		bc.AppBin = filepath.Join(bc.BuildRoot, "opt", id)
		bc.Share = filepath.Join(bc.BuildRoot, "usr", "share")
		bc.InstallBin = "/opt/" + id
		bc.InstallExec = bc.InstallBin + "/" + s.app.AppBaseName
		if v.kind == deploy.Deb {
			bc.OutputName = s.outputName(s.packageName(), "%s_%s-%s_%s.deb")
		} else {
			bc.OutputName = s.outputName(s.packageName(), "%s-%s-%s.%s.rpm")
		}
	case deploy.AppImage:
		bc.BuildRoot = filepath.Join(root, "AppDir")
		bc.AppBin = filepath.Join(bc.BuildRoot, "usr", "bin")
		bc.Share = filepath.Join(bc.BuildRoot, "usr", "share")
		bc.InstallBin = "usr/bin"
		bc.InstallExec = s.app.AppBaseName
		bc.OutputName = s.outputName(s.app.AppBaseName, "%s-%s-%s.%s.AppImage")
	case deploy.Flatpak:
		bc.BuildRoot = filepath.Join(root, "flatpak-src")
		bc.AppBin = filepath.Join(bc.BuildRoot, "bin")
		bc.Share = filepath.Join(bc.BuildRoot, "share")
		bc.InstallBin = "/app/bin"
		bc.InstallExec = bc.InstallBin + "/" + s.app.AppBaseName
		bc.OutputName = s.outputName(s.app.AppBaseName, "%s-%s-%s.%s.flatpak")
	}
	return bc
}

func (v linuxPackage) validate(s *session, errs *qerrors.List) {
	normalizeIcons(s.app)
	if len(iconsWithExt(s.app.IconFiles, ".png"))+len(iconsWithExt(s.app.IconFiles, ".svg")) == 0 {
		errs.Add(fmt.Errorf("icon_files: no .png or .svg icon, which is required for %s packages", v.kind))
	}
	checkFile(errs, s.app, "desktop.file", s.app.Desktop.File)
	checkFile(errs, s.app, "desktop.meta_file", s.app.Desktop.MetaFile)
	if v.kind == deploy.Flatpak {
		if _, ok := s.host.LookPath("flatpak"); !ok {
			errs.Add(s.missingTool("flatpak", "bundle flatpak packages"))
		}
	}
}

func (v linuxPackage) steps(s *session) []step {
	bc, id := s.bc, s.app.AppID
	apps := filepath.Join(bc.Share, "applications")
	meta := filepath.Join(bc.Share, "metainfo")
	steps := []step{
		s.skeletonStep(bc.AppBin, apps, meta),
		s.publishStep(nil),
		always("install icons", func(ctx context.Context) error {
			return s.installIcons(v.kind == deploy.AppImage)
		}),
		always("write desktop entry", func(ctx context.Context) error {
			dst := filepath.Join(apps, id+".desktop")
			if err := s.materialize(s.app.Desktop.File, DesktopTemplate, dst); err != nil {
				return err
			}
			if v.kind == deploy.AppImage {
				return s.materialize(s.app.Desktop.File, DesktopTemplate, filepath.Join(bc.BuildRoot, id+".desktop"))
			}
			return nil
		}),
		always("write metainfo", func(ctx context.Context) error {
			if err := s.loadChangelog(); err != nil {
				return err
			}
			return s.materialize(s.app.Desktop.MetaFile, MetaInfoTemplate, filepath.Join(meta, id+".metainfo.xml"))
		}),
	}
	switch v.kind {
	case deploy.Deb:
		steps = append(steps, always("write control", s.writeDebControl), always("link launcher", s.linkLauncher))
	case deploy.Rpm:
		steps = append(steps, always("write rpm spec", s.writeRpmSpec), always("link launcher", s.linkLauncher))
	case deploy.AppImage:
		steps = append(steps, always("link AppRun", func(ctx context.Context) error {
			return symlink(filepath.Join("usr", "bin", s.app.AppBaseName), filepath.Join(bc.BuildRoot, "AppRun"))
		}))
	case deploy.Flatpak:
		steps = append(steps, always("write flatpak manifest", s.writeFlatpakManifest))
	}
	steps = append(steps, s.permissionsStep("a+rX"))
	return append(steps, always("create package", func(ctx context.Context) error {
		return s.seal(ctx, v.kind)
	}))
}

// installIcons copies icons into the hicolor theme. AppImage also takes the
// largest icon at the root of the AppDir.
func (s *session) installIcons(appDir bool) error {
	normalizeIcons(s.app)
	hicolor := filepath.Join(s.bc.Share, "icons", "hicolor")
	id := s.app.AppID
	for _, png := range iconsWithExt(s.app.IconFiles, ".png") {
		size := iconSize(png)
		if size == 0 {
			s.log.Warn("skipping png icon without a size in its name", "icon", png)
			continue
		}
		dir := strconv.Itoa(size) + "x" + strconv.Itoa(size)
		if err := copyIcon(png, filepath.Join(hicolor, dir, "apps", id+".png")); err != nil {
			return err
		}
	}
	if svg := iconsWithExt(s.app.IconFiles, ".svg"); len(svg) > 0 {
		if err := copyIcon(svg[0], filepath.Join(hicolor, "scalable", "apps", id+".svg")); err != nil {
			return err
		}
	}
	if !appDir {
		return nil
	}
	icon, ok := largestIcon(s.app.IconFiles)
	if !ok {
		return fmt.Errorf("no .png or .svg icon")
	}
	return copyIcon(icon, filepath.Join(s.bc.BuildRoot, id+filepath.Ext(icon)))
}

// linkLauncher puts the main executable on the PATH of the installed system.
func (s *session) linkLauncher(ctx context.Context) error {
	return symlink(s.bc.InstallExec, filepath.Join(s.bc.BuildRoot, "usr", "bin", s.packageName()))
}

func (s *session) writeDebControl(ctx context.Context) error {
	text, err := s.render("", ControlTemplate)
	if err != nil {
		return err
	}
	if deps := s.app.Deb.Depends; len(deps) > 0 {
		text = insertBefore(text, "Description:", "Depends: "+strings.Join(deps, ", "))
	}
	return writeText(filepath.Join(s.bc.BuildRoot, "DEBIAN", "control"), text)
}

func (s *session) rpmSpecPath() string {
	return filepath.Join(s.bc.Root, s.packageName()+".spec")
}

func (s *session) writeRpmSpec(ctx context.Context) error {
	text, err := s.render("", RpmSpecTemplate)
	if err != nil {
		return err
	}
	if reqs := s.app.Rpm.Requires; len(reqs) > 0 {
		text = insertBefore(text, "%description", "Requires: "+strings.Join(reqs, ", "), "")
	}
	return writeText(s.rpmSpecPath(), text)
}

type flatpakManifest struct {
	AppID          string          `yaml:"app-id"`
	Runtime        string          `yaml:"runtime"`
	RuntimeVersion string          `yaml:"runtime-version"`
	Sdk            string          `yaml:"sdk"`
	Command        string          `yaml:"command"`
	FinishArgs     []string        `yaml:"finish-args,omitempty"`
	Modules        []flatpakModule `yaml:"modules"`
}

type flatpakModule struct {
	Name          string          `yaml:"name"`
	Buildsystem   string          `yaml:"buildsystem"`
	BuildCommands []string        `yaml:"build-commands"`
	Sources       []flatpakSource `yaml:"sources"`
}

type flatpakSource struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

var defaultFinishArgs = []string{"--socket=wayland", "--socket=fallback-x11", "--share=ipc", "--device=dri"}

func (s *session) flatpakManifestPath() string {
	return filepath.Join(s.bc.Root, s.app.AppID+".yml")
}

func (s *session) writeFlatpakManifest(ctx context.Context) error {
	fp := s.app.Flatpak
	finish := fp.FinishArgs
	if len(finish) == 0 {
		finish = defaultFinishArgs
	}
	m := flatpakManifest{
		AppID:          s.app.AppID,
		Runtime:        fp.Runtime,
		RuntimeVersion: fp.RuntimeVersion,
		Sdk:            fp.Sdk,
		Command:        s.app.AppBaseName,
		FinishArgs:     finish,
		Modules: []flatpakModule{{
			Name:        s.packageName(),
			Buildsystem: "simple",
			BuildCommands: []string{
				"mkdir -p /app/bin /app/share",
				"cp -a bin/. /app/bin/",
				"cp -a share/. /app/share/",
			},
			Sources: []flatpakSource{{Type: "dir", Path: s.bc.BuildRoot}},
		}},
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return err
	}
	return writeText(s.flatpakManifestPath(), string(data))
}

// seal runs the format tool over the staging tree.
func (s *session) seal(ctx context.Context, kind deploy.Kind) error {
	out, err := s.prepareOutput()
	if err != nil {
		return err
	}
	run := func(tool string, args ...string) error {
		_, err := s.runner.Run(ctx, toolexec.Command{Tool: tool, Args: args, Dir: s.bc.Root})
		return err
	}
	switch kind {
	case deploy.Deb:
		return run("dpkg-deb", "--root-owner-group", "--build", s.bc.BuildRoot, out)
	case deploy.Rpm:
		top := filepath.Join(s.bc.Root, "rpmbuild")
		if err := run("rpmbuild", "-bb", "--define", "_topdir "+top, "--define", "_build_id_links none", s.rpmSpecPath()); err != nil {
			return err
		}
		return moveRpm(top, out)
	case deploy.AppImage:
		args := append(append([]string{}, s.app.AppImage.Args...), s.bc.BuildRoot, out)
		_, err := s.runner.Run(ctx, toolexec.Command{
			Tool: "appimagetool",
			Args: args,
			Dir:  s.bc.Root,
			Env:  map[string]string{"ARCH": s.req.Runtime.PackageArch(deploy.AppImage)},
		})
		return err
	case deploy.Flatpak:
		repo := filepath.Join(s.bc.Root, "repo")
		args := []string{"--force-clean", "--repo=" + repo}
		args = append(args, s.app.Flatpak.BuilderArgs...)
		args = append(args, filepath.Join(s.bc.Root, "build-dir"), s.flatpakManifestPath())
		if err := run("flatpak-builder", args...); err != nil {
			return err
		}
		return run("flatpak", "build-bundle", repo, out, s.app.AppID)
	}
	return fmt.Errorf("no format tool for %s", kind)
}

// moveRpm moves the package produced by rpmbuild to out.
func moveRpm(top, out string) error {
	found, err := filepath.Glob(filepath.Join(top, "RPMS", "*", "*.rpm"))
	if err != nil {
		return err
	}
	if len(found) != 1 {
		return fmt.Errorf("expected one package under %s, found %d", filepath.Join(top, "RPMS"), len(found))
	}
	if err := os.Rename(found[0], out); err == nil {
		return nil
	}
	if err := archive.CopyFile(found[0], out, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	return nil
}

func symlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	return nil
}
