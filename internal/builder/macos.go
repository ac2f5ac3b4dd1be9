package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	qerrors "github.com/qiniu/x/errors"

	"github.com/goplus/pupnet/internal/archive"
	"github.com/goplus/pupnet/internal/macro"
	"github.com/goplus/pupnet/internal/toolexec"
)

// pkgInfo is the type and creator code of an application bundle.
const pkgInfo = "APPL????"

// macBundle builds an application bundle, shipped as a zip archive or, with
// image set, as a disk image.
type macBundle struct {
	image bool
}

func (v macBundle) layout(s *session) BuildContext {
	bundle := filepath.Join(s.bc.Root, s.app.AppBaseName+".app")
	contents := filepath.Join(bundle, "Contents")
	format := "%s-%s-%s.osx-%s.zip"
	if v.image {
		format = "%s-%s-%s.osx-%s.dmg"
	}
	installBin := "/Applications/" + s.app.AppBaseName + ".app/Contents/MacOS"
	return BuildContext{
		Root:        s.bc.Root,
		BuildRoot:   bundle,
		AppBin:      filepath.Join(contents, "MacOS"),
		Share:       filepath.Join(contents, "Resources"),
		InstallBin:  installBin,
		InstallExec: installBin + "/" + s.app.AppBaseName,
		OutputDir:   s.outputDir(),
		OutputName:  s.outputName(s.app.AppBaseName, format),
	}
}

func (v macBundle) validate(s *session, errs *qerrors.List) {
	normalizeIcons(s.app)
	if len(iconsWithExt(s.app.IconFiles, ".icns")) == 0 {
		errs.Add(fmt.Errorf("icon_files: no .icns icon, which is required for macOS bundles"))
	}
	checkFile(errs, s.app, "macos.info_plist", s.app.MacOS.InfoPlist)
	checkFile(errs, s.app, "macos.entitlements", s.app.MacOS.Entitlements)
}

func (v macBundle) steps(s *session) []step {
	bundle := s.bc.BuildRoot
	contents := filepath.Dir(s.bc.AppBin)
	steps := []step{
		s.skeletonStep(s.bc.AppBin, s.bc.Share),
		s.publishStep(nil),
		always("copy icon", func(ctx context.Context) error {
			normalizeIcons(s.app)
			icns := iconsWithExt(s.app.IconFiles, ".icns")
			if len(icns) == 0 {
				return fmt.Errorf("no .icns icon")
			}
			name := s.app.AppBaseName + ".icns"
			s.macros.Set(macro.MacOSIconFile, name)
			return copyIcon(icns[0], filepath.Join(s.bc.Share, name))
		}),
		s.templateStep("write Info.plist", s.app.MacOS.InfoPlist, InfoPlistTemplate, filepath.Join(contents, "Info.plist")),
		always("write PkgInfo", func(ctx context.Context) error {
			return writeText(filepath.Join(contents, "PkgInfo"), pkgInfo)
		}),
		s.permissionsStep("a+rx"),
		s.signStep(bundle),
		s.notarizeStep("notarize bundle", bundle),
	}
	if !v.image {
		return append(steps, always("archive bundle", func(ctx context.Context) error {
			out, err := s.prepareOutput()
			if err != nil {
				return err
			}
			return s.zipTree(ctx, bundle, out)
		}))
	}

	image := s.bc.OutputPath()
	staging := filepath.Join(s.bc.Root, "dmg-"+s.id.String()[:8])
	return append(steps,
		always("stage image", func(ctx context.Context) error {
			return s.stageImage(ctx, bundle, staging)
		}),
		always("create image", func(ctx context.Context) error {
			out, err := s.prepareOutput()
			if err != nil {
				return err
			}
			_, err = s.runner.Run(ctx, toolexec.Command{
				Tool: "hdiutil",
				Args: []string{"create", "-volname", s.app.AppFriendlyName, "-srcfolder", staging, "-ov", "-format", "UDZO", out},
			})
			return err
		}),
		s.signImageStep(image),
		s.notarizeStep("notarize image", image),
	)
}

// stageImage lays out the disk image contents: a copy of the bundle and a
// link to the system applications folder.
func (s *session) stageImage(ctx context.Context, bundle, staging string) error {
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	dst := filepath.Join(staging, filepath.Base(bundle))
	if _, ok := s.host.LookPath("ditto"); ok {
		if _, err := s.runner.Run(ctx, toolexec.Command{Tool: "ditto", Args: []string{bundle, dst}}); err != nil {
			return err
		}
	} else if err := archive.CopyTree(bundle, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if err := os.Symlink("/Applications", filepath.Join(staging, "Applications")); err != nil {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	return nil
}
