package builder

import (
	"context"
	"fmt"
	"path/filepath"

	qerrors "github.com/qiniu/x/errors"

	"github.com/goplus/pupnet/internal/archive"
	"github.com/goplus/pupnet/internal/deploy"
)

// portable ships the published directory as an archive: tar.xz for linux
// runtimes, zip otherwise.
type portable struct{}

func (portable) tarball(s *session) bool {
	return s.req.Runtime.Family == deploy.Linux
}

func (v portable) layout(s *session) BuildContext {
	dir := filepath.Join(s.bc.Root, s.app.AppBaseName+"-"+s.version)
	format := "%s-%s-%s." + string(s.req.Runtime.Family) + "-%s.zip"
	if v.tarball(s) {
		format = "%s-%s-%s." + string(s.req.Runtime.Family) + "-%s.tar.xz"
	}
	return BuildContext{
		Root:        s.bc.Root,
		BuildRoot:   dir,
		AppBin:      dir,
		InstallBin:  ".",
		InstallExec: s.executableName(),
		OutputDir:   s.outputDir(),
		OutputName:  s.outputName(s.app.AppBaseName, format),
	}
}

func (portable) validate(s *session, errs *qerrors.List) {
	normalizeIcons(s.app)
}

func (v portable) steps(s *session) []step {
	return []step{
		s.skeletonStep(),
		s.publishStep(nil),
		always("archive", func(ctx context.Context) error {
			out, err := s.prepareOutput()
			if err != nil {
				return err
			}
			if v.tarball(s) {
				err = archive.TarXz(s.bc.BuildRoot, out)
			} else {
				err = archive.Zip(s.bc.BuildRoot, out)
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrFileSystem, err)
			}
			return nil
		}),
	}
}
