package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/pupnet/internal/appstream"
	"github.com/goplus/pupnet/internal/archive"
	"github.com/goplus/pupnet/internal/deploy"
	"github.com/goplus/pupnet/internal/macro"
	"github.com/goplus/pupnet/internal/toolexec"
)

// skeletonStep replaces the staging tree with a fresh one holding dirs.
func (s *session) skeletonStep(dirs ...string) step {
	return always("create skeleton", func(ctx context.Context) error {
		if err := os.RemoveAll(s.bc.BuildRoot); err != nil {
			return fmt.Errorf("%w: %v", ErrFileSystem, err)
		}
		for _, dir := range append([]string{s.bc.BuildRoot}, dirs...) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("%w: %v", ErrFileSystem, err)
			}
		}
		return nil
	})
}

// publishStep compiles the application into the binary directory. hint
// is evaluated when the phase runs, after icons may have been prepared.
func (s *session) publishStep(hint func() string) step {
	return always("publish", func(ctx context.Context) error {
		s.macros.Set(macro.PublishBin, s.bc.AppBin)
		var iconHint string
		if hint != nil {
			iconHint = hint()
		}
		return s.pub.Publish(ctx, s.bc.AppBin, iconHint)
	})
}

// templateStep materializes one template file.
func (s *session) templateStep(name, src, def, dst string) step {
	return always(name, func(ctx context.Context) error {
		return s.materialize(src, def, dst)
	})
}

// permissionsStep marks the main executable and the staging tree readable
// and executable. Failures are warnings.
func (s *session) permissionsStep(treeMode string) step {
	return step{
		name:     "set permissions",
		optional: true,
		run: func(ctx context.Context) error {
			exec := filepath.Join(s.bc.AppBin, s.executableName())
			var failed bool
			for _, args := range [][]string{
				{"755", exec},
				{"-R", treeMode, s.bc.BuildRoot},
			} {
				if _, err := s.runner.Run(ctx, toolexec.Command{Tool: "chmod", Args: args}); err != nil {
					s.log.Warn("failed to set permissions", "path", args[len(args)-1], "error", s.san.Sanitize(err.Error()))
					failed = true
				}
			}
			if failed {
				return fmt.Errorf("permissions not fully applied")
			}
			return nil
		},
	}
}

// loadChangelog reads the configured changelog into its macro.
func (s *session) loadChangelog() error {
	if s.app.AppChangelogFile == "" {
		return nil
	}
	data, err := os.ReadFile(s.app.Resolve(s.app.AppChangelogFile))
	if err != nil {
		return fmt.Errorf("failed to read changelog: %w", err)
	}
	s.macros.Set(macro.AppStreamChangelogXML, appstream.Changelog(string(data)))
	return nil
}

// executableName is the file name of the main binary.
func (s *session) executableName() string {
	if s.req.Runtime.Family == deploy.Windows {
		return s.app.AppBaseName + ".exe"
	}
	return s.app.AppBaseName
}

// zipTree archives dir into dst with dir as the single top-level entry,
// using ditto when the host has it.
func (s *session) zipTree(ctx context.Context, dir, dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if _, ok := s.host.LookPath("ditto"); ok {
		_, err := s.runner.Run(ctx, toolexec.Command{
			Tool: "ditto",
			Args: []string{"-c", "-k", "--sequesterRsrc", "--keepParent", dir, dst},
		})
		return err
	}
	s.log.Info("ditto not available, using built-in zip", "dir", dir)
	return archive.Zip(dir, dst)
}

// prepareOutput creates the output directory and removes a stale artifact.
func (s *session) prepareOutput() (string, error) {
	out := s.bc.OutputPath()
	if err := os.MkdirAll(s.bc.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	return out, nil
}
