package builder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/pupnet/internal/notary"
	"github.com/goplus/pupnet/internal/toolexec"
)

// Resource types that are never signed individually.
var unsignedExts = map[string]bool{
	".plist": true,
	".icns":  true,
	".ico":   true,
	".png":   true,
	".jpg":   true,
	".jpeg":  true,
	".gif":   true,
	".bmp":   true,
	".tif":   true,
	".tiff":  true,
	".svg":   true,
}

// signStep signs every eligible file of bundle, then the bundle itself,
// then verifies the result.
func (s *session) signStep(bundle string) step {
	return step{
		name:  "sign bundle",
		enter: s.canSign,
		run: func(ctx context.Context) error {
			ent, err := s.entitlements()
			if err != nil {
				return err
			}
			files, err := signableFiles(bundle)
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := s.codesign(ctx, f, ent); err != nil {
					return err
				}
			}
			if err := s.codesign(ctx, bundle, ent); err != nil {
				return err
			}
			s.verifySignature(ctx, bundle)
			return nil
		},
	}
}

// signImageStep signs a disk image container.
func (s *session) signImageStep(image string) step {
	return step{
		name:  "sign image",
		enter: s.canSign,
		run: func(ctx context.Context) error {
			return s.codesign(ctx, image, "")
		},
	}
}

func (s *session) canSign() (bool, string) {
	if s.req.Credentials.CanSign() {
		return true, ""
	}
	return false, "no signing identity"
}

// entitlements materializes the configured entitlements file into the
// working root. Signing without one is an error.
func (s *session) entitlements() (string, error) {
	src := s.app.MacOS.Entitlements
	if src == "" {
		return "", fmt.Errorf("%w: a signing identity was given but macos.entitlements is not set", ErrEntitlements)
	}
	if _, err := os.Stat(s.app.Resolve(s.macros.Expand(src))); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntitlements, err)
	}
	dst := filepath.Join(s.bc.Root, "entitlements.plist")
	if err := s.materialize(src, "", dst); err != nil {
		return "", err
	}
	return dst, nil
}

// signableFiles lists the regular files of bundle that need a signature.
func signableFiles(bundle string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(bundle, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "_CodeSignature" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || d.Name() == "PkgInfo" {
			return nil
		}
		if unsignedExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileSystem, err)
	}
	return files, nil
}

func (s *session) codesign(ctx context.Context, path, entitlements string) error {
	args := []string{"--force", "--timestamp"}
	if entitlements != "" {
		args = append(args, "--options", "runtime", "--entitlements", entitlements)
	}
	args = append(args, "--sign", s.req.Credentials.SigningIdentity, path)
	if _, err := s.runner.Run(ctx, toolexec.Command{Tool: "codesign", Args: args}); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrSigning, filepath.Base(path), s.san.Sanitize(err.Error()))
	}
	return nil
}

// verifySignature checks the signature; a failure is only a warning.
func (s *session) verifySignature(ctx context.Context, path string) {
	_, err := s.runner.Run(ctx, toolexec.Command{
		Tool: "codesign",
		Args: []string{"--verify", "--deep", "--strict", "--verbose=2", path},
	})
	if err != nil {
		s.log.Warn("signature verification failed", "path", path, "error", s.san.Sanitize(err.Error()))
		return
	}
	s.log.Info("signature verified", "path", path)
}

// notarizeStep notarizes artifact and staples the ticket.
func (s *session) notarizeStep(name, artifact string) step {
	return step{
		name: name,
		enter: func() (bool, string) {
			if s.req.Credentials.CanNotarize() {
				return true, ""
			}
			return false, "apple id, team id and app password are not all set"
		},
		run: func(ctx context.Context) error {
			n := notary.New(s.runner, s.req.Credentials,
				notary.WithLogger(s.log),
				notary.WithPackager(s.zipTree),
			)
			_, err := n.Notarize(ctx, artifact)
			return err
		},
	}
}
