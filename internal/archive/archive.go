// Package archive implements the portable compression routines used when no
// platform archiving tool is available.
//
// Archives always hold the source directory as their single top-level
// entry, matching what the platform tools produce.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// Zip writes srcDir into a zip archive at dest. The archive's only
// top-level entry is the base name of srcDir.
func Zip(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	err = walk(srcDir, func(path, name string, info fs.FileInfo) error {
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name
		if info.IsDir() {
			header.Name += "/"
			_, err = w.CreateHeader(header)
			return err
		}
		header.Method = zip.Deflate
		if info.Mode()&fs.ModeSymlink != 0 {
			header.Method = zip.Store
		}
		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		return writeContent(writer, path, info)
	})
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}

// TarXz writes srcDir into an xz-compressed tar archive at dest.
func TarXz(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	xw, err := xz.NewWriter(f)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(xw)
	err = walk(srcDir, func(path, name string, info fs.FileInfo) error {
		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			link = target
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = name
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(tw, path)
	})
	if err != nil {
		tw.Close()
		xw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := xw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// walk visits srcDir and everything below it in lexical order, passing the
// slash-separated archive name rooted at the base name of srcDir.
func walk(srcDir string, fn func(path, name string, info fs.FileInfo) error) error {
	srcDir = filepath.Clean(srcDir)
	root := filepath.Base(srcDir)
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		name := root
		if rel != "." {
			name = root + "/" + filepath.ToSlash(rel)
		}
		return fn(path, name, info)
	})
}

func writeContent(w io.Writer, path string, info fs.FileInfo) error {
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, target)
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("archive: unsupported file type: %s", path)
	}
	return copyFile(w, path)
}

func copyFile(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}
