package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// makeBundle creates Hello.app with a nested layout and returns its path.
func makeBundle(t *testing.T) string {
	t.Helper()
	bundle := filepath.Join(t.TempDir(), "Hello.app")
	files := map[string]string{
		"Contents/Info.plist":        "<plist/>",
		"Contents/PkgInfo":           "APPL????",
		"Contents/MacOS/Hello":       "#!/bin/sh\necho hello\n",
		"Contents/Resources/app.txt": "resource",
	}
	for name, content := range files {
		p := filepath.Join(bundle, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Chmod(filepath.Join(bundle, "Contents", "MacOS", "Hello"), 0755); err != nil {
		t.Fatal(err)
	}
	return bundle
}

var wantEntries = []string{
	"Hello.app/",
	"Hello.app/Contents/",
	"Hello.app/Contents/Info.plist",
	"Hello.app/Contents/MacOS/",
	"Hello.app/Contents/MacOS/Hello",
	"Hello.app/Contents/PkgInfo",
	"Hello.app/Contents/Resources/",
	"Hello.app/Contents/Resources/app.txt",
}

func TestZip(t *testing.T) {
	bundle := makeBundle(t)
	dest := filepath.Join(t.TempDir(), "Hello.zip")
	if err := Zip(bundle, dest); err != nil {
		t.Fatalf("Zip failed: %v", err)
	}

	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.Name == "Hello.app/Contents/MacOS/Hello" {
			if runtime.GOOS != "windows" && f.Mode().Perm()&0o100 == 0 {
				t.Errorf("executable bit lost: %v", f.Mode())
			}
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != "#!/bin/sh\necho hello\n" {
				t.Errorf("content = %q", data)
			}
		}
	}
	sort.Strings(names)
	if diff := cmp.Diff(wantEntries, names); diff != "" {
		t.Errorf("zip entries mismatch (-want +got):\n%s", diff)
	}
}

func TestTarXz(t *testing.T) {
	bundle := makeBundle(t)
	dest := filepath.Join(t.TempDir(), "Hello.tar.xz")
	if err := TarXz(bundle, dest); err != nil {
		t.Fatalf("TarXz failed: %v", err)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(xr)
	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, h.Name)
	}
	sort.Strings(names)
	if diff := cmp.Diff(wantEntries, names); diff != "" {
		t.Errorf("tar entries mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyTree(t *testing.T) {
	bundle := makeBundle(t)
	if runtime.GOOS != "windows" {
		if err := os.Symlink("MacOS/Hello", filepath.Join(bundle, "Contents", "link")); err != nil {
			t.Fatal(err)
		}
	}
	dst := filepath.Join(t.TempDir(), "copy", "Hello.app")
	if err := CopyTree(bundle, dst); err != nil {
		t.Fatalf("CopyTree failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "Contents", "PkgInfo"))
	if err != nil || string(data) != "APPL????" {
		t.Fatalf("PkgInfo = %q, %v", data, err)
	}
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(filepath.Join(dst, "Contents", "MacOS", "Hello"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
	link, err := os.Readlink(filepath.Join(dst, "Contents", "link"))
	if err != nil || link != "MacOS/Hello" {
		t.Errorf("symlink = %q, %v", link, err)
	}
}
