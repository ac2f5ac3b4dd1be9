package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
)

func TestWorkDir(t *testing.T) {
	dir, err := WorkDir()
	if err != nil {
		t.Fatalf("WorkDir() returned error: %v", err)
	}

	if want := filepath.Join(xdg.CacheHome, "pupnet"); dir != want {
		t.Errorf("WorkDir() = %q, want %q", dir, want)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("WorkDir() created a file instead of a directory")
	}
}

// TestWorkDirIdempotent verifies that repeated calls return the same path.
func TestWorkDirIdempotent(t *testing.T) {
	dir1, err := WorkDir()
	if err != nil {
		t.Fatalf("First WorkDir() call failed: %v", err)
	}
	dir2, err := WorkDir()
	if err != nil {
		t.Fatalf("Second WorkDir() call failed: %v", err)
	}
	if dir1 != dir2 {
		t.Errorf("WorkDir() not idempotent: first call = %q, second call = %q", dir1, dir2)
	}
}

func TestBuildDir(t *testing.T) {
	dir, err := BuildDir("net.example.hello", "deb", "linux-x64")
	if err != nil {
		t.Fatalf("BuildDir() failed: %v", err)
	}
	if filepath.Base(dir) != "net.example.hello-deb-linux-x64" {
		t.Errorf("BuildDir() = %q", dir)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("BuildDir() should not create the directory, stat err = %v", err)
	}
}
