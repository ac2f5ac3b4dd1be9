package env

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Name used for cache directory naming.
const appName = "pupnet"

// WorkDir returns the directory under which builds place their working
// trees, creating it if needed.
func WorkDir() (string, error) {
	dir := filepath.Join(xdg.CacheHome, appName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// BuildDir returns the working tree location for one application, package
// kind and runtime. The directory itself is not created.
func BuildDir(appID, kind, runtime string) (string, error) {
	root, err := WorkDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, appID+"-"+kind+"-"+runtime), nil
}
