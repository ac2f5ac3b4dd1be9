// Package host describes the machine running the build.
//
// A [Service] is created once per process and passed to whatever needs host
// facts. It memoizes the values that are expensive or noisy to recompute:
// the machine architecture, the Linux distribution and tool locations.
package host

import (
	"bufio"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/goplus/pupnet/internal/deploy"
)

const osReleaseFile = "/etc/os-release"

// Distro identifies a Linux distribution as reported by os-release.
type Distro struct {
	ID         string
	IDLike     []string
	PrettyName string
}

// Like reports whether the distribution is id or derives from it.
func (d Distro) Like(id string) bool {
	return d.ID == id || slices.Contains(d.IDLike, id)
}

// InstallCommand returns the command installing pkg with the native package
// manager, or "" when the distribution is not recognized.
func (d Distro) InstallCommand(pkg string) string {
	switch {
	case d.Like("debian"), d.Like("ubuntu"):
		return "sudo apt install " + pkg
	case d.Like("fedora"), d.Like("rhel"):
		return "sudo dnf install " + pkg
	case d.Like("suse"), d.Like("opensuse"):
		return "sudo zypper install " + pkg
	case d.Like("arch"):
		return "sudo pacman -S " + pkg
	}
	return ""
}

// Service answers questions about the host.
type Service struct {
	goos       string
	lookPath   func(string) (string, error)
	osRelease  string
	archOnce   sync.Once
	arch       string
	distroOnce sync.Once
	distro     Distro

	mu    sync.Mutex
	tools map[string]string
}

// Option configures a Service.
type Option func(*Service)

// WithGOOS overrides the host operating system.
func WithGOOS(goos string) Option {
	return func(s *Service) {
		s.goos = goos
	}
}

// WithLookPath replaces the executable lookup function.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(s *Service) {
		s.lookPath = fn
	}
}

// WithOSRelease sets the os-release file read for distribution detection.
func WithOSRelease(path string) Option {
	return func(s *Service) {
		s.osRelease = path
	}
}

// New creates a Service for the running host.
func New(opts ...Option) *Service {
	s := &Service{
		goos:      runtime.GOOS,
		lookPath:  exec.LookPath,
		osRelease: osReleaseFile,
		tools:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OS returns the host operating system family.
func (s *Service) OS() deploy.OS {
	return deploy.HostOS(s.goos)
}

// Arch returns the machine architecture, e.g. "x86_64" or "arm64".
func (s *Service) Arch() string {
	s.archOnce.Do(func() {
		s.arch = machine()
		if s.arch == "" {
			s.arch = runtime.GOARCH
		}
	})
	return s.arch
}

// Distro returns the Linux distribution. It is empty on other systems or
// when os-release cannot be read.
func (s *Service) Distro() Distro {
	s.distroOnce.Do(func() {
		if s.OS() != deploy.Linux {
			return
		}
		f, err := os.Open(s.osRelease)
		if err != nil {
			return
		}
		defer f.Close()
		s.distro = parseOSRelease(bufio.NewScanner(f))
	})
	return s.distro
}

// LookPath returns the location of tool and whether it was found. Results,
// including misses, are cached for the life of the Service.
func (s *Service) LookPath(tool string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.tools[tool]; ok {
		return p, p != ""
	}
	p, err := s.lookPath(tool)
	if err != nil {
		p = ""
	}
	s.tools[tool] = p
	return p, p != ""
}

func parseOSRelease(sc *bufio.Scanner) Distro {
	var d Distro
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"'`)
		switch k {
		case "ID":
			d.ID = v
		case "ID_LIKE":
			d.IDLike = strings.Fields(v)
		case "PRETTY_NAME":
			d.PrettyName = v
		}
	}
	return d
}
