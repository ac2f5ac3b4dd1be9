package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goplus/pupnet/internal/deploy"
)

func TestLinuxLayout(t *testing.T) {
	tests := []struct {
		kind        deploy.Kind
		output      string
		appBin      string
		installExec string
	}{
		{deploy.Deb, "hello_1.2.3-4_amd64.deb", "hello/opt/net.example.hello", "/opt/net.example.hello/Hello"},
		{deploy.Rpm, "hello-1.2.3-4.x86_64.rpm", "hello/opt/net.example.hello", "/opt/net.example.hello/Hello"},
		{deploy.AppImage, "Hello-1.2.3-4.x86_64.AppImage", "AppDir/usr/bin", "Hello"},
		{deploy.Flatpak, "Hello-1.2.3-4.x86_64.flatpak", "flatpak-src/bin", "/app/bin/Hello"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			f := newFixture(t, tt.kind, "linux-x64")
			b := f.builder(t)
			c := b.Context()
			if got := filepath.Base(b.OutputPath()); got != tt.output {
				t.Errorf("output = %s, want %s", got, tt.output)
			}
			if want := filepath.Join(f.work, filepath.FromSlash(tt.appBin)); c.AppBin != want {
				t.Errorf("AppBin = %s, want %s", c.AppBin, want)
			}
			if c.InstallExec != tt.installExec {
				t.Errorf("InstallExec = %s, want %s", c.InstallExec, tt.installExec)
			}
		})
	}
}

func TestLinuxValidate(t *testing.T) {
	f := newFixture(t, deploy.Flatpak, "linux-x64")
	f.app.IconFiles = []string{"Hello.icns"}
	f.app.Desktop.File = "missing.desktop"
	err := f.builder(t).Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate error = %v, want *ValidationError", err)
	}
	for _, want := range []string{"flatpak-builder", "flatpak is required", ".png or .svg", "desktop.file"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("report does not mention %q:\n%v", want, err)
		}
	}
	if len(verr.Problems) != 4 {
		t.Errorf("got %d problems, want 4", len(verr.Problems))
	}
}

func TestDebBuild(t *testing.T) {
	skipOnWindows(t)
	f := newFixture(t, deploy.Deb, "linux-x64")
	f.tools = []string{"dpkg-deb"}
	f.app.Deb.Depends = []string{"libc6", "libicu72"}
	f.app.AppChangelogFile = "CHANGES"
	changes := "+ 1.2.3;2026-02-01\n- First release\n"
	if err := os.WriteFile(filepath.Join(f.app.Dir, "CHANGES"), []byte(changes), 0644); err != nil {
		t.Fatal(err)
	}

	b := f.builder(t)
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v\n%s", err, f.logs)
	}
	root := b.Context().BuildRoot

	control := readFile(t, filepath.Join(root, "DEBIAN", "control"))
	wantControl := strings.Join([]string{
		"Package: hello",
		"Version: 1.2.3-4",
		"Section: misc",
		"Priority: optional",
		"Architecture: amd64",
		"Maintainer: Example <dev@example.net>",
		"Homepage: https://example.net",
		"Depends: libc6, libicu72",
		"Description: Says hello",
		"",
	}, "\n")
	if diff := cmp.Diff(wantControl, control); diff != "" {
		t.Errorf("control mismatch (-want +got):\n%s", diff)
	}

	desktop := readFile(t, filepath.Join(root, "usr", "share", "applications", "net.example.hello.desktop"))
	var keys []string
	for _, line := range strings.Split(strings.TrimSpace(desktop), "\n")[1:] {
		k, _, _ := strings.Cut(line, "=")
		keys = append(keys, k)
	}
	wantKeys := []string{"Type", "Name", "GenericName", "Icon", "Comment", "Exec", "TryExec",
		"StartupWMClass", "NoDisplay", "X-AppImage-Integrate", "Terminal", "Categories"}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Errorf("desktop key order mismatch (-want +got):\n%s", diff)
	}
	for _, want := range []string{"Exec=/opt/net.example.hello/Hello", "Categories=Development;", "X-AppImage-Integrate=true"} {
		if !strings.Contains(desktop, want) {
			t.Errorf("desktop entry lacks %q:\n%s", want, desktop)
		}
	}

	meta := readFile(t, filepath.Join(root, "usr", "share", "metainfo", "net.example.hello.metainfo.xml"))
	for _, want := range []string{"<p>Greets people.</p>", `<release version="1.2.3" date="2026-02-01">`, "<li>First release</li>"} {
		if !strings.Contains(meta, want) {
			t.Errorf("metainfo lacks %q:\n%s", want, meta)
		}
	}

	if _, err := os.Stat(filepath.Join(root, "usr", "share", "icons", "hicolor", "64x64", "apps", "net.example.hello.png")); err != nil {
		t.Errorf("png icon not installed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "usr", "share", "icons", "hicolor", "scalable", "apps", "net.example.hello.svg")); err != nil {
		t.Errorf("svg icon not installed: %v", err)
	}
	if link, err := os.Readlink(filepath.Join(root, "usr", "bin", "hello")); err != nil || link != "/opt/net.example.hello/Hello" {
		t.Errorf("launcher = %q, %v", link, err)
	}

	deb := f.runner.called("dpkg-deb")
	if len(deb) != 1 {
		t.Fatalf("dpkg-deb calls = %v", f.runner.calls)
	}
	want := []string{"--root-owner-group", "--build", root, b.OutputPath()}
	if !slices.Equal(deb[0].Args, want) {
		t.Errorf("dpkg-deb args = %v, want %v", deb[0].Args, want)
	}
	chmod := f.runner.called("chmod -R")
	if len(chmod) != 1 || chmod[0].Args[1] != "a+rX" {
		t.Errorf("chmod calls = %v", chmod)
	}
}

func TestRpmSpec(t *testing.T) {
	skipOnWindows(t)
	f := newFixture(t, deploy.Rpm, "linux-arm64")
	f.app.Rpm.Requires = []string{"glibc"}
	f.runner.fail["rpmbuild"] = true

	b := f.builder(t)
	err := b.Build(context.Background())
	var perr *PhaseError
	if !errors.As(err, &perr) || perr.Phase != "create package" {
		t.Fatalf("Build error = %v, want the package phase to fail", err)
	}

	spec := readFile(t, filepath.Join(f.work, "hello.spec"))
	for _, want := range []string{
		"Name: hello",
		"Version: 1.2.3",
		"Release: 4",
		"BuildArch: aarch64",
		"Requires: glibc",
		"cp -a " + b.Context().BuildRoot + "/. %{buildroot}/",
		"/opt/net.example.hello\n",
	} {
		if !strings.Contains(spec, want) {
			t.Errorf("spec lacks %q:\n%s", want, spec)
		}
	}
	if strings.Index(spec, "Requires:") > strings.Index(spec, "%description") {
		t.Errorf("Requires placed after the description:\n%s", spec)
	}
	rpm := f.runner.called("rpmbuild")
	if len(rpm) != 1 || !slices.Contains(rpm[0].Args, "_topdir "+filepath.Join(f.work, "rpmbuild")) {
		t.Errorf("rpmbuild calls = %v", rpm)
	}
}

func TestMoveRpm(t *testing.T) {
	top := t.TempDir()
	dir := filepath.Join(top, "RPMS", "x86_64")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hello-1.2.3-4.x86_64.rpm"), []byte("rpm"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "out.rpm")
	if err := moveRpm(top, out); err != nil {
		t.Fatalf("moveRpm failed: %v", err)
	}
	if got := readFile(t, out); got != "rpm" {
		t.Errorf("moved content = %q", got)
	}
	if err := moveRpm(top, out); err == nil {
		t.Error("moveRpm succeeded with no package")
	}
}

func TestAppImageBuild(t *testing.T) {
	skipOnWindows(t)
	f := newFixture(t, deploy.AppImage, "linux-x64")
	f.app.AppImage.Args = []string{"--no-appstream"}
	b := f.builder(t)
	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	appDir := b.Context().BuildRoot
	if link, err := os.Readlink(filepath.Join(appDir, "AppRun")); err != nil || link != filepath.Join("usr", "bin", "Hello") {
		t.Errorf("AppRun = %q, %v", link, err)
	}
	for _, name := range []string{"net.example.hello.desktop", "net.example.hello.svg"} {
		if _, err := os.Stat(filepath.Join(appDir, name)); err != nil {
			t.Errorf("%s missing from AppDir: %v", name, err)
		}
	}
	tool := f.runner.called("appimagetool")
	if len(tool) != 1 {
		t.Fatalf("appimagetool calls = %v", f.runner.calls)
	}
	if want := []string{"--no-appstream", appDir, b.OutputPath()}; !slices.Equal(tool[0].Args, want) {
		t.Errorf("appimagetool args = %v, want %v", tool[0].Args, want)
	}
	if tool[0].Env["ARCH"] != "x86_64" {
		t.Errorf("ARCH = %q", tool[0].Env["ARCH"])
	}
}

func TestFlatpakBuild(t *testing.T) {
	skipOnWindows(t)
	f := newFixture(t, deploy.Flatpak, "linux-x64")
	f.app.Flatpak.Runtime = "org.freedesktop.Platform"
	f.app.Flatpak.Sdk = "org.freedesktop.Sdk"
	f.app.Flatpak.RuntimeVersion = "23.08"
	b := f.builder(t)
	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var m flatpakManifest
	if err := yaml.Unmarshal([]byte(readFile(t, filepath.Join(f.work, "net.example.hello.yml"))), &m); err != nil {
		t.Fatal(err)
	}
	if m.AppID != "net.example.hello" || m.Command != "Hello" || m.RuntimeVersion != "23.08" {
		t.Errorf("manifest = %+v", m)
	}
	if diff := cmp.Diff(defaultFinishArgs, m.FinishArgs); diff != "" {
		t.Errorf("finish args mismatch (-want +got):\n%s", diff)
	}
	if len(m.Modules) != 1 || m.Modules[0].Sources[0].Path != b.Context().BuildRoot {
		t.Errorf("modules = %+v", m.Modules)
	}

	var tools []string
	for _, c := range f.runner.calls {
		if c.Tool != "chmod" {
			tools = append(tools, c.Tool+" "+c.Args[0])
		}
	}
	want := []string{"flatpak-builder --force-clean", "flatpak build-bundle"}
	if !slices.Equal(tools, want) {
		t.Errorf("tools = %v, want %v", tools, want)
	}
}

func TestMissingToolHint(t *testing.T) {
	tests := []struct {
		name      string
		kind      deploy.Kind
		osRelease string
		want      string
	}{
		{"deb on debian", deploy.Deb, "ID=debian\n", "(install it with: sudo apt install dpkg)"},
		{"rpm on fedora", deploy.Rpm, "ID=fedora\n", "(install it with: sudo dnf install rpm-build)"},
		{"rpm on ubuntu", deploy.Rpm, "ID=ubuntu\nID_LIKE=debian\n", "(install it with: sudo apt install rpm)"},
		{"flatpak on arch", deploy.Flatpak, "ID=arch\n", "(install it with: sudo pacman -S flatpak-builder)"},
		{"deb on unknown distro", deploy.Deb, "ID=nixos\n", ""},
		{"appimage on debian", deploy.AppImage, "ID=debian\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.kind, "linux-x64")
			f.osRelease = filepath.Join(t.TempDir(), "os-release")
			if err := os.WriteFile(f.osRelease, []byte(tt.osRelease), 0644); err != nil {
				t.Fatal(err)
			}
			err := f.builder(t).Validate()
			if err == nil {
				t.Fatal("Validate succeeded without the packaging tool")
			}
			if tt.want == "" {
				if strings.Contains(err.Error(), "install it with") {
					t.Errorf("unexpected install hint:\n%v", err)
				}
				return
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("report lacks %q:\n%v", tt.want, err)
			}
		})
	}
}
