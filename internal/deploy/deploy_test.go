package deploy

import "testing"

func TestParseRuntime(t *testing.T) {
	tests := []struct {
		rid     string
		family  OS
		arch    string
		wantErr bool
	}{
		{rid: "linux-x64", family: Linux, arch: "x64"},
		{rid: "OSX-ARM64", family: MacOS, arch: "arm64"},
		{rid: "win-x86", family: Windows, arch: "x86"},
		{rid: "linux-musl-x64", family: Linux, arch: "x64"},
		{rid: "linux", wantErr: true},
		{rid: "linux-", wantErr: true},
		{rid: "freebsd-x64", wantErr: true},
		{rid: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.rid, func(t *testing.T) {
			got, err := ParseRuntime(tt.rid)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRuntime(%q) = %+v, want error", tt.rid, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRuntime(%q) failed: %v", tt.rid, err)
			}
			if got.Family != tt.family || got.Arch != tt.arch {
				t.Errorf("ParseRuntime(%q) = %+v, want family %q arch %q", tt.rid, got, tt.family, tt.arch)
			}
		})
	}
}

func TestPackageArch(t *testing.T) {
	tests := []struct {
		rid  string
		kind Kind
		want string
	}{
		{"linux-x64", Deb, "amd64"},
		{"linux-arm64", Rpm, "aarch64"},
		{"linux-x64", AppImage, "x86_64"},
		{"osx-arm64", DMG, "arm64"},
		{"osx-x64", OSX, "x86_64"},
		{"win-x64", Setup, "x64"},
		{"linux-riscv64", Deb, "riscv64"},
	}
	for _, tt := range tests {
		r, err := ParseRuntime(tt.rid)
		if err != nil {
			t.Fatal(err)
		}
		if got := r.PackageArch(tt.kind); got != tt.want {
			t.Errorf("%s.PackageArch(%s) = %q, want %q", tt.rid, tt.kind, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(" " + string(k) + " ")
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("msi"); err == nil {
		t.Error("ParseKind(msi) should fail")
	}
}

func TestCredentials(t *testing.T) {
	var c Credentials
	if c.CanSign() || c.CanNotarize() {
		t.Fatal("empty credentials should allow neither signing nor notarization")
	}
	c = Credentials{SigningIdentity: "id", AppleID: "a", TeamID: "t"}
	if !c.CanSign() {
		t.Error("CanSign() = false with identity")
	}
	if c.CanNotarize() {
		t.Error("CanNotarize() = true without password")
	}
	c.AppPassword = "p"
	if !c.CanNotarize() {
		t.Error("CanNotarize() = false with full triple")
	}
}
