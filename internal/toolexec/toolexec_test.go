package toolexec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"testing"
)

const (
	secretIdentity = "Developer ID Application: Jane Roe (ABCDE12345)"
	secretAppleID  = "jane@example.com"
	secretTeam     = "ABCDE12345"
	secretPassword = "abcd-efgh-ijkl-mnop"
)

func newTestSanitizer() *Sanitizer {
	return NewSanitizer(secretIdentity, secretAppleID, secretTeam, secretPassword)
}

func TestSanitize(t *testing.T) {
	s := newTestSanitizer()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no secrets",
			in:   "Processing complete\nstatus: Accepted",
			want: "Processing complete\nstatus: Accepted",
		},
		{
			name: "each secret",
			in:   "--apple-id jane@example.com --team-id ABCDE12345 --password abcd-efgh-ijkl-mnop",
			want: "--apple-id [REDACTED] --team-id [REDACTED] --password [REDACTED]",
		},
		{
			name: "repeated",
			in:   "ABCDE12345/ABCDE12345",
			want: "[REDACTED]/[REDACTED]",
		},
		{
			name: "secret inside unrelated text",
			in:   "xxABCDE12345yy and mailto:jane@example.com.",
			want: "xx[REDACTED]yy and mailto:[REDACTED].",
		},
		{
			name: "longer secret containing shorter one",
			in:   `signing with "Developer ID Application: Jane Roe (ABCDE12345)"`,
			want: `signing with "[REDACTED]"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.in)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			for _, secret := range []string{secretIdentity, secretAppleID, secretTeam, secretPassword} {
				if strings.Contains(got, secret) {
					t.Errorf("Sanitize output %q still contains %q", got, secret)
				}
			}
		})
	}
}

func TestSanitizeEmptySecrets(t *testing.T) {
	s := NewSanitizer("", "")
	if got := s.Sanitize("nothing to hide"); got != "nothing to hide" {
		t.Errorf("Sanitize = %q", got)
	}
	var nilSanitizer *Sanitizer
	if got := nilSanitizer.Sanitize("x"); got != "x" {
		t.Errorf("nil Sanitize = %q", got)
	}
}

func TestSanitizeArgs(t *testing.T) {
	s := newTestSanitizer()
	args := []string{"--password", secretPassword}
	got := s.SanitizeArgs(args)
	if got[1] != Redacted {
		t.Errorf("SanitizeArgs = %v", got)
	}
	if args[1] != secretPassword {
		t.Error("SanitizeArgs modified its input")
	}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestInvokerRun(t *testing.T) {
	skipOnWindows(t)
	inv := NewInvoker(WithSanitizer(newTestSanitizer()))
	res, err := inv.Run(context.Background(), Command{
		Tool: "sh",
		Args: []string{"-c", `echo "id: 42 team ABCDE12345"; echo warn >&2`},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("ExitCode = %d", res.ExitCode)
	}
	if res.Stdout != "id: 42 team [REDACTED]\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "warn" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestInvokerFailure(t *testing.T) {
	skipOnWindows(t)
	inv := NewInvoker(WithSanitizer(newTestSanitizer()))
	res, err := inv.Run(context.Background(), Command{
		Tool: "sh",
		Args: []string{"-c", "echo bad password abcd-efgh-ijkl-mnop >&2; exit 3"},
	})
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("Run error = %v, want ErrToolFailed", err)
	}
	if res == nil || res.ExitCode != 3 {
		t.Fatalf("Result = %+v, want exit code 3", res)
	}
	if strings.Contains(err.Error(), secretPassword) {
		t.Errorf("error leaks secret: %v", err)
	}
	if !strings.Contains(err.Error(), Redacted) {
		t.Errorf("error = %v, want redacted stderr", err)
	}
}

func TestInvokerNotFound(t *testing.T) {
	inv := NewInvoker()
	_, err := inv.Run(context.Background(), Command{Tool: "pupnet-no-such-tool-xyz"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Run error = %v, want ErrToolNotFound", err)
	}
}

func TestInvokerEnvAndDir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	inv := NewInvoker()
	res, err := inv.Run(context.Background(), Command{
		Tool: "sh",
		Args: []string{"-c", `echo "$PUPNET_TEST_VALUE"; pwd`},
		Dir:  dir,
		Env:  map[string]string{"PUPNET_TEST_VALUE": "hello"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	if len(lines) != 2 || lines[0] != "hello" {
		t.Fatalf("Stdout = %q", res.Stdout)
	}
}

func TestInvokerLogsSanitizedCommand(t *testing.T) {
	skipOnWindows(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	inv := NewInvoker(WithSanitizer(newTestSanitizer()), WithLogger(logger), WithVerbose(true))
	_, err := inv.Run(context.Background(), Command{
		Tool: "sh",
		Args: []string{"-c", "echo " + secretAppleID, "--apple-id", secretAppleID},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.Contains(buf.String(), secretAppleID) {
		t.Errorf("log leaks secret:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), Redacted) {
		t.Errorf("log missing redaction marker:\n%s", buf.String())
	}
}

func TestInvokerLogsQuotedSecret(t *testing.T) {
	skipOnWindows(t)
	secret := `s3 "q7" \z9`
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	inv := NewInvoker(WithSanitizer(NewSanitizer(secret)), WithLogger(logger))
	if _, err := inv.Run(context.Background(), Command{Tool: "true", Args: []string{"--password", secret}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, leak := range []string{"q7", "z9"} {
		if strings.Contains(buf.String(), leak) {
			t.Errorf("log leaks part of the secret (%q):\n%s", leak, buf.String())
		}
	}
	if !strings.Contains(buf.String(), Redacted) {
		t.Errorf("log missing redaction marker:\n%s", buf.String())
	}
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-c", "Release"}, "dotnet -c Release"},
		{[]string{"a b", ""}, `dotnet "a b" ""`},
		{[]string{`say "hi"`}, `dotnet "say \"hi\""`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := commandLine("dotnet", tt.args); got != tt.want {
				t.Errorf("commandLine = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	want := []string{"A=1", "B=3", "C=4"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("mergeEnv = %v, want %v", got, want)
	}
}

func TestEnvMap(t *testing.T) {
	m := EnvMap([]string{"A=1", "B=x=y", "broken"})
	if m["A"] != "1" || m["B"] != "x=y" || len(m) != 2 {
		t.Errorf("EnvMap = %v", m)
	}
}
