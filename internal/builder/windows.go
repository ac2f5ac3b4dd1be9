package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	qerrors "github.com/qiniu/x/errors"

	"github.com/goplus/pupnet/internal/toolexec"
)

// windowsSetup builds an Inno Setup installer.
type windowsSetup struct{}

func (windowsSetup) layout(s *session) BuildContext {
	root := s.bc.Root
	return BuildContext{
		Root:        root,
		BuildRoot:   filepath.Join(root, "publish"),
		AppBin:      filepath.Join(root, "publish"),
		InstallBin:  "{app}",
		InstallExec: `{app}\` + s.app.AppBaseName + ".exe",
		OutputDir:   s.outputDir(),
		OutputName:  s.outputName(s.app.AppBaseName, "%sSetup-%s-%s.win-%s.exe"),
	}
}

func (windowsSetup) validate(s *session, errs *qerrors.List) {
	normalizeIcons(s.app)
	if len(iconsWithExt(s.app.IconFiles, ".ico")) == 0 {
		errs.Add(fmt.Errorf("icon_files: no .ico icon, which is required for setup packages"))
	}
}

func (v windowsSetup) steps(s *session) []step {
	icon := filepath.Join(s.bc.Root, s.app.AppID+".ico")
	script := filepath.Join(s.bc.Root, s.app.AppID+".iss")
	return []step{
		s.skeletonStep(),
		always("copy icon", func(ctx context.Context) error {
			normalizeIcons(s.app)
			ico := iconsWithExt(s.app.IconFiles, ".ico")
			if len(ico) == 0 {
				return fmt.Errorf("no .ico icon")
			}
			return copyIcon(ico[0], icon)
		}),
		s.publishStep(func() string { return icon }),
		always("write setup script", func(ctx context.Context) error {
			text, err := s.render("", SetupTemplate)
			if err != nil {
				return err
			}
			return writeText(script, v.customize(s, text, icon))
		}),
		always("compile installer", func(ctx context.Context) error {
			out, err := s.prepareOutput()
			if err != nil {
				return err
			}
			base := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
			_, err = s.runner.Run(ctx, toolexec.Command{
				Tool: "iscc",
				Args: []string{"/Q", "/O" + filepath.Dir(out), "/F" + base, script},
				Dir:  s.bc.Root,
			})
			return err
		}),
	}
}

// customize adds the configured setup options to the rendered script.
func (windowsSetup) customize(s *session, text, icon string) string {
	opts := s.app.Setup
	lines := []string{"SetupIconFile=" + icon}
	if opts.GroupName != "" {
		lines = append(lines, "DefaultGroupName="+opts.GroupName)
	} else {
		lines = append(lines, "DefaultGroupName="+s.app.AppFriendlyName)
	}
	if opts.AdminInstall {
		lines = append(lines, "PrivilegesRequired=admin")
	} else {
		lines = append(lines, "PrivilegesRequired=lowest")
	}
	if opts.MinWindowsVersion != "" {
		lines = append(lines, "MinVersion="+opts.MinWindowsVersion)
	}
	if opts.SignTool != "" {
		lines = append(lines, "SignTool="+s.macros.Expand(opts.SignTool))
	}
	switch s.req.Runtime.Arch {
	case "x64":
		lines = append(lines, "ArchitecturesAllowed=x64compatible", "ArchitecturesInstallIn64BitMode=x64compatible")
	case "arm64":
		lines = append(lines, "ArchitecturesAllowed=arm64", "ArchitecturesInstallIn64BitMode=arm64")
	}
	text = insertAfter(text, "[Setup]", lines...)

	if opts.CommandPrompt != "" {
		text = insertAfter(text, "[Icons]", fmt.Sprintf(
			`Name: "{group}\%s"; Filename: "{cmd}"; Parameters: "/k cd /d ""{app}"""; WorkingDir: "{app}"`,
			opts.CommandPrompt))
	}
	return text
}
