// Package publish compiles the application into a directory ahead of
// packaging.
//
// User supplied pre- and post-publish scripts run around the compiler and see
// every macro value as an environment variable of the same name.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goplus/pupnet/internal/config"
	"github.com/goplus/pupnet/internal/deploy"
	"github.com/goplus/pupnet/internal/macro"
	"github.com/goplus/pupnet/internal/toolexec"
)

var (
	ErrPublish = errors.New("publish failed")
	ErrScript  = errors.New("publish script failed")
)

// DotnetTool is the compiler driver invoked by Publisher.
const DotnetTool = "dotnet"

// Publisher runs the publish step for one request.
type Publisher struct {
	runner toolexec.Runner
	app    *config.App
	req    deploy.Request
	macros *macro.Table
	host   deploy.OS
	log    *slog.Logger
}

// New creates a Publisher. host selects the shell used for scripts.
func New(runner toolexec.Runner, app *config.App, req deploy.Request, macros *macro.Table, host deploy.OS, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{runner: runner, app: app, req: req, macros: macros, host: host, log: log}
}

// Publish produces the compiled application in outDir. iconHint, when not
// empty, names an icon file the compiler embeds in the executable.
func (p *Publisher) Publish(ctx context.Context, outDir, iconHint string) error {
	if err := p.runScript(ctx, "pre-publish", p.app.Publish.PreScript); err != nil {
		return err
	}

	if p.req.SkipPublish {
		p.log.Info("skipping publish", "dir", outDir)
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrPublish, err)
		}
	} else {
		p.log.Info("publishing", "runtime", p.req.Runtime.ID, "config", p.req.PublishConfig)
		cmd := toolexec.Command{
			Tool: DotnetTool,
			Args: p.args(outDir, iconHint),
			Dir:  p.app.Dir,
		}
		if _, err := p.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("%w: %v", ErrPublish, err)
		}
	}

	return p.runScript(ctx, "post-publish", p.app.Publish.PostScript)
}

func (p *Publisher) args(outDir, iconHint string) []string {
	args := []string{"publish"}
	if project := p.app.Resolve(p.app.Publish.ProjectPath); project != "" {
		args = append(args, project)
	}
	args = append(args, "-c", p.req.PublishConfig, "-o", outDir)
	if p.req.Framework != deploy.Legacy {
		args = append(args, "-r", p.req.Runtime.ID, "--self-contained", "true")
	}
	if v := p.macros.Get(macro.AppVersion); v != "" {
		args = append(args, "-p:Version="+v)
	}
	if iconHint != "" {
		args = append(args, "-p:ApplicationIcon="+iconHint)
	}
	for _, prop := range p.req.Properties {
		args = append(args, "-p:"+prop)
	}
	return append(args, p.app.Publish.Args...)
}

func (p *Publisher) runScript(ctx context.Context, stage, script string) error {
	script = strings.TrimSpace(p.macros.Expand(script))
	if script == "" {
		return nil
	}
	path := p.app.Resolve(script)
	p.log.Info("running script", "stage", stage, "script", path)

	cmd := toolexec.Command{
		Args: []string{path},
		Dir:  p.app.Dir,
		Env:  toolexec.EnvMap(p.macros.Environ()),
	}
	if p.host == deploy.Windows {
		cmd.Tool = "cmd"
		cmd.Args = []string{"/c", path}
	} else {
		cmd.Tool = "/bin/sh"
	}
	if _, err := p.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrScript, stage, err)
	}
	return nil
}
