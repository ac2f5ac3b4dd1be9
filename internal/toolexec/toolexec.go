// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package toolexec runs external tools and classifies their outcome.
//
// Every captured stream and every logged command line passes through a
// [Sanitizer], so credential values handed to a tool as arguments never reach
// a log line or a returned error.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
)

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrToolFailed   = errors.New("tool failed")
)

// Command describes one tool invocation.
type Command struct {
	Tool string            // Executable name or path.
	Args []string          // Arguments, not including the tool.
	Dir  string            // Working directory; the current one when empty.
	Env  map[string]string // Overrides on top of the process environment.
}

// Result is the captured outcome of a command. Stdout and Stderr are
// already sanitized.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the tool exited with status zero.
func (r *Result) Succeeded() bool {
	return r != nil && r.ExitCode == 0
}

// Output returns stdout and stderr joined, trimmed.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner runs commands. Run returns a non-nil Result whenever the tool was
// started, together with an error wrapping ErrToolFailed on a non-zero exit.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Invoker is the os/exec backed Runner.
type Invoker struct {
	sanitizer *Sanitizer
	logger    *slog.Logger
	verbose   bool
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithSanitizer sets the sanitizer applied to output and logs.
func WithSanitizer(s *Sanitizer) Option {
	return func(i *Invoker) {
		i.sanitizer = s
	}
}

// WithLogger sets the logger. The default logger is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		i.logger = l
	}
}

// WithVerbose enables logging of tool output at debug level.
func WithVerbose(v bool) Option {
	return func(i *Invoker) {
		i.verbose = v
	}
}

// NewInvoker creates an Invoker.
func NewInvoker(opts ...Option) *Invoker {
	i := &Invoker{logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Invoker) Run(ctx context.Context, c Command) (*Result, error) {
	line := commandLine(i.sanitizer.Sanitize(c.Tool), i.sanitizer.SanitizeArgs(c.Args))
	i.logger.Debug("run", "cmd", line, "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Tool, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.Env)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout: i.sanitizer.Sanitize(stdout.String()),
		Stderr: i.sanitizer.Sanitize(stderr.String()),
	}
	if i.verbose {
		if out := res.Output(); out != "" {
			i.logger.Debug("output", "tool", c.Tool, "text", out)
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			msg := strings.TrimSpace(res.Stderr)
			if msg == "" {
				msg = strings.TrimSpace(res.Stdout)
			}
			if msg == "" {
				msg = fmt.Sprintf("exit status %d", res.ExitCode)
			}
			return res, fmt.Errorf("%w: %s: %s", ErrToolFailed, c.Tool, msg)
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, c.Tool)
		}
		return nil, fmt.Errorf("%s: %s", c.Tool, i.sanitizer.Sanitize(err.Error()))
	}
	return res, nil
}

// commandLine joins an already sanitized command for logging. Quoting
// must come after redaction or escaped secrets slip through.
func commandLine(tool string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, tool)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// EnvMap converts "NAME=value" pairs into a map suitable for Command.Env.
func EnvMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
