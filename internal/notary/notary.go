// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package notary implements the notarization protocol for signed macOS
// artifacts.
//
// A request moves through NotSubmitted, Submitted and one of the terminal
// states Accepted, Invalid or Unknown. Submission blocks until the remote
// service finishes, so the protocol itself never polls. Only an outright
// submission failure or an explicit rejection is fatal; stapling and its
// verification are diagnostic.
package notary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/pupnet/internal/deploy"
	"github.com/goplus/pupnet/internal/toolexec"
)

var (
	ErrSubmit       = errors.New("notarization submission failed")
	ErrNoCredential = errors.New("notarization credentials incomplete")
)

// State is the position of a request in the protocol.
type State int

const (
	NotSubmitted State = iota
	Submitted
	Accepted
	Invalid
	Unknown
)

func (s State) String() string {
	return [...]string{"NotSubmitted", "Submitted", "Accepted", "Invalid", "Unknown"}[s]
}

// Request is the transient record of one submission.
type Request struct {
	ID    string // Request identifier; meaningful only when HasID is true.
	HasID bool
	State State
}

// Packager creates a zip archive at dst holding the directory src as its
// single top-level entry.
type Packager func(ctx context.Context, src, dst string) error

// Notarizer drives the protocol through the xcrun tools.
type Notarizer struct {
	runner    toolexec.Runner
	creds     deploy.Credentials
	sanitizer *toolexec.Sanitizer
	pack      Packager
	log       *slog.Logger
}

// Option configures a Notarizer.
type Option func(*Notarizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notarizer) {
		n.log = l
	}
}

// WithPackager sets how bundle directories are zipped for submission.
func WithPackager(p Packager) Option {
	return func(n *Notarizer) {
		n.pack = p
	}
}

// New creates a Notarizer using runner and the Apple credentials in creds.
func New(runner toolexec.Runner, creds deploy.Credentials, opts ...Option) *Notarizer {
	n := &Notarizer{
		runner:    runner,
		creds:     creds,
		sanitizer: toolexec.NewSanitizer(creds.Secrets()...),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notarize submits artifact, confirms the outcome, and staples the ticket.
func (n *Notarizer) Notarize(ctx context.Context, artifact string) (*Request, error) {
	req, err := n.Submit(ctx, artifact)
	if err != nil {
		return req, err
	}
	if err := n.Confirm(ctx, req); err != nil {
		return req, err
	}
	n.Staple(ctx, artifact)
	n.VerifyStaple(ctx, artifact)
	return req, nil
}

// Submit sends artifact to the notary service and waits for processing.
// Only directories are zipped first; files such as disk images are uploaded
// as they are. A missing identifier in the tool output is not an error.
func (n *Notarizer) Submit(ctx context.Context, artifact string) (*Request, error) {
	req := &Request{State: NotSubmitted}
	if !n.creds.CanNotarize() {
		return req, ErrNoCredential
	}

	upload := artifact
	if info, err := os.Stat(artifact); err != nil {
		return req, fmt.Errorf("%w: %v", ErrSubmit, err)
	} else if info.IsDir() {
		if n.pack == nil {
			return req, fmt.Errorf("%w: no packager for %s", ErrSubmit, filepath.Base(artifact))
		}
		upload = strings.TrimSuffix(artifact, string(filepath.Separator)) + ".notarize.zip"
		if err := n.pack(ctx, artifact, upload); err != nil {
			return req, fmt.Errorf("%w: %v", ErrSubmit, err)
		}
		defer os.Remove(upload)
	}

	n.log.Info("submitting for notarization", "artifact", filepath.Base(artifact))
	args := append([]string{"notarytool", "submit", upload}, n.credentialArgs()...)
	args = append(args, "--wait")
	res, err := n.runner.Run(ctx, toolexec.Command{Tool: "xcrun", Args: args})
	if err != nil {
		msg := n.sanitizer.Sanitize(err.Error())
		n.log.Error("notarization submission failed", "error", msg)
		return req, fmt.Errorf("%w: %s", ErrSubmit, msg)
	}

	req.State = Submitted
	req.ID, req.HasID = ParseRequestID(res.Stdout + "\n" + res.Stderr)
	if req.HasID {
		n.log.Info("notarization submitted", "id", req.ID)
	} else {
		n.log.Info("notarization submitted; request id not reported")
	}
	return req, nil
}

// Confirm queries the final status of a submitted request. It returns
// ErrRejected when the service reports the artifact invalid; inconclusive
// answers are logged and tolerated.
func (n *Notarizer) Confirm(ctx context.Context, req *Request) error {
	if req.State != Submitted {
		return fmt.Errorf("notary: cannot confirm request in state %s", req.State)
	}
	if !req.HasID {
		n.log.Info("skipping notarization status check: no request id")
		req.State = Unknown
		return nil
	}

	args := append([]string{"notarytool", "info", req.ID}, n.credentialArgs()...)
	res, err := n.runner.Run(ctx, toolexec.Command{Tool: "xcrun", Args: args})
	if err != nil {
		n.log.Warn("notarization status check failed", "id", req.ID, "error", n.sanitizer.Sanitize(err.Error()))
		req.State = Unknown
		return nil
	}

	status, err := ParseStatus(res.Stdout + "\n" + res.Stderr)
	switch status {
	case StatusAccepted:
		req.State = Accepted
		n.log.Info("notarization accepted", "id", req.ID)
	case StatusInvalid:
		req.State = Invalid
		return fmt.Errorf("%w: request %s", err, req.ID)
	default:
		req.State = Unknown
		n.log.Warn("notarization status inconclusive", "id", req.ID)
	}
	return nil
}

// Staple attaches the notarization ticket to artifact. Failure is logged
// as a warning.
func (n *Notarizer) Staple(ctx context.Context, artifact string) bool {
	_, err := n.runner.Run(ctx, toolexec.Command{Tool: "xcrun", Args: []string{"stapler", "staple", artifact}})
	if err != nil {
		n.log.Warn("stapling failed", "artifact", filepath.Base(artifact), "error", n.sanitizer.Sanitize(err.Error()))
		return false
	}
	n.log.Info("notarization ticket stapled", "artifact", filepath.Base(artifact))
	return true
}

// VerifyStaple re-checks the stapled ticket. Failure is logged as a warning.
func (n *Notarizer) VerifyStaple(ctx context.Context, artifact string) bool {
	_, err := n.runner.Run(ctx, toolexec.Command{Tool: "xcrun", Args: []string{"stapler", "validate", artifact}})
	if err != nil {
		n.log.Warn("staple verification failed", "artifact", filepath.Base(artifact), "error", n.sanitizer.Sanitize(err.Error()))
		return false
	}
	return true
}

func (n *Notarizer) credentialArgs() []string {
	return []string{
		"--apple-id", n.creds.AppleID,
		"--team-id", n.creds.TeamID,
		"--password", n.creds.AppPassword,
	}
}
